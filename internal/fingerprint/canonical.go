package fingerprint

// 易变字段剔除规则。这里列出的字段会随窗口操作、网络状态、无痕模式或
// 异步探测时序变化，不代表设备身份，必须在哈希前剔除。
var (
	volatileTopLevel = []string{"timestamp", "hash", "timing", "tls", "incognito"}

	// 窗口尺寸/位置随拖动缩放变化
	volatileScreen = []string{
		"innerWidth", "innerHeight",
		"outerWidth", "outerHeight",
		"availWidth", "availHeight",
		"screenX", "screenY",
	}

	// connection 随网络变化；languages/doNotTrack 无痕模式下不同
	volatileNavigator = []string{"connection", "languages", "doNotTrack"}

	// 浮点指纹值与延迟有运行间抖动；state 首次可能是 timeout
	volatileAudio = []string{"fingerprint", "baseLatency", "outputLatency", "state", "error"}

	// indexedDB.open() 异步，首次观测可能为 false
	volatileStorage = []string{"indexedDBEnabled"}

	// score 依赖异步检测结果
	volatileAutomation = []string{"score"}

	// permissionsInconsistent 异步返回后才设置；languagesLengthZero 无痕模式下不同
	volatileAutomationChecks = []string{"permissionsInconsistent", "languagesLengthZero"}
)

// Canonicalize 从原始客户端指纹文档中剔除全部易变字段，返回可稳定哈希的
// 规范化文档。纯函数：不修改入参，缺失字段直接跳过，任何输入都不报错。
func Canonicalize(client map[string]any) map[string]any {
	out := copyMap(client)
	for _, key := range volatileTopLevel {
		delete(out, key)
	}

	if raw, present := out["screen"]; present {
		screen := map[string]any{}
		if m, ok := raw.(map[string]any); ok {
			screen = copyMap(m)
		}
		for _, key := range volatileScreen {
			delete(screen, key)
		}
		out["screen"] = screen
	}

	if nav, ok := out["navigator"].(map[string]any); ok {
		navigator := copyMap(nav)
		for _, key := range volatileNavigator {
			delete(navigator, key)
		}
		out["navigator"] = navigator
	}

	if au, ok := out["audio"].(map[string]any); ok {
		audio := copyMap(au)
		for _, key := range volatileAudio {
			delete(audio, key)
		}
		out["audio"] = audio
	}

	if st, ok := out["storage"].(map[string]any); ok {
		storage := copyMap(st)
		for _, key := range volatileStorage {
			delete(storage, key)
		}
		out["storage"] = storage
	}

	if am, ok := out["automation"].(map[string]any); ok {
		automation := copyMap(am)
		for _, key := range volatileAutomation {
			delete(automation, key)
		}
		if cm, ok := automation["checks"].(map[string]any); ok {
			checks := copyMap(cm)
			for _, key := range volatileAutomationChecks {
				delete(checks, key)
			}
			automation["checks"] = checks
		}
		out["automation"] = automation
	}

	return out
}

// StablePayload 组装参与浏览器指纹哈希的稳定负载。
// user_agent 与 accept_encoding 取自服务端观测的请求头而非客户端文档；
// accept_language 在无痕模式下会变化，刻意不纳入。
func StablePayload(client map[string]any, userAgent, acceptEncoding string) map[string]any {
	return map[string]any{
		"client":          Canonicalize(client),
		"user_agent":      userAgent,
		"accept_encoding": acceptEncoding,
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
