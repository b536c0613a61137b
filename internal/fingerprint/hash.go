package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"FingerprintSync/internal/model"
)

// 指纹ID长度：SHA-256十六进制的前16位。64位空间对标识符够用，
// 这里是可读性与碰撞风险的权衡，不承担任何安全属性。
const idHexLen = 16

// digest 按键排序序列化后做SHA-256并截断。encoding/json 对 map 键做
// 字典序输出，保证哈希与字段写入顺序无关。
func digest(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		// map[string]any + 基础类型不会失败；防御性兜底
		raw = []byte{}
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:idHexLen]
}

// BrowserID 基于规范化客户端文档 + 服务端观测头生成浏览器指纹ID
func BrowserID(client map[string]any, userAgent, acceptEncoding string) string {
	return digest(StablePayload(client, userAgent, acceptEncoding))
}

// TLSID 基于TLS握手特征生成指纹ID，无TLS块时返回空串。
// GREASE 占位值一律剔除；extensions 额外排序（Chrome 会随机化扩展顺序），
// ciphers/groups/versions 保序（优先级顺序本身是特征）。
func TLSID(tls *model.TLSData) string {
	if tls == nil {
		return ""
	}

	extNames := make([]string, 0, len(tls.Extensions))
	for _, ext := range tls.Extensions {
		if !isGREASE(ext.Name) {
			extNames = append(extNames, ext.Name)
		}
	}
	sort.Strings(extNames)

	stable := map[string]any{
		"tls_version":       tls.TLSVersion,
		"cipher_suite":      tls.CipherSuite,
		"ciphers_stable":    filterGREASE(tls.Ciphers),
		"extensions_stable": extNames,
		"groups_stable":     filterGREASE(tls.SupportedGroups),
		"versions_stable":   filterGREASE(tls.SupportedVersions),
	}
	return digest(stable)
}

// CombinedID 浏览器ID与TLS ID的组合指纹。browser_id 缺失时无意义，返回空串；
// tls_id 缺失按空串拼接，保证可复现。
func CombinedID(browserID, tlsID string) string {
	if browserID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(browserID + tlsID))
	return hex.EncodeToString(sum[:])[:idHexLen]
}

func isGREASE(name string) bool {
	return strings.Contains(name, "GREASE")
}

// filterGREASE 剔除GREASE条目，保持其余条目相对顺序
func filterGREASE(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !isGREASE(v) {
			out = append(out, v)
		}
	}
	return out
}
