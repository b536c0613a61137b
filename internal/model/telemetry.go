package model

import "time"

// 匹配类型枚举
const (
	MatchTypeExact     = "exact"      // core_id 精确命中
	MatchTypeFuzzyCore = "fuzzy_core" // 核心信号 ≥3/4 命中
	MatchTypeFuzzyEnv  = "fuzzy_env"  // 核心信号 2/4 + 环境相似度 >0.6
	MatchTypeNew       = "new"        // 未命中任何已知设备
)

// DeviceSignals 设备识别信号（核心4项 + 环境4项 + 仅留存2项）
type DeviceSignals struct {
	Audio               string `json:"audio"`               // 核心：音频指纹
	CanvasGeometry      string `json:"canvasGeometry"`      // 核心：Canvas几何
	WebglRenderer       string `json:"webglRenderer"`       // 核心：WebGL渲染器
	WebglVendor         string `json:"webglVendor"`         // 留存：WebGL厂商
	Fonts               string `json:"fonts"`               // 留存：字体指纹
	Math                string `json:"math"`                // 核心：数学精度
	Screen              string `json:"screen"`              // 环境：屏幕分辨率
	Timezone            string `json:"timezone"`            // 环境：时区
	Platform            string `json:"platform"`            // 环境：平台
	HardwareConcurrency int    `json:"hardwareConcurrency"` // 环境：逻辑核心数
}

// DeviceIdentity 客户端提交的设备身份负载（deviceId 块）
type DeviceIdentity struct {
	CoreID         string        `json:"coreId"`         // 核心短ID
	FullCoreID     string        `json:"fullCoreId"`     // 核心长ID（缺短ID时取前32位）
	ExtendedID     string        `json:"extendedId"`     // 扩展短ID
	FullExtendedID string        `json:"fullExtendedId"` // 扩展长ID
	Confidence     int           `json:"confidence"`     // 客户端自报置信度
	Signals        DeviceSignals `json:"signals"`        // 识别信号
}

// TLSExtension ClientHello 扩展条目（伴生TLS服务输出）
type TLSExtension struct {
	Name string `json:"name"`
	ID   uint16 `json:"id"`
	Data any    `json:"data,omitempty"`
}

// TLSData 客户端携带的TLS握手特征块（由伴生TLS服务采集）
type TLSData struct {
	TLSVersion        string         `json:"tls_version"`
	CipherSuite       string         `json:"cipher_suite"`
	Ciphers           []string       `json:"ciphers"`
	Extensions        []TLSExtension `json:"extensions"`
	SupportedGroups   []string       `json:"supported_groups"`
	SupportedVersions []string       `json:"supported_versions"`
}

// ServerFingerprint 服务端观测的请求特征（由HTTP层填充）
type ServerFingerprint struct {
	IP             string            `json:"ip"`
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	HTTPVersion    string            `json:"http_version"`
	Headers        map[string]string `json:"headers"`
	Accept         string            `json:"accept"`
	AcceptLanguage string            `json:"accept_language"`
	AcceptEncoding string            `json:"accept_encoding"`
	UserAgent      string            `json:"user_agent"`
	SecChUA        string            `json:"sec_ch_ua"`
	SecChUAMobile  string            `json:"sec_ch_ua_mobile"`
	SecChUAPlat    string            `json:"sec_ch_ua_platform"`
	SecFetchSite   string            `json:"sec_fetch_site"`
	SecFetchMode   string            `json:"sec_fetch_mode"`
	SecFetchDest   string            `json:"sec_fetch_dest"`
	Connection     string            `json:"connection"`
	CollectedAt    string            `json:"collected_at"`
}

// MatchResult 一次设备匹配决策的完整输出
type MatchResult struct {
	Match         bool       `json:"match"`
	MatchType     string     `json:"match_type"`
	Confidence    int        `json:"confidence"`
	DeviceID      string     `json:"device_id"`
	FirstSeen     *time.Time `json:"first_seen,omitempty"`
	VisitCount    int        `json:"visit_count,omitempty"`
	CoreMatches   int        `json:"core_matches,omitempty"`
	EnvSimilarity float64    `json:"env_similarity,omitempty"`
}

// CollectResult 指纹提交的响应负载
type CollectResult struct {
	Success     bool           `json:"success"`
	ID          string         `json:"id"`
	BrowserID   string         `json:"browser_id"`
	TLSID       *string        `json:"tls_id"`
	CombinedID  string         `json:"combined_id"`
	Fingerprint map[string]any `json:"fingerprint"`
	DeviceMatch *MatchResult   `json:"device_match,omitempty"`
}
