package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"FingerprintSync/internal/config"
	"FingerprintSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// Info IP详细信息（地区、ISP、纯净度、时区等）。
// 查询失败时代理/VPN等布尔项为 nil，risk_score 取哨兵值 -1。
type Info struct {
	IP           string `json:"ip"`
	Type         string `json:"type"` // local/public/unknown
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
	Region       string `json:"region"`
	City         string `json:"city"`
	ISP          string `json:"isp"`
	Org          string `json:"org"`
	Timezone     string `json:"timezone"`
	IsProxy      *bool  `json:"is_proxy"`
	IsVPN        *bool  `json:"is_vpn"`
	IsDatacenter *bool  `json:"is_datacenter"`
	IsMobile     *bool  `json:"is_mobile"`
	RiskScore    int    `json:"risk_score"`
	RiskLevel    string `json:"risk_level"`
}

// apiResponse ip-api.com 返回结构
type apiResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	Proxy       bool   `json:"proxy"`
	Hosting     bool   `json:"hosting"`
	Mobile      bool   `json:"mobile"`
	Timezone    string `json:"timezone"`
}

// Client 第三方IP信息查询客户端（ip-api.com）
type Client struct {
	http    *http.Client
	baseURL string
	logger  *logrus.Logger
}

// NewClient 创建IP信息查询客户端
func NewClient(cfg *config.IPInfoConfig, logger *logrus.Logger) *Client {
	return &Client{
		http:    httpclient.NewHTTPClient(cfg.Timeout, cfg.Proxy, false, logger),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// Lookup 查询IP详细信息。本地/内网IP直接短路，外部查询失败不报错，
// 返回 risk_score=-1 的未知结果（查询失败是常态，不应打断采集流程）。
func (c *Client) Lookup(ctx context.Context, ip string) *Info {
	if isLocalIP(ip) {
		return localInfo(ip)
	}

	reqURL := fmt.Sprintf(
		"%s/%s?fields=status,message,country,countryCode,regionName,city,isp,org,proxy,hosting,mobile,timezone",
		c.baseURL, ip,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.WithError(err).Warn("构造IP查询请求失败")
		return unknownInfo(ip)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("ip", ip).Warn("IP信息查询失败")
		return unknownInfo(ip)
	}
	defer resp.Body.Close()

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.logger.WithError(err).Warn("解析IP查询响应失败")
		return unknownInfo(ip)
	}
	if data.Status != "success" {
		c.logger.WithField("message", data.Message).Warn("IP查询返回失败状态")
		return unknownInfo(ip)
	}

	// 风险分数：代理40 + 机房30 + 移动网络10
	riskScore := 0
	if data.Proxy {
		riskScore += 40
	}
	if data.Hosting {
		riskScore += 30
	}
	if data.Mobile {
		riskScore += 10
	}
	riskLevel := "低风险"
	if riskScore >= 50 {
		riskLevel = "高风险"
	} else if riskScore >= 20 {
		riskLevel = "中风险"
	}

	return &Info{
		IP:           ip,
		Type:         "public",
		Country:      data.Country,
		CountryCode:  data.CountryCode,
		Region:       data.RegionName,
		City:         data.City,
		ISP:          data.ISP,
		Org:          data.Org,
		Timezone:     data.Timezone,
		IsProxy:      boolPtr(data.Proxy),
		IsVPN:        boolPtr(data.Proxy),
		IsDatacenter: boolPtr(data.Hosting),
		IsMobile:     boolPtr(data.Mobile),
		RiskScore:    riskScore,
		RiskLevel:    riskLevel,
	}
}

func isLocalIP(ip string) bool {
	if ip == "127.0.0.1" || ip == "localhost" || ip == "::1" {
		return true
	}
	return strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.")
}

func localInfo(ip string) *Info {
	return &Info{
		IP:           ip,
		Type:         "local",
		Country:      "本地网络",
		CountryCode:  "LOCAL",
		Region:       "-",
		City:         "-",
		ISP:          "本地",
		Org:          "-",
		Timezone:     "Local",
		IsProxy:      boolPtr(false),
		IsVPN:        boolPtr(false),
		IsDatacenter: boolPtr(false),
		IsMobile:     boolPtr(false),
		RiskScore:    0,
		RiskLevel:    "安全",
	}
}

func unknownInfo(ip string) *Info {
	return &Info{
		IP:          ip,
		Type:        "unknown",
		Country:     "查询失败",
		CountryCode: "",
		Region:      "-",
		City:        "-",
		ISP:         "-",
		Org:         "-",
		Timezone:    "-",
		RiskScore:   -1,
		RiskLevel:   "未知",
	}
}

func boolPtr(b bool) *bool { return &b }
