package api

import (
	"net"
	"strings"
	"time"

	"FingerprintSync/internal/model"

	"github.com/gin-gonic/gin"
)

// GetClientIP 获取客户端真实IP：
// X-Forwarded-For 首段 > X-Real-IP > 传输层对端地址
func GetClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if rip := c.GetHeader("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}

// BuildServerFingerprint 收集服务端观测的请求特征
func BuildServerFingerprint(c *gin.Context) *model.ServerFingerprint {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		headers[name] = strings.Join(values, ", ")
	}
	// 移除敏感信息
	delete(headers, "Cookie")
	delete(headers, "Authorization")

	return &model.ServerFingerprint{
		IP:             GetClientIP(c),
		Method:         c.Request.Method,
		Path:           c.Request.URL.Path,
		HTTPVersion:    c.Request.Proto,
		Headers:        headers,
		Accept:         c.GetHeader("Accept"),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		AcceptEncoding: c.GetHeader("Accept-Encoding"),
		UserAgent:      c.GetHeader("User-Agent"),
		SecChUA:        c.GetHeader("Sec-Ch-Ua"),
		SecChUAMobile:  c.GetHeader("Sec-Ch-Ua-Mobile"),
		SecChUAPlat:    c.GetHeader("Sec-Ch-Ua-Platform"),
		SecFetchSite:   c.GetHeader("Sec-Fetch-Site"),
		SecFetchMode:   c.GetHeader("Sec-Fetch-Mode"),
		SecFetchDest:   c.GetHeader("Sec-Fetch-Dest"),
		Connection:     c.GetHeader("Connection"),
		CollectedAt:    time.Now().Format(time.RFC3339),
	}
}
