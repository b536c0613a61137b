package api

import (
	"net/http"

	"FingerprintSync/internal/config"
	"FingerprintSync/internal/tlsclient"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TLSHandler 伴生TLS指纹服务的代理接口
type TLSHandler struct {
	client *tlsclient.Client
	cfg    *config.Config
	logger *logrus.Logger
}

func NewTLSHandler(client *tlsclient.Client, cfg *config.Config, logger *logrus.Logger) *TLSHandler {
	return &TLSHandler{client: client, cfg: cfg, logger: logger}
}

// GetTLSFingerprint 获取客户端的TLS指纹。
// 用户需要先访问TLS服务器建立连接，然后通过此接口获取指纹。
// GET /api/tls
func (h *TLSHandler) GetTLSFingerprint(c *gin.Context) {
	fp, err := h.client.Fetch(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("获取TLS指纹失败")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":    false,
			"error":      "TLS server is not running",
			"suggestion": "Start the companion TLS capture server first",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"client_ip":   GetClientIP(c),
		"fingerprint": fp,
		"note":        "TLS fingerprint from companion capture server",
	})
}

// CheckTLSServer 检查TLS服务状态
// GET /api/tls-check
func (h *TLSHandler) CheckTLSServer(c *gin.Context) {
	running := h.client.Probe(c.Request.Context())

	message := "TLS server is not running"
	if running {
		message = "TLS server is running"
	}
	c.JSON(http.StatusOK, gin.H{
		"tls_server_running": running,
		"tls_server_port":    h.cfg.TLSCapture.Port,
		"tls_server_url":     h.cfg.TLSCapturePublicURL(),
		"message":            message,
	})
}
