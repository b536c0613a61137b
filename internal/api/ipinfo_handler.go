package api

import (
	"net/http"

	"FingerprintSync/internal/ipinfo"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IPInfoHandler IP信息查询接口（地区、ISP、纯净度等）
type IPInfoHandler struct {
	client *ipinfo.Client
	logger *logrus.Logger
}

func NewIPInfoHandler(client *ipinfo.Client, logger *logrus.Logger) *IPInfoHandler {
	return &IPInfoHandler{client: client, logger: logger}
}

// GetOwnIPInfo 获取当前客户端IP的详细信息
// GET /api/ip-info
func (h *IPInfoHandler) GetOwnIPInfo(c *gin.Context) {
	info := h.client.Lookup(c.Request.Context(), GetClientIP(c))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ip_info": info,
	})
}

// GetIPInfo 查询指定IP的详细信息
// GET /api/ip-info/:ip
func (h *IPInfoHandler) GetIPInfo(c *gin.Context) {
	info := h.client.Lookup(c.Request.Context(), c.Param("ip"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ip_info": info,
	})
}
