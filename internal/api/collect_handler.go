package api

import (
	"encoding/json"
	"net/http"

	"FingerprintSync/internal/model"
	"FingerprintSync/internal/repository"
	"FingerprintSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CollectHandler struct {
	collector *service.CollectorService
	logger    *logrus.Logger
}

func NewCollectHandler(db *gorm.DB, logger *logrus.Logger) *CollectHandler {
	fingerprints := repository.NewFingerprintStore(db)
	devices := repository.NewDeviceRegistry(db)
	matcher := service.NewMatcherService(devices, logger)
	return &CollectHandler{
		collector: service.NewCollectorService(fingerprints, devices, matcher, logger),
		logger:    logger,
	}
}

// collectEnvelope 从提交文档中拆出的可选结构化块
type collectEnvelope struct {
	DeviceID *model.DeviceIdentity `json:"deviceId"`
	TLS      *model.TLSData        `json:"tls"`
}

// CollectFingerprint 接收前端收集的指纹并合并服务端数据
// POST /api/collect
func (h *CollectHandler) CollectFingerprint(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	// 空提交按空文档处理（缺失字段不是错误）
	client := map[string]any{}
	var envelope collectEnvelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &client); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	server := BuildServerFingerprint(c)

	result, err := h.collector.Collect(c.Request.Context(), client, envelope.DeviceID, envelope.TLS, server)
	if err != nil {
		h.logger.WithError(err).Error("指纹采集失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
