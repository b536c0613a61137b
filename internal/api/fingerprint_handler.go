package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"FingerprintSync/internal/config"
	"FingerprintSync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FingerprintHandler 指纹记录的查询与管理接口
type FingerprintHandler struct {
	store  repository.FingerprintStore
	logger *logrus.Logger
	cfg    *config.Config
}

func NewFingerprintHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *FingerprintHandler {
	return &FingerprintHandler{
		store:  repository.NewFingerprintStore(db),
		logger: logger,
		cfg:    cfg,
	}
}

// GetFingerprint 获取已存储的指纹
// GET /api/fingerprint/:id
func (h *FingerprintHandler) GetFingerprint(c *gin.Context) {
	fp, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("查询指纹失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if fp == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "fingerprint": json.RawMessage(fp.Data)})
}

// ListFingerprints 列出最近的指纹
// GET /api/fingerprints
func (h *FingerprintHandler) ListFingerprints(c *gin.Context) {
	ctx := c.Request.Context()
	count, err := h.store.Count(ctx)
	if err != nil {
		h.logger.WithError(err).Error("统计指纹失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	fps, err := h.store.List(ctx, h.cfg.Collect.ListLimit)
	if err != nil {
		h.logger.WithError(err).Error("查询指纹列表失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	docs := make([]json.RawMessage, 0, len(fps))
	for _, fp := range fps {
		docs = append(docs, json.RawMessage(fp.Data))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"count":        count,
		"fingerprints": docs,
	})
}

// DeleteFingerprint 删除指定指纹
// GET|POST /api/fingerprint/:id/delete
func (h *FingerprintHandler) DeleteFingerprint(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("删除指纹失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Fingerprint not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Fingerprint %s deleted", id)})
}

// ClearFingerprints 清空所有指纹
// GET|POST /api/fingerprints/delete
func (h *FingerprintHandler) ClearFingerprints(c *gin.Context) {
	count, err := h.store.DeleteAll(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("清空指纹失败")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Deleted %d fingerprint(s)", count),
	})
}

// ServerInfo 仅返回服务端收集的信息（用于测试）
// GET /api/server-info
func (h *FingerprintHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, BuildServerFingerprint(c))
}

// GetConfig 返回服务器配置，供前端使用
// GET /api/config
func (h *FingerprintHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"server_host": h.cfg.Server.PublicHost,
		"tls_port":    h.cfg.TLSCapture.Port,
		"tls_url":     h.cfg.TLSCapturePublicURL(),
		"api_url":     h.cfg.TLSCapturePublicURL() + "/api/fingerprint",
	})
}
