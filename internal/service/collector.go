package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FingerprintSync/internal/fingerprint"
	"FingerprintSync/internal/model"
	"FingerprintSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CollectorService 指纹采集编排服务：规范化 → 哈希 → 设备匹配/注册 →
// 访问日志 → 指纹落库，每次提交作为一个同步处理单元，步骤顺序固定
// （访问日志记录的是刚做出的匹配决策，不能提前）。
type CollectorService struct {
	fingerprints repository.FingerprintStore
	devices      repository.DeviceRegistry
	matcher      *MatcherService
	logger       *logrus.Logger
}

// NewCollectorService 创建采集编排服务
func NewCollectorService(
	fingerprints repository.FingerprintStore,
	devices repository.DeviceRegistry,
	matcher *MatcherService,
	logger *logrus.Logger,
) *CollectorService {
	return &CollectorService{
		fingerprints: fingerprints,
		devices:      devices,
		matcher:      matcher,
		logger:       logger,
	}
}

// Collect 处理一次指纹提交。client 为前端采集的原始文档，identity/tlsData
// 是从中拆出的可选块（可为 nil），server 为HTTP层观测的请求特征。
func (s *CollectorService) Collect(
	ctx context.Context,
	client map[string]any,
	identity *model.DeviceIdentity,
	tlsData *model.TLSData,
	server *model.ServerFingerprint,
) (*model.CollectResult, error) {
	traceID := uuid.NewString()

	// 1. 派生三个指纹ID
	browserID := fingerprint.BrowserID(client, server.UserAgent, server.AcceptEncoding)
	tlsID := fingerprint.TLSID(tlsData)
	combinedID := fingerprint.CombinedID(browserID, tlsID)

	// 2. 设备匹配（deviceId 块可选，缺失或为空时跳过整段——
	// 空块出不了决策，更不能注册device_id为空串的垃圾设备）
	var deviceMatch *model.MatchResult
	if identity != nil {
		match, err := s.matcher.Match(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("设备匹配失败: %w", err)
		}
		deviceMatch = match

		if match != nil {
			deviceID := ""
			if match.Match {
				deviceID = match.DeviceID
			} else {
				// 新设备：先注册再记录首次访问
				id, err := s.devices.UpsertNewDevice(ctx, buildDevice(identity))
				if err != nil {
					return nil, fmt.Errorf("注册新设备失败: %w", err)
				}
				deviceID = id
				deviceMatch.DeviceID = id
			}

			if deviceID != "" {
				visit := &model.DeviceVisit{
					DeviceID:   deviceID,
					IPAddress:  server.IP,
					UserAgent:  server.UserAgent,
					MatchType:  deviceMatch.MatchType,
					Confidence: deviceMatch.Confidence,
				}
				if err := s.devices.RecordVisit(ctx, visit); err != nil {
					return nil, fmt.Errorf("记录访问失败: %w", err)
				}
			}

			s.logger.WithFields(logrus.Fields{
				"trace_id":   traceID,
				"device_id":  deviceID,
				"match_type": deviceMatch.MatchType,
				"confidence": deviceMatch.Confidence,
			}).Info("设备匹配完成")
		}
	}

	// 3. 组装完整指纹文档并落库（浏览器ID作为主ID，重复提交整行覆盖）
	fullDoc := map[string]any{
		"client":      client,
		"server":      server,
		"id":          browserID,
		"browser_id":  browserID,
		"combined_id": combinedID,
	}
	if tlsID != "" {
		fullDoc["tls_id"] = tlsID
	} else {
		fullDoc["tls_id"] = nil
	}

	raw, err := json.Marshal(fullDoc)
	if err != nil {
		return nil, fmt.Errorf("序列化指纹文档失败: %w", err)
	}
	fp := &model.Fingerprint{
		ID:        browserID,
		Data:      raw,
		IP:        server.IP,
		UserAgent: server.UserAgent,
		CreatedAt: time.Now(),
	}
	if err := s.fingerprints.Put(ctx, fp); err != nil {
		return nil, fmt.Errorf("保存指纹失败: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"trace_id":   traceID,
		"browser_id": browserID,
		"ip":         server.IP,
	}).Info("指纹采集完成")

	result := &model.CollectResult{
		Success:     true,
		ID:          browserID,
		BrowserID:   browserID,
		CombinedID:  combinedID,
		Fingerprint: fullDoc,
		DeviceMatch: deviceMatch,
	}
	if tlsID != "" {
		result.TLSID = &tlsID
	}
	return result, nil
}

// buildDevice 从设备身份负载构造待注册的设备记录。
// device_id 优先取更稳定的长ID，缺失时退化为短core_id。
func buildDevice(identity *model.DeviceIdentity) *model.DeviceFingerprint {
	coreID := resolveCoreID(identity)
	deviceID := identity.FullCoreID
	if deviceID == "" {
		deviceID = coreID
	}
	return &model.DeviceFingerprint{
		DeviceID:            deviceID,
		CoreID:              coreID,
		ExtendedID:          resolveExtendedID(identity),
		Audio:               identity.Signals.Audio,
		CanvasGeometry:      identity.Signals.CanvasGeometry,
		WebglRenderer:       identity.Signals.WebglRenderer,
		WebglVendor:         identity.Signals.WebglVendor,
		Fonts:               identity.Signals.Fonts,
		Math:                identity.Signals.Math,
		Screen:              identity.Signals.Screen,
		Timezone:            identity.Signals.Timezone,
		Platform:            identity.Signals.Platform,
		HardwareConcurrency: identity.Signals.HardwareConcurrency,
		Confidence:          identity.Confidence,
	}
}
