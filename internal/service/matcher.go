package service

import (
	"context"

	"FingerprintSync/internal/model"
	"FingerprintSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// MatcherService 设备匹配引擎。
// 三层匹配策略：
//  1. core_id 精确匹配 → 置信度 95%+，同一设备
//  2. 核心信号 ≥3/4 匹配 → 置信度 70-80%，可能同一设备
//  3. 环境信号相似度 > 0.6 → 置信度 65-70%，需人工确认
type MatcherService struct {
	registry repository.DeviceRegistry
	logger   *logrus.Logger
}

// NewMatcherService 创建匹配服务
func NewMatcherService(registry repository.DeviceRegistry, logger *logrus.Logger) *MatcherService {
	return &MatcherService{registry: registry, logger: logger}
}

// Match 对一次设备身份负载做匹配决策。负载缺失或为空返回 (nil, nil)——
// 大量提交本来就不带 deviceId 块，这不是错误。
// 命中任一层时顺带刷新该设备的 last_seen/visit_count。
func (s *MatcherService) Match(ctx context.Context, identity *model.DeviceIdentity) (*model.MatchResult, error) {
	if identity == nil {
		return nil, nil
	}

	coreID := resolveCoreID(identity)
	// 空的 deviceId 块按缺失处理：没有可解析的core_id就没有可匹配的身份
	if coreID == "" {
		return nil, nil
	}
	signals := identity.Signals

	// 第一层：core_id 精确匹配
	device, err := s.registry.FindByCoreID(ctx, coreID)
	if err != nil {
		return nil, err
	}
	if device != nil {
		if err := s.registry.TouchVisit(ctx, device.DeviceID); err != nil {
			return nil, err
		}
		confidence := 95
		// 扩展ID原样比较，不做长ID前32位回退：+5只认客户端明确给出的短扩展ID
		if identity.ExtendedID != "" && identity.ExtendedID == device.ExtendedID {
			confidence += 5
		}
		firstSeen := device.FirstSeen
		s.logger.WithFields(logrus.Fields{
			"device_id":  device.DeviceID,
			"confidence": confidence,
		}).Debug("core_id 精确命中")
		return &model.MatchResult{
			Match:      true,
			MatchType:  model.MatchTypeExact,
			Confidence: confidence,
			DeviceID:   device.DeviceID,
			FirstSeen:  &firstSeen,
			VisitCount: device.VisitCount + 1,
		}, nil
	}

	// 第二、三层：全表扫描做模糊匹配（当前规模下可接受，见 DESIGN.md）
	devices, err := s.registry.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var bestMatch *model.MatchResult
	bestScore := 0.0

	for _, d := range devices {
		coreMatches := countMatches(
			signals.Audio == d.Audio,
			signals.CanvasGeometry == d.CanvasGeometry,
			signals.WebglRenderer == d.WebglRenderer,
			signals.Math == d.Math,
		)

		if coreMatches >= 3 {
			// 第二层：核心信号模糊匹配
			score := float64(70 + (coreMatches-3)*10)
			if score > bestScore {
				bestScore = score
				firstSeen := d.FirstSeen
				bestMatch = &model.MatchResult{
					Match:       true,
					MatchType:   model.MatchTypeFuzzyCore,
					Confidence:  int(score),
					DeviceID:    d.DeviceID,
					FirstSeen:   &firstSeen,
					VisitCount:  d.VisitCount,
					CoreMatches: coreMatches,
				}
			}
		} else if coreMatches == 2 {
			// 第三层：环境信号相似度
			envMatches := countMatches(
				signals.Screen == d.Screen,
				signals.Timezone == d.Timezone,
				signals.Platform == d.Platform,
				signals.HardwareConcurrency == d.HardwareConcurrency,
			)
			envSimilarity := float64(envMatches) / 4

			if envSimilarity > 0.6 {
				score := 50 + envSimilarity*20
				if score > bestScore {
					bestScore = score
					firstSeen := d.FirstSeen
					bestMatch = &model.MatchResult{
						Match:         true,
						MatchType:     model.MatchTypeFuzzyEnv,
						Confidence:    int(score),
						DeviceID:      d.DeviceID,
						FirstSeen:     &firstSeen,
						VisitCount:    d.VisitCount,
						CoreMatches:   coreMatches,
						EnvSimilarity: envSimilarity,
					}
				}
			}
		}
	}

	if bestMatch != nil {
		if err := s.registry.TouchVisit(ctx, bestMatch.DeviceID); err != nil {
			return nil, err
		}
		bestMatch.VisitCount++
		s.logger.WithFields(logrus.Fields{
			"device_id":  bestMatch.DeviceID,
			"match_type": bestMatch.MatchType,
			"confidence": bestMatch.Confidence,
		}).Debug("模糊匹配命中")
		return bestMatch, nil
	}

	// 未命中：新设备，由调用方负责注册
	return &model.MatchResult{
		Match:      false,
		MatchType:  model.MatchTypeNew,
		Confidence: 0,
	}, nil
}

// resolveCoreID 取短core_id，缺失时退化为长ID前32位
func resolveCoreID(identity *model.DeviceIdentity) string {
	if identity.CoreID != "" {
		return identity.CoreID
	}
	return truncate32(identity.FullCoreID)
}

// resolveExtendedID 同 resolveCoreID，针对扩展ID
func resolveExtendedID(identity *model.DeviceIdentity) string {
	if identity.ExtendedID != "" {
		return identity.ExtendedID
	}
	return truncate32(identity.FullExtendedID)
}

func truncate32(s string) string {
	if len(s) > 32 {
		return s[:32]
	}
	return s
}

func countMatches(checks ...bool) int {
	n := 0
	for _, ok := range checks {
		if ok {
			n++
		}
	}
	return n
}
