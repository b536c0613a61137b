package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"FingerprintSync/internal/model"
	"FingerprintSync/internal/service"

	"github.com/sirupsen/logrus"
)

// fakeRegistry 内存版设备注册表，记录全部写操作供断言
type fakeRegistry struct {
	devices []*model.DeviceFingerprint
	touched []string
	visits  []*model.DeviceVisit
}

func (f *fakeRegistry) FindByCoreID(_ context.Context, coreID string) (*model.DeviceFingerprint, error) {
	for _, d := range f.devices {
		if d.CoreID == coreID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeRegistry) ListAll(_ context.Context) ([]*model.DeviceFingerprint, error) {
	return f.devices, nil
}

func (f *fakeRegistry) TouchVisit(_ context.Context, deviceID string) error {
	f.touched = append(f.touched, deviceID)
	return nil
}

func (f *fakeRegistry) UpsertNewDevice(_ context.Context, device *model.DeviceFingerprint) (string, error) {
	for _, d := range f.devices {
		if d.DeviceID == device.DeviceID {
			d.ExtendedID = device.ExtendedID
			d.VisitCount++
			d.LastSeen = time.Now()
			return d.DeviceID, nil
		}
	}
	device.FirstSeen = time.Now()
	device.LastSeen = device.FirstSeen
	device.VisitCount = 1
	f.devices = append(f.devices, device)
	return device.DeviceID, nil
}

func (f *fakeRegistry) RecordVisit(_ context.Context, visit *model.DeviceVisit) error {
	f.visits = append(f.visits, visit)
	return nil
}

func (f *fakeRegistry) DeleteByID(_ context.Context, deviceID string) (bool, error) {
	for i, d := range f.devices {
		if d.DeviceID == deviceID {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistry) DeleteAll(_ context.Context) (int64, error) {
	n := int64(len(f.devices))
	f.devices = nil
	return n, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func storedDevice(n int) *model.DeviceFingerprint {
	return &model.DeviceFingerprint{
		ID:                  uint64(n),
		DeviceID:            fmt.Sprintf("device-%d", n),
		CoreID:              fmt.Sprintf("core-%d", n),
		ExtendedID:          fmt.Sprintf("ext-%d", n),
		Audio:               "audio-1",
		CanvasGeometry:      "canvas-1",
		WebglRenderer:       "webgl-1",
		Math:                "math-1",
		Screen:              "2560x1440",
		Timezone:            "Asia/Shanghai",
		Platform:            "MacIntel",
		HardwareConcurrency: 8,
		FirstSeen:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		VisitCount:          4,
	}
}

func matchedSignals() model.DeviceSignals {
	return model.DeviceSignals{
		Audio:               "audio-1",
		CanvasGeometry:      "canvas-1",
		WebglRenderer:       "webgl-1",
		Math:                "math-1",
		Screen:              "2560x1440",
		Timezone:            "Asia/Shanghai",
		Platform:            "MacIntel",
		HardwareConcurrency: 8,
	}
}

func TestMatchMissingIdentity(t *testing.T) {
	m := service.NewMatcherService(&fakeRegistry{}, testLogger())
	result, err := m.Match(context.Background(), nil)
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if result != nil {
		t.Errorf("缺失设备身份负载应返回nil决策，得到 %+v", result)
	}
}

func TestMatchEmptyIdentityBlock(t *testing.T) {
	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
	m := service.NewMatcherService(registry, testLogger())

	// coreId/fullCoreId 均缺失：即使携带信号也无从匹配
	result, err := m.Match(context.Background(), &model.DeviceIdentity{Signals: matchedSignals()})
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if result != nil {
		t.Errorf("无可解析core_id应返回nil决策，得到 %+v", result)
	}
	if len(registry.touched) != 0 {
		t.Errorf("空身份负载不应刷新任何设备: %v", registry.touched)
	}
}

func TestMatchExact(t *testing.T) {
	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
	m := service.NewMatcherService(registry, testLogger())

	identity := &model.DeviceIdentity{CoreID: "core-1", ExtendedID: "ext-1", Signals: matchedSignals()}
	result, err := m.Match(context.Background(), identity)
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}

	if !result.Match || result.MatchType != model.MatchTypeExact {
		t.Fatalf("期望exact命中，得到 %+v", result)
	}
	if result.Confidence != 100 {
		t.Errorf("extended_id 一致时置信度应为100，得到 %d", result.Confidence)
	}
	if result.DeviceID != "device-1" {
		t.Errorf("device_id 错误: %s", result.DeviceID)
	}
	if result.VisitCount != 5 {
		t.Errorf("visit_count 应反映更新后的值5，得到 %d", result.VisitCount)
	}
	if len(registry.touched) != 1 || registry.touched[0] != "device-1" {
		t.Errorf("应刷新命中设备的访问信息: %v", registry.touched)
	}
}

func TestMatchExactWithoutExtendedID(t *testing.T) {
	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
	m := service.NewMatcherService(registry, testLogger())

	identity := &model.DeviceIdentity{CoreID: "core-1", ExtendedID: "ext-other", Signals: matchedSignals()}
	result, err := m.Match(context.Background(), identity)
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if result.Confidence != 95 {
		t.Errorf("extended_id 不一致时置信度应为95，得到 %d", result.Confidence)
	}
}

func TestMatchExactViaFullCoreID(t *testing.T) {
	device := storedDevice(1)
	device.CoreID = strings.Repeat("ab", 16) // 32位
	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{device}}
	m := service.NewMatcherService(registry, testLogger())

	identity := &model.DeviceIdentity{
		FullCoreID: strings.Repeat("ab", 16) + "ffffffff", // 长ID前32位即core_id
		Signals:    matchedSignals(),
	}
	result, err := m.Match(context.Background(), identity)
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if !result.Match || result.MatchType != model.MatchTypeExact {
		t.Errorf("fullCoreId 前32位应可精确命中，得到 %+v", result)
	}
}

func TestMatchFuzzyCore(t *testing.T) {
	tests := []struct {
		name           string
		signals        model.DeviceSignals
		wantConfidence int
		wantMatches    int
	}{
		{
			name: "三项核心命中",
			signals: model.DeviceSignals{
				Audio: "audio-1", CanvasGeometry: "canvas-1", WebglRenderer: "webgl-1",
				Math: "math-other",
			},
			wantConfidence: 70,
			wantMatches:    3,
		},
		{
			name: "四项核心命中",
			signals: model.DeviceSignals{
				Audio: "audio-1", CanvasGeometry: "canvas-1", WebglRenderer: "webgl-1",
				Math: "math-1",
			},
			wantConfidence: 80,
			wantMatches:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
			m := service.NewMatcherService(registry, testLogger())

			identity := &model.DeviceIdentity{CoreID: "core-miss", Signals: tt.signals}
			result, err := m.Match(context.Background(), identity)
			if err != nil {
				t.Fatalf("Match返回错误: %v", err)
			}
			if !result.Match || result.MatchType != model.MatchTypeFuzzyCore {
				t.Fatalf("期望fuzzy_core命中，得到 %+v", result)
			}
			if result.Confidence != tt.wantConfidence {
				t.Errorf("置信度 = %d，期望 %d", result.Confidence, tt.wantConfidence)
			}
			if result.CoreMatches != tt.wantMatches {
				t.Errorf("core_matches = %d，期望 %d", result.CoreMatches, tt.wantMatches)
			}
			if result.VisitCount != 5 {
				t.Errorf("visit_count 应为更新后的5，得到 %d", result.VisitCount)
			}
		})
	}
}

func TestMatchFuzzyEnv(t *testing.T) {
	// 核心2/4命中的基准信号
	twoCore := model.DeviceSignals{
		Audio: "audio-1", CanvasGeometry: "canvas-1",
		WebglRenderer: "webgl-other", Math: "math-other",
	}

	t.Run("环境3/4命中", func(t *testing.T) {
		signals := twoCore
		signals.Screen = "2560x1440"
		signals.Timezone = "Asia/Shanghai"
		signals.Platform = "MacIntel"
		signals.HardwareConcurrency = 4 // 不同

		registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
		m := service.NewMatcherService(registry, testLogger())
		result, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-miss", Signals: signals})
		if err != nil {
			t.Fatalf("Match返回错误: %v", err)
		}
		if !result.Match || result.MatchType != model.MatchTypeFuzzyEnv {
			t.Fatalf("期望fuzzy_env命中，得到 %+v", result)
		}
		if result.Confidence != 65 {
			t.Errorf("置信度 = %d，期望 65", result.Confidence)
		}
		if result.EnvSimilarity != 0.75 {
			t.Errorf("env_similarity = %v，期望 0.75", result.EnvSimilarity)
		}
	})

	t.Run("环境4/4命中", func(t *testing.T) {
		signals := twoCore
		signals.Screen = "2560x1440"
		signals.Timezone = "Asia/Shanghai"
		signals.Platform = "MacIntel"
		signals.HardwareConcurrency = 8

		registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
		m := service.NewMatcherService(registry, testLogger())
		result, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-miss", Signals: signals})
		if err != nil {
			t.Fatalf("Match返回错误: %v", err)
		}
		if result.MatchType != model.MatchTypeFuzzyEnv || result.Confidence != 70 {
			t.Errorf("期望fuzzy_env置信度70，得到 %+v", result)
		}
	})

	t.Run("环境2/4不足以命中", func(t *testing.T) {
		signals := twoCore
		signals.Screen = "2560x1440"
		signals.Timezone = "Asia/Shanghai"
		signals.Platform = "Win32"
		signals.HardwareConcurrency = 4

		registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
		m := service.NewMatcherService(registry, testLogger())
		result, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-miss", Signals: signals})
		if err != nil {
			t.Fatalf("Match返回错误: %v", err)
		}
		if result.Match {
			t.Errorf("相似度0.5不应命中，得到 %+v", result)
		}
		if result.MatchType != model.MatchTypeNew || result.Confidence != 0 {
			t.Errorf("未命中应返回new决策，得到 %+v", result)
		}
	})
}

func TestMatchPrefersHighestScore(t *testing.T) {
	// 设备1只能拿到70分（3/4核心），设备2拿到80分（4/4核心）
	d1 := storedDevice(1)
	d1.Math = "math-other"
	d2 := storedDevice(2)
	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{d1, d2}}
	m := service.NewMatcherService(registry, testLogger())

	result, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-miss", Signals: matchedSignals()})
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if result.DeviceID != "device-2" || result.Confidence != 80 {
		t.Errorf("应选中分数更高的候选，得到 %+v", result)
	}
}

func TestMatchTieKeepsFirstCandidate(t *testing.T) {
	// 两个候选同为3/4核心命中（70分），保留先遍历到的
	d1 := storedDevice(1)
	d1.Math = "math-other"
	d2 := storedDevice(2)
	d2.Math = "math-other"
	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{d1, d2}}
	m := service.NewMatcherService(registry, testLogger())

	signals := matchedSignals()
	signals.Math = "math-nobody"
	result, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-miss", Signals: signals})
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if result.DeviceID != "device-1" {
		t.Errorf("同分应保留先遍历到的候选，得到 %s", result.DeviceID)
	}
}

func TestMatchLogsDecision(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	registry := &fakeRegistry{devices: []*model.DeviceFingerprint{storedDevice(1)}}
	m := service.NewMatcherService(registry, logger)

	if _, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-1", Signals: matchedSignals()}); err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "device-1") || !strings.Contains(out, "精确命中") {
		t.Errorf("匹配决策未记入日志: %s", out)
	}
}

func TestMatchNewDevice(t *testing.T) {
	registry := &fakeRegistry{}
	m := service.NewMatcherService(registry, testLogger())

	result, err := m.Match(context.Background(), &model.DeviceIdentity{CoreID: "core-x", Signals: matchedSignals()})
	if err != nil {
		t.Fatalf("Match返回错误: %v", err)
	}
	if result.Match || result.MatchType != model.MatchTypeNew || result.Confidence != 0 || result.DeviceID != "" {
		t.Errorf("空注册表应返回new决策，得到 %+v", result)
	}
	if len(registry.touched) != 0 {
		t.Errorf("未命中不应刷新任何设备: %v", registry.touched)
	}
}
