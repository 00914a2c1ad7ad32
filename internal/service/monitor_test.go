package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vital-guardian/internal/cache"
	"vital-guardian/internal/config"
	"vital-guardian/internal/detector"
	"vital-guardian/internal/escalation"
	"vital-guardian/internal/metrics"
	"vital-guardian/internal/models"
)

// noopConfirmer 测试用空确认协作方
type noopConfirmer struct{}

func (noopConfirmer) PresentEvent(_ context.Context, _ models.EscalationSession) {}

// noopDispatcher 测试用空调度器
type noopDispatcher struct{}

func (noopDispatcher) Dispatch(_ context.Context, _ models.EscalationSession, auto bool) models.DispatchResult {
	return models.DispatchResult{Auto: auto}
}

// noopAudit 测试用空审计落地
type noopAudit struct{}

func (noopAudit) Append(_ context.Context, _ models.AuditRecord) error {
	return nil
}

func newTestMonitor(t *testing.T) (*Monitor, *metrics.Store, *escalation.Controller, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Cache.StatusKeyPrefix = "vital-guardian:status:"
	cfg.Cache.AlertKeyPrefix = "vital-guardian:alert:"
	cfg.Cache.StatusTTL = 60
	cfg.Cache.AlertTTL = 300
	cfg.Guardian.DetectIntervalSec = 30
	cfg.Guardian.BehavioralKeywords = []string{"want to die", "hurt myself"}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	logger := zap.NewNop()
	store := metrics.NewStore(10, logger)
	statusCache := cache.NewStatusCache(cfg, redisClient, logger)
	controller := escalation.NewController(time.Minute, noopConfirmer{}, noopDispatcher{}, noopAudit{}, nil, logger)
	monitor := NewMonitor(
		cfg,
		store,
		detector.NewDetector(logger),
		detector.NewBehavioralDetector(cfg.Guardian.BehavioralKeywords, logger),
		controller,
		statusCache,
		logger,
	)
	return monitor, store, controller, mr
}

func TestRunCycleWithoutReadings(t *testing.T) {
	monitor, _, controller, _ := newTestMonitor(t)

	monitor.runCycle(context.Background())

	assert.Nil(t, controller.Active())
}

func TestRunCycleCachesSnapshot(t *testing.T) {
	monitor, store, controller, mr := newTestMonitor(t)

	hr := 72
	store.Ingest(models.Reading{
		Domain:    models.DomainCardiac,
		Cardiac:   &models.CardiacSample{HeartRate: &hr},
		Timestamp: time.Now(),
	})

	monitor.runCycle(context.Background())

	// 正常读数：快照进缓存，不开会话
	assert.True(t, mr.Exists("vital-guardian:status:latest"))
	assert.Nil(t, controller.Active())
	assert.False(t, mr.Exists("vital-guardian:alert:active"))
}

func TestRunCycleOpensSessionOnAnomaly(t *testing.T) {
	monitor, store, controller, mr := newTestMonitor(t)

	hr := 35
	store.Ingest(models.Reading{
		Domain:    models.DomainCardiac,
		Cardiac:   &models.CardiacSample{HeartRate: &hr},
		Timestamp: time.Now(),
	})

	monitor.runCycle(context.Background())

	active := controller.Active()
	require.NotNil(t, active)
	assert.Equal(t, models.EmergencyCardiac, active.Event.Type)
	assert.Equal(t, models.SeverityCritical, active.Event.Severity)
	assert.True(t, mr.Exists("vital-guardian:alert:active"))
}

func TestRunCycleSubmitsBehavioralPattern(t *testing.T) {
	monitor, store, controller, _ := newTestMonitor(t)

	text := "I just want to die"
	store.Ingest(models.Reading{
		Domain:    models.DomainBehavioral,
		Text:      &text,
		Timestamp: time.Now(),
	})

	monitor.runCycle(context.Background())

	active := controller.Active()
	require.NotNil(t, active)
	assert.Equal(t, models.EmergencyMental, active.Event.Type)
}

func TestRunCycleMergesIntoActiveSession(t *testing.T) {
	monitor, store, controller, _ := newTestMonitor(t)

	hr := 35
	spo2 := 80
	store.Ingest(models.Reading{
		Domain:    models.DomainCardiac,
		Cardiac:   &models.CardiacSample{HeartRate: &hr},
		Timestamp: time.Now(),
	})
	monitor.runCycle(context.Background())

	first := controller.Active()
	require.NotNil(t, first)

	store.Ingest(models.Reading{
		Domain:    models.DomainRespiratory,
		Breath:    &models.RespiratorySample{SpO2: &spo2},
		Timestamp: time.Now(),
	})
	monitor.runCycle(context.Background())

	// 第二个周期的检测结果合并进同一个会话
	second := controller.Active()
	require.NotNil(t, second)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Greater(t, len(second.Event.Symptoms), len(first.Event.Symptoms))
}
