package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/cache"
	"vital-guardian/internal/config"
	"vital-guardian/internal/detector"
	"vital-guardian/internal/escalation"
	"vital-guardian/internal/metrics"
)

// 行为模式检测扫描的近期条目数
const recentBehavioralEntries = 10

// Monitor 检测循环
//
// 每个周期：
// 1. 从指标存储取融合快照，镜像到 Redis 状态缓存
// 2. 跑规则检测和行为模式检测，命中的事件提交给升级控制器
// 3. 活跃会话镜像到 Redis 告警缓存（无活跃会话时清除）
type Monitor struct {
	config      *config.Config
	store       *metrics.Store
	detector    *detector.Detector
	behavioral  *detector.BehavioralDetector
	controller  *escalation.Controller
	statusCache *cache.StatusCache
	logger      *zap.Logger
}

// NewMonitor 创建检测循环
func NewMonitor(
	cfg *config.Config,
	store *metrics.Store,
	det *detector.Detector,
	behavioral *detector.BehavioralDetector,
	controller *escalation.Controller,
	statusCache *cache.StatusCache,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:      cfg,
		store:       store,
		detector:    det,
		behavioral:  behavioral,
		controller:  controller,
		statusCache: statusCache,
		logger:      logger,
	}
}

// Run 启动检测循环，阻塞直到 ctx 取消
func (m *Monitor) Run(ctx context.Context) {
	interval := time.Duration(m.config.Guardian.DetectIntervalSec) * time.Second
	m.logger.Info("Detection loop started",
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Detection loop stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// runCycle 执行一个检测周期
func (m *Monitor) runCycle(ctx context.Context) {
	snapshot := m.store.FusedSnapshot(recentBehavioralEntries)

	// 缓存失败只记录日志，不影响检测
	if err := m.statusCache.UpdateSnapshot(ctx, snapshot); err != nil {
		m.logger.Error("Failed to update status cache",
			zap.Error(err),
		)
	}

	if snapshot.Timestamp.IsZero() {
		// 尚无任何读数
		return
	}

	if event := m.detector.Detect(snapshot); event != nil {
		sessionID := m.controller.Submit(ctx, *event)
		m.logger.Info("Anomaly submitted to escalation controller",
			zap.String("session_id", sessionID),
			zap.String("event_type", string(event.Type)),
			zap.Int("confidence", event.Confidence),
		)
	}

	if event := m.behavioral.Scan(snapshot); event != nil {
		sessionID := m.controller.Submit(ctx, *event)
		m.logger.Info("Behavioral pattern submitted to escalation controller",
			zap.String("session_id", sessionID),
			zap.Int("confidence", event.Confidence),
		)
	}

	m.mirrorActiveAlert(ctx)
}

// mirrorActiveAlert 将活跃会话镜像到 Redis（供外部进程读取）
func (m *Monitor) mirrorActiveAlert(ctx context.Context) {
	if active := m.controller.Active(); active != nil {
		if err := m.statusCache.SetActiveAlert(ctx, *active); err != nil {
			m.logger.Error("Failed to cache active alert",
				zap.Error(err),
			)
		}
		return
	}
	if err := m.statusCache.ClearActiveAlert(ctx); err != nil {
		m.logger.Error("Failed to clear alert cache",
			zap.Error(err),
		)
	}
}
