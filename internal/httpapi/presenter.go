package httpapi

import (
	"context"

	"go.uber.org/zap"

	"vital-guardian/internal/cache"
	"vital-guardian/internal/models"
)

// AlertPresenter 实现 escalation.Confirmer
// 新会话写入告警缓存，前端轮询 status 端点即可看到待确认的事件，
// 终局决定通过 confirm/dismiss 端点回流
type AlertPresenter struct {
	statusCache *cache.StatusCache
	logger      *zap.Logger
}

// NewAlertPresenter 创建呈现器
func NewAlertPresenter(statusCache *cache.StatusCache, logger *zap.Logger) *AlertPresenter {
	return &AlertPresenter{
		statusCache: statusCache,
		logger:      logger,
	}
}

// PresentEvent 呈现待确认的事件
func (p *AlertPresenter) PresentEvent(ctx context.Context, session models.EscalationSession) {
	p.logger.Info("Presenting event for confirmation",
		zap.String("session_id", session.SessionID),
		zap.String("event_type", string(session.Event.Type)),
		zap.Time("confirm_deadline", session.ConfirmDeadline),
	)
	if err := p.statusCache.SetActiveAlert(ctx, session); err != nil {
		p.logger.Error("Failed to cache presented alert",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}
}
