// Package escalation 提供升级会话状态机
//
// 状态：Idle → Suspected → {Confirmed | Dismissed} → Escalating → Resolved
// 不变式：同一时刻最多一个非终态会话；活跃期间到达的新检测合并进现有会话
// fail-safe：定时器取消与触发竞争时按已升级处理，绝不静默丢弃
package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// Confirmer 确认协作方（UI 层适配器）
// 引擎只调用该接口呈现事件，终局决定通过 Confirm/Dismiss 回流
type Confirmer interface {
	PresentEvent(ctx context.Context, session models.EscalationSession)
}

// Dispatcher 调度器（Notifier Dispatch 的入口）
// 返回时主通道结果已确定；联系人扇出在后台进行，控制器不等待
type Dispatcher interface {
	Dispatch(ctx context.Context, session models.EscalationSession, auto bool) models.DispatchResult
}

// AuditSink 审计落地（每次状态迁移追加一条，错误只记录日志不中断状态机）
type AuditSink interface {
	Append(ctx context.Context, record models.AuditRecord) error
}

// EventStore 终态会话持久化
type EventStore interface {
	SaveSession(ctx context.Context, session models.EscalationSession, result *models.DispatchResult) error
}

// Controller 升级控制器
type Controller struct {
	mu     sync.Mutex
	active *models.EscalationSession
	timer  *graceTimer

	grace      time.Duration
	confirmer  Confirmer
	dispatcher Dispatcher
	audit      AuditSink
	store      EventStore
	logger     *zap.Logger
}

// NewController 创建升级控制器
func NewController(
	grace time.Duration,
	confirmer Confirmer,
	dispatcher Dispatcher,
	audit AuditSink,
	store EventStore,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		grace:      grace,
		confirmer:  confirmer,
		dispatcher: dispatcher,
		audit:      audit,
		store:      store,
		logger:     logger,
	}
}

// Submit 提交一个检测到的事件
//
// 已有活跃会话时执行合并：追加症状、严重程度取较大值、置信度取较大值，
// 不开启第二个会话或定时器。否则开启新会话（Suspected）并启动宽限期定时器，
// 异步呈现给确认协作方
func (c *Controller) Submit(ctx context.Context, event models.EmergencyEvent) string {
	c.mu.Lock()

	if c.active != nil && !c.active.State.Terminal() {
		c.mergeLocked(ctx, event)
		id := c.active.SessionID
		c.mu.Unlock()
		return id
	}

	now := time.Now()
	session := &models.EscalationSession{
		SessionID:       uuid.New().String(),
		Event:           event,
		State:           models.StateSuspected,
		OpenedAt:        now,
		ConfirmDeadline: now.Add(c.grace),
	}
	c.active = session
	c.appendAudit(ctx, session.SessionID, "idle", string(models.StateSuspected), models.CauseDetected)

	sessionID := session.SessionID
	c.timer = startGraceTimer(c.grace, func() {
		c.onGraceExpired(sessionID)
	})

	snapshot := *session
	c.mu.Unlock()

	c.logger.Info("Escalation session opened",
		zap.String("session_id", snapshot.SessionID),
		zap.String("event_type", string(snapshot.Event.Type)),
		zap.String("severity", string(snapshot.Event.Severity)),
		zap.Bool("should_escalate", snapshot.Event.ShouldEscalate),
		zap.Time("confirm_deadline", snapshot.ConfirmDeadline),
	)

	// 异步呈现，不阻塞检测循环
	go c.confirmer.PresentEvent(ctx, snapshot)

	return sessionID
}

// mergeLocked 将新事件合并进活跃会话（调用方持锁）
func (c *Controller) mergeLocked(ctx context.Context, event models.EmergencyEvent) {
	active := &c.active.Event

	for _, symptom := range event.Symptoms {
		if !containsString(active.Symptoms, symptom) {
			active.Symptoms = append(active.Symptoms, symptom)
		}
	}
	active.Severity = models.MaxSeverity(active.Severity, event.Severity)
	if event.Confidence > active.Confidence {
		active.Confidence = event.Confidence
	}
	if event.ShouldEscalate {
		active.ShouldEscalate = true
	}
	if active.Severity == models.SeverityCritical {
		active.ShouldEscalate = true
	}
	if active.Location == nil && event.Location != nil {
		active.Location = event.Location
	}
	active.RecommendedAction = mergeRecommendedAction(active.Severity, active.RecommendedAction)

	c.appendAudit(ctx, c.active.SessionID, string(c.active.State), string(c.active.State), models.CauseMerged)

	c.logger.Info("Detection merged into active session",
		zap.String("session_id", c.active.SessionID),
		zap.String("severity", string(active.Severity)),
		zap.Int("confidence", active.Confidence),
		zap.Int("symptom_count", len(active.Symptoms)),
	)
}

// Confirm 用户确认（Suspected → Confirmed，取消定时器，立即调度）
// 定时器已开始调度时取消被拒绝，按已升级处理（调度由定时器路径完成）
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()

	if c.active == nil || c.active.State.Terminal() {
		c.mu.Unlock()
		return models.ErrNoActiveSession
	}
	if c.active.State != models.StateSuspected {
		// 已确认或已在升级，无需重复处理
		c.mu.Unlock()
		return nil
	}
	if c.timer != nil && !c.timer.Cancel() {
		// fail-safe：定时器已开始调度，视为已升级
		c.mu.Unlock()
		c.logger.Warn("Confirm raced with grace timer, treating as escalated")
		return nil
	}

	c.transitionLocked(ctx, models.StateConfirmed, models.CauseUserConfirmed)
	sessionID := c.active.SessionID
	c.mu.Unlock()

	c.runDispatch(ctx, sessionID, false)
	return nil
}

// Dismiss 用户驳回（Suspected → Dismissed，终态，不发生任何调度）
func (c *Controller) Dismiss(ctx context.Context) error {
	c.mu.Lock()

	if c.active == nil || c.active.State.Terminal() {
		c.mu.Unlock()
		return models.ErrNoActiveSession
	}
	if c.active.State != models.StateSuspected {
		c.mu.Unlock()
		return models.ErrSessionNotCancellable
	}
	if c.timer != nil && !c.timer.Cancel() {
		// fail-safe：定时器已开始调度，驳回被拒绝
		c.mu.Unlock()
		c.logger.Warn("Dismiss raced with grace timer, escalation proceeds")
		return models.ErrSessionNotCancellable
	}

	c.active.Resolution = "dismissed by user"
	c.transitionLocked(ctx, models.StateDismissed, models.CauseUserDismissed)
	session := *c.active
	c.mu.Unlock()

	c.persistSession(ctx, session, nil)
	return nil
}

// TriggerManual 手动触发紧急事件
// 无活跃会话时绕过检测器直接创建 Confirmed 会话并立即调度；
// 已有 Suspected 会话时等价于确认它（单会话不变式集中保证）
func (c *Controller) TriggerManual(ctx context.Context) (string, error) {
	c.mu.Lock()

	if c.active != nil && !c.active.State.Terminal() {
		id := c.active.SessionID
		c.mu.Unlock()
		return id, c.Confirm(ctx)
	}

	now := time.Now()
	session := &models.EscalationSession{
		SessionID: uuid.New().String(),
		Event: models.EmergencyEvent{
			Type:              models.EmergencyPhysical,
			Confidence:        100,
			Severity:          models.SeverityCritical,
			Symptoms:          []string{"manually triggered"},
			RecommendedAction: "Call emergency services immediately",
			ShouldEscalate:    true,
			DetectedAt:        now,
		},
		State:    models.StateConfirmed,
		OpenedAt: now,
	}
	c.active = session
	c.timer = nil
	c.appendAudit(ctx, session.SessionID, "idle", string(models.StateConfirmed), models.CauseManualTrigger)
	sessionID := session.SessionID
	c.mu.Unlock()

	c.logger.Info("Manual emergency triggered",
		zap.String("session_id", sessionID),
	)

	c.runDispatch(ctx, sessionID, false)
	return sessionID, nil
}

// Active 返回当前活跃会话的副本（无活跃会话返回 nil）
func (c *Controller) Active() *models.EscalationSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.State.Terminal() {
		return nil
	}
	session := *c.active
	return &session
}

// onGraceExpired 宽限期到期回调
// shouldEscalate=true：Escalating，带 automatic 标记调度
// shouldEscalate=false：Resolved，不调度，按无人响应的低严重度事件记录
func (c *Controller) onGraceExpired(sessionID string) {
	ctx := context.Background()

	c.mu.Lock()
	if c.active == nil || c.active.SessionID != sessionID || c.active.State != models.StateSuspected {
		// 会话已被确认/驳回，空操作
		c.mu.Unlock()
		return
	}

	if c.active.Event.ShouldEscalate {
		c.transitionLocked(ctx, models.StateEscalating, models.CauseTimerExpired)
		c.mu.Unlock()

		c.logger.Warn("Grace period elapsed without response, escalating automatically",
			zap.String("session_id", sessionID),
		)
		c.runDispatch(ctx, sessionID, true)
		return
	}

	c.active.Resolution = "unattended, below escalation threshold"
	c.transitionLocked(ctx, models.StateResolved, models.CauseUnattendedLow)
	session := *c.active
	c.mu.Unlock()

	c.logger.Info("Grace period elapsed for non-escalating event, resolved without dispatch",
		zap.String("session_id", sessionID),
	)
	c.persistSession(ctx, session, nil)
}

// runDispatch 执行调度并关闭会话（调度期间不持锁）
func (c *Controller) runDispatch(ctx context.Context, sessionID string, auto bool) {
	c.mu.Lock()
	if c.active == nil || c.active.SessionID != sessionID || c.active.State.Terminal() {
		c.mu.Unlock()
		return
	}
	session := *c.active
	c.mu.Unlock()

	result := c.dispatcher.Dispatch(ctx, session, auto)

	c.mu.Lock()
	if c.active == nil || c.active.SessionID != sessionID || c.active.State.Terminal() {
		c.mu.Unlock()
		return
	}

	cause := models.CauseDispatchDone
	switch {
	case !result.PrimaryAttempted:
		c.active.Resolution = "contacts notified"
	case result.PrimarySucceeded:
		c.active.Resolution = "emergency services dispatched"
	default:
		// 主通道失败：降级为人工指引 + 联系人列表，告警不丢弃
		c.active.Resolution = "dispatch failed, manual fallback issued"
		cause = models.CauseDispatchFailed
	}
	c.transitionLocked(ctx, models.StateResolved, cause)
	resolved := *c.active
	c.mu.Unlock()

	c.persistSession(ctx, resolved, &result)
}

// transitionLocked 执行状态迁移并写审计（调用方持锁）
func (c *Controller) transitionLocked(ctx context.Context, to models.SessionState, cause string) {
	from := c.active.State
	c.active.State = to
	c.appendAudit(ctx, c.active.SessionID, string(from), string(to), cause)

	c.logger.Info("Session state transition",
		zap.String("session_id", c.active.SessionID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("cause", cause),
	)
}

// appendAudit 追加审计记录（失败只记录日志，不影响状态机）
func (c *Controller) appendAudit(ctx context.Context, sessionID, from, to, cause string) {
	record := models.AuditRecord{
		Timestamp: time.Now(),
		SessionID: sessionID,
		FromState: from,
		ToState:   to,
		Cause:     cause,
	}
	if err := c.audit.Append(ctx, record); err != nil {
		c.logger.Error("Failed to append audit record",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// persistSession 持久化终态会话（失败只记录日志）
func (c *Controller) persistSession(ctx context.Context, session models.EscalationSession, result *models.DispatchResult) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveSession(ctx, session, result); err != nil {
		c.logger.Error("Failed to persist session",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func mergeRecommendedAction(severity models.Severity, current string) string {
	if severity == models.SeverityCritical {
		return "Call emergency services immediately"
	}
	return current
}
