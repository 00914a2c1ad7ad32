// Package notifier 提供紧急调度扇出功能
//
// 调度路径：
// - shouldEscalate 时先走紧急服务主通道；主通道失败或不可用时降级为
//   人工处置指引 + 联系人列表，告警绝不静默丢弃
// - 联系人通知并行扇出，单个联系人失败不影响其他联系人，结果逐个记录
// - 控制器只等待主通道结果，联系人批次在后台完成
package notifier

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// EmergencyAdapter 外部电话/短信集成（紧急调度适配器）
type EmergencyAdapter interface {
	PlaceEmergencyCall(ctx context.Context, session models.EscalationSession) error
	NotifyContact(ctx context.Context, contact models.EmergencyContact, session models.EscalationSession) error
}

// ContactSource 联系人来源（配置提供的只读数据）
type ContactSource interface {
	ListContacts(ctx context.Context) ([]models.EmergencyContact, error)
}

// BatchCallback 联系人批次完成后的回调（记录逐个结果）
type BatchCallback func(sessionID string, outcomes []models.ContactOutcome)

// Dispatcher 调度器
type Dispatcher struct {
	adapter  EmergencyAdapter
	contacts ContactSource
	onBatch  BatchCallback
	logger   *zap.Logger
}

// NewDispatcher 创建调度器
// onBatch 可为 nil（仅记录日志）
func NewDispatcher(adapter EmergencyAdapter, contacts ContactSource, onBatch BatchCallback, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		adapter:  adapter,
		contacts: contacts,
		onBatch:  onBatch,
		logger:   logger,
	}
}

// Dispatch 执行一次调度
// 返回时主通道结果已确定；联系人扇出在后台 goroutine 中继续
func (d *Dispatcher) Dispatch(ctx context.Context, session models.EscalationSession, auto bool) models.DispatchResult {
	result := models.DispatchResult{Auto: auto}

	contacts, err := d.contacts.ListContacts(ctx)
	if err != nil {
		// 联系人加载失败不阻止主通道
		d.logger.Error("Failed to load emergency contacts",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
		contacts = nil
	}

	if session.Event.ShouldEscalate {
		result.PrimaryAttempted = true
		if err := d.adapter.PlaceEmergencyCall(ctx, session); err != nil {
			d.logger.Error("Emergency call failed, falling back to manual instructions",
				zap.String("session_id", session.SessionID),
				zap.Bool("auto", auto),
				zap.Error(err),
			)
			result.Fallback = &models.FallbackInstructions{
				Instructions: manualInstructions(session.Event),
				Contacts:     contacts,
			}
		} else {
			result.PrimarySucceeded = true
			d.logger.Info("Emergency services dispatched",
				zap.String("session_id", session.SessionID),
				zap.Bool("auto", auto),
			)
		}
	}

	// 联系人扇出（控制器不等待）
	if len(contacts) > 0 {
		go d.notifyContacts(context.Background(), session, contacts)
	}

	return result
}

// notifyContacts 并行通知所有联系人，逐个记录结果
func (d *Dispatcher) notifyContacts(ctx context.Context, session models.EscalationSession, contacts []models.EmergencyContact) {
	outcomes := make([]models.ContactOutcome, len(contacts))
	var wg sync.WaitGroup

	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact models.EmergencyContact) {
			defer wg.Done()

			outcome := models.ContactOutcome{Contact: contact}
			if err := d.adapter.NotifyContact(ctx, contact, session); err != nil {
				outcome.Error = err.Error()
				d.logger.Error("Failed to notify contact",
					zap.String("session_id", session.SessionID),
					zap.String("contact", contact.Name),
					zap.Error(err),
				)
			} else {
				outcome.Sent = true
				d.logger.Info("Contact notified",
					zap.String("session_id", session.SessionID),
					zap.String("contact", contact.Name),
				)
			}
			outcomes[i] = outcome
		}(i, contact)
	}

	wg.Wait()

	if d.onBatch != nil {
		d.onBatch(session.SessionID, outcomes)
	}
}

// manualInstructions 主通道失败时的人工处置指引
func manualInstructions(event models.EmergencyEvent) []string {
	instructions := []string{
		"Automatic emergency dispatch is unavailable",
		"Call your local emergency number now",
	}
	if event.Location != nil {
		instructions = append(instructions,
			fmt.Sprintf("Report the location: %.5f, %.5f %s",
				event.Location.Lat, event.Location.Lon, event.Location.Address))
	}
	instructions = append(instructions,
		"Stay with the person until help arrives",
		"Notify the emergency contacts listed below",
	)
	return instructions
}
