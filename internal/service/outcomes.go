package service

import (
	"context"
	"errors"
	"time"

	"vital-guardian/internal/models"
	"vital-guardian/internal/repository"
)

// 联系人批次结果落库的重试参数
// 联系人扇出在后台进行，可能先于终态会话行的 INSERT 完成
const (
	outcomeRetryAttempts = 5
	outcomeRetryDelay    = 200 * time.Millisecond
)

// notifiedTargetsStore 联系人通知结果的落库目标
type notifiedTargetsStore interface {
	UpdateNotifiedTargets(ctx context.Context, sessionID string, outcomes []models.ContactOutcome) error
}

// recordContactOutcomes 持久化逐个联系人的通知结果
// 事件行尚不存在时（ErrEventRowNotFound）等待重试，直到 INSERT 完成或重试耗尽；
// 其他错误立即返回
func recordContactOutcomes(ctx context.Context, store notifiedTargetsStore, sessionID string, outcomes []models.ContactOutcome, delay time.Duration) error {
	var err error
	for attempt := 0; attempt < outcomeRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = store.UpdateNotifiedTargets(ctx, sessionID, outcomes)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrEventRowNotFound) {
			return err
		}
	}
	return err
}
