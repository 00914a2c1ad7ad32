package models

import (
	"time"
)

// AuditRecord 审计记录（对应 audit_records 表，只追加，不修改不删除）
// 每次升级会话状态迁移写入一条
type AuditRecord struct {
	RecordID  int64     `json:"record_id" db:"record_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	SessionID string    `json:"session_id" db:"session_id"`
	FromState string    `json:"from_state" db:"from_state"`
	ToState   string    `json:"to_state" db:"to_state"`
	Cause     string    `json:"cause" db:"cause"`
}

// 状态迁移原因（写入审计记录的 cause 字段）
const (
	CauseDetected       = "event_detected"
	CauseMerged         = "event_merged"
	CauseUserConfirmed  = "user_confirmed"
	CauseUserDismissed  = "user_dismissed"
	CauseManualTrigger  = "manual_trigger"
	CauseTimerExpired   = "grace_timer_expired"
	CauseUnattendedLow  = "unattended_low_severity"
	CauseDispatchDone   = "dispatch_completed"
	CauseDispatchFailed = "dispatch_failed"
)
