package models

// EmergencyContact 紧急联系人（对应 emergency_contacts 表，引擎只读）
type EmergencyContact struct {
	ContactID string `json:"contact_id" db:"contact_id"`
	Name      string `json:"name" db:"name"`
	Phone     string `json:"phone" db:"phone"`
	Priority  int    `json:"priority" db:"priority"`
}

// ContactOutcome 单个联系人的通知结果（逐个记录，互不影响）
type ContactOutcome struct {
	Contact EmergencyContact `json:"contact"`
	Sent    bool             `json:"sent"`
	Error   string           `json:"error,omitempty"`
}

// DispatchResult 调度结果
// PrimaryAttempted 为 true 时表示走了紧急服务主通道；主通道失败时 Fallback 必定非空，
// 告警不会被静默丢弃
type DispatchResult struct {
	Auto             bool                  `json:"auto"`
	PrimaryAttempted bool                  `json:"primary_attempted"`
	PrimarySucceeded bool                  `json:"primary_succeeded"`
	Fallback         *FallbackInstructions `json:"fallback,omitempty"`
}

// FallbackInstructions 主通道失败时返回的人工处置指引
type FallbackInstructions struct {
	Instructions []string           `json:"instructions"`
	Contacts     []EmergencyContact `json:"contacts"`
}
