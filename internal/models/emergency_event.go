package models

import (
	"time"
)

// EmergencyType 紧急事件类型
type EmergencyType string

const (
	EmergencyCardiac     EmergencyType = "cardiac"
	EmergencyRespiratory EmergencyType = "respiratory"
	EmergencyMental      EmergencyType = "mental"
	EmergencyPhysical    EmergencyType = "physical"
	EmergencyOverdose    EmergencyType = "overdose"
	EmergencyStroke      EmergencyType = "stroke"
	EmergencySeizure     EmergencyType = "seizure"
	EmergencyFall        EmergencyType = "fall"
)

// Severity 严重程度（有序：low < medium < high < critical）
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank 严重程度排序值（用于 max 比较）
var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank 返回严重程度的排序值
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity 返回两个严重程度中较高的一个
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// EmergencyEvent 紧急事件（检测器输出，由 Escalation Controller 持有和修改）
type EmergencyEvent struct {
	Type              EmergencyType `json:"type"`
	Confidence        int           `json:"confidence"` // 0-100
	Severity          Severity      `json:"severity"`
	Symptoms          []string      `json:"symptoms"`
	RecommendedAction string        `json:"recommended_action"`
	ShouldEscalate    bool          `json:"should_escalate"`
	Location          *GeoPoint     `json:"location,omitempty"`
	DetectedAt        time.Time     `json:"detected_at"`
}

// SessionState 升级会话状态
type SessionState string

const (
	StateSuspected  SessionState = "suspected"
	StateConfirmed  SessionState = "confirmed"
	StateEscalating SessionState = "escalating"
	StateResolved   SessionState = "resolved"
	StateDismissed  SessionState = "dismissed"
)

// Terminal 是否为终态（终态会话不可再变更）
func (s SessionState) Terminal() bool {
	return s == StateResolved || s == StateDismissed
}

// EscalationSession 升级会话
// 不变式：系统中同一时刻最多存在一个非终态会话
type EscalationSession struct {
	SessionID       string         `json:"session_id"`
	Event           EmergencyEvent `json:"event"`
	State           SessionState   `json:"state"`
	OpenedAt        time.Time      `json:"opened_at"`
	ConfirmDeadline time.Time      `json:"confirm_deadline"`
	Resolution      string         `json:"resolution,omitempty"`
}
