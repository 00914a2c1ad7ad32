package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// ErrEventRowNotFound 目标会话的事件行不存在（可能尚未写入）
var ErrEventRowNotFound = errors.New("emergency event row not found")

// EmergencyEventsRepository 紧急事件仓库（对应 emergency_events 表）
// 终态会话（Resolved/Dismissed）在关闭时写入一行
type EmergencyEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmergencyEventsRepository 创建紧急事件仓库
func NewEmergencyEventsRepository(db *sql.DB, logger *zap.Logger) *EmergencyEventsRepository {
	return &EmergencyEventsRepository{
		db:     db,
		logger: logger,
	}
}

// EmergencyEventRow 紧急事件行
type EmergencyEventRow struct {
	SessionID       string     `json:"session_id" db:"session_id"`
	EventType       string     `json:"event_type" db:"event_type"`
	Severity        string     `json:"severity" db:"severity"`
	Confidence      int        `json:"confidence" db:"confidence"`
	Symptoms        string     `json:"symptoms" db:"symptoms"` // JSONB
	ShouldEscalate  bool       `json:"should_escalate" db:"should_escalate"`
	State           string     `json:"state" db:"state"`
	Resolution      string     `json:"resolution" db:"resolution"`
	Location        *string    `json:"location,omitempty" db:"location"`               // JSONB
	DispatchResult  *string    `json:"dispatch_result,omitempty" db:"dispatch_result"` // JSONB
	NotifiedTargets string     `json:"notified_targets" db:"notified_targets"`         // JSONB
	OpenedAt        time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// SaveSession 持久化终态会话（实现 escalation.EventStore）
func (r *EmergencyEventsRepository) SaveSession(ctx context.Context, session models.EscalationSession, result *models.DispatchResult) error {
	symptomsJSON, err := json.Marshal(session.Event.Symptoms)
	if err != nil {
		return fmt.Errorf("failed to marshal symptoms: %w", err)
	}

	var locationJSON *string
	if session.Event.Location != nil {
		data, err := json.Marshal(session.Event.Location)
		if err != nil {
			return fmt.Errorf("failed to marshal location: %w", err)
		}
		s := string(data)
		locationJSON = &s
	}

	var dispatchJSON *string
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal dispatch result: %w", err)
		}
		s := string(data)
		dispatchJSON = &s
	}

	now := time.Now()
	query := `
		INSERT INTO emergency_events (
			session_id, event_type, severity, confidence, symptoms,
			should_escalate, state, resolution, location, dispatch_result,
			notified_targets, opened_at, closed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		session.SessionID,
		string(session.Event.Type),
		string(session.Event.Severity),
		session.Event.Confidence,
		string(symptomsJSON),
		session.Event.ShouldEscalate,
		string(session.State),
		session.Resolution,
		locationJSON,
		dispatchJSON,
		"[]",
		session.OpenedAt,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert emergency event: %w", err)
	}

	return nil
}

// UpdateNotifiedTargets 更新逐个联系人的通知结果（联系人批次完成后调用）
// 会话行尚未写入时返回 ErrEventRowNotFound，由调用方决定重试
func (r *EmergencyEventsRepository) UpdateNotifiedTargets(ctx context.Context, sessionID string, outcomes []models.ContactOutcome) error {
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal contact outcomes: %w", err)
	}

	query := `
		UPDATE emergency_events
		SET notified_targets = $1
		WHERE session_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, string(outcomesJSON), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update notified targets: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check notified targets update: %w", err)
	}
	if affected == 0 {
		// 联系人扇出可能先于终态会话行的 INSERT 完成
		return fmt.Errorf("no event row for session %s: %w", sessionID, ErrEventRowNotFound)
	}

	return nil
}

// ListEvents 查询历史事件（按打开时间倒序，分页）
func (r *EmergencyEventsRepository) ListEvents(ctx context.Context, page, size int) ([]*EmergencyEventRow, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	countQuery := `SELECT COUNT(*) FROM emergency_events`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count emergency events: %w", err)
	}

	query := `
		SELECT
			session_id, event_type, severity, confidence, symptoms,
			should_escalate, state, resolution, location, dispatch_result,
			notified_targets, opened_at, closed_at, created_at
		FROM emergency_events
		ORDER BY opened_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list emergency events: %w", err)
	}
	defer rows.Close()

	var events []*EmergencyEventRow
	for rows.Next() {
		var row EmergencyEventRow
		var location, dispatch sql.NullString
		var closedAt sql.NullTime

		err := rows.Scan(
			&row.SessionID,
			&row.EventType,
			&row.Severity,
			&row.Confidence,
			&row.Symptoms,
			&row.ShouldEscalate,
			&row.State,
			&row.Resolution,
			&location,
			&dispatch,
			&row.NotifiedTargets,
			&row.OpenedAt,
			&closedAt,
			&row.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan emergency event: %w", err)
		}

		if location.Valid {
			row.Location = &location.String
		}
		if dispatch.Valid {
			row.DispatchResult = &dispatch.String
		}
		if closedAt.Valid {
			row.ClosedAt = &closedAt.Time
		}
		events = append(events, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate emergency events: %w", err)
	}

	return events, total, nil
}

// GetEvent 按会话ID获取事件
func (r *EmergencyEventsRepository) GetEvent(ctx context.Context, sessionID string) (*EmergencyEventRow, error) {
	query := `
		SELECT
			session_id, event_type, severity, confidence, symptoms,
			should_escalate, state, resolution, location, dispatch_result,
			notified_targets, opened_at, closed_at, created_at
		FROM emergency_events
		WHERE session_id = $1
	`

	var row EmergencyEventRow
	var location, dispatch sql.NullString
	var closedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&row.SessionID,
		&row.EventType,
		&row.Severity,
		&row.Confidence,
		&row.Symptoms,
		&row.ShouldEscalate,
		&row.State,
		&row.Resolution,
		&location,
		&dispatch,
		&row.NotifiedTargets,
		&row.OpenedAt,
		&closedAt,
		&row.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("emergency event not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to query emergency event: %w", err)
	}

	if location.Valid {
		row.Location = &location.String
	}
	if dispatch.Valid {
		row.DispatchResult = &dispatch.String
	}
	if closedAt.Valid {
		row.ClosedAt = &closedAt.Time
	}

	return &row, nil
}
