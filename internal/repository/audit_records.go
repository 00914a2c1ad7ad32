package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// AuditRepository 审计记录仓库（对应 audit_records 表）
// 只追加：引擎侧没有更新或删除路径
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository 创建审计记录仓库
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append 追加一条审计记录（实现 escalation.AuditSink）
func (r *AuditRepository) Append(ctx context.Context, record models.AuditRecord) error {
	query := `
		INSERT INTO audit_records (timestamp, session_id, from_state, to_state, cause)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.Timestamp,
		record.SessionID,
		record.FromState,
		record.ToState,
		record.Cause,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// ListRecent 按时间倒序返回最近的审计记录（报表导出用）
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT record_id, timestamp, session_id, from_state, to_state, cause
		FROM audit_records
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var record models.AuditRecord
		err := rows.Scan(
			&record.RecordID,
			&record.Timestamp,
			&record.SessionID,
			&record.FromState,
			&record.ToState,
			&record.Cause,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}

	return records, nil
}
