package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// ContactsRepository 紧急联系人仓库（对应 emergency_contacts 表，引擎只读）
type ContactsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewContactsRepository 创建联系人仓库
func NewContactsRepository(db *sql.DB, logger *zap.Logger) *ContactsRepository {
	return &ContactsRepository{
		db:     db,
		logger: logger,
	}
}

// ListContacts 按优先级返回所有联系人（实现 notifier.ContactSource）
func (r *ContactsRepository) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	query := `
		SELECT contact_id, name, phone, priority
		FROM emergency_contacts
		ORDER BY priority ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.EmergencyContact
	for rows.Next() {
		var contact models.EmergencyContact
		err := rows.Scan(
			&contact.ContactID,
			&contact.Name,
			&contact.Phone,
			&contact.Priority,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emergency contacts: %w", err)
	}

	return contacts, nil
}
