package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"customer-portal/internal/model"
)

type NotificationLogRepository struct {
	db *pgxpool.Pool
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Insert appends one delivery attempt. Rows are never updated.
func (r *NotificationLogRepository) Insert(ctx context.Context, log *model.NotificationLog) error {
	query := `
        INSERT INTO whatsapp_notifications
            (customer_id, project_id, phone, message, trigger, milestone_key, twilio_sid, status, sent_at, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		log.CustomerID,
		log.ProjectID,
		log.Phone,
		log.Message,
		log.Trigger,
		log.MilestoneKey,
		log.ProviderSID,
		log.Status,
		log.SentAt,
		log.Error,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification log: %w", err)
	}
	return nil
}

// ListByCustomer returns the newest attempts first.
func (r *NotificationLogRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.NotificationLog, error) {
	query := `
        SELECT id, customer_id, project_id, phone, message, trigger, milestone_key,
               twilio_sid, status, sent_at, error, created_at
        FROM whatsapp_notifications
        WHERE customer_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification log: %w", err)
	}
	defer rows.Close()

	var logs []model.NotificationLog
	for rows.Next() {
		var l model.NotificationLog
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.ProjectID, &l.Phone, &l.Message, &l.Trigger,
			&l.MilestoneKey, &l.ProviderSID, &l.Status, &l.SentAt, &l.Error, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
