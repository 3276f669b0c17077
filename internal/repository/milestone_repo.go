package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	contractmq "customer-portal/contracts/mq"
	"customer-portal/internal/model"
	"customer-portal/pkg/outbox"
	"customer-portal/pkg/trace"
)

type MilestoneRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
}

func NewMilestoneRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository) *MilestoneRepository {
	return &MilestoneRepository{db: db, outbox: outboxRepo}
}

// UpdateStatus changes a milestone's status and records a
// milestone.status_changed outbox event in the same transaction.
// doneDate is only written when status is done.
func (r *MilestoneRepository) UpdateStatus(ctx context.Context, milestoneID string, status model.MilestoneStatus, doneDate *time.Time) (*model.MilestoneChange, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var change model.MilestoneChange
	m := &change.Milestone
	err = tx.QueryRow(ctx, `
        SELECT m.status, p.customer_id
        FROM milestones m
        JOIN projects p ON p.id = m.project_id
        WHERE m.id = $1
        FOR UPDATE OF m
    `, milestoneID).Scan(&change.PreviousStatus, &change.CustomerID)
	if err != nil {
		return nil, notFound(err)
	}

	if status == model.MilestoneDone && doneDate == nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		doneDate = &today
	}
	if status != model.MilestoneDone {
		doneDate = nil
	}

	err = tx.QueryRow(ctx, `
        UPDATE milestones
        SET status = $2, done_date = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING id, project_id, key, title, status, planned_date, done_date, note, sort_order, created_at, updated_at
    `, milestoneID, status, doneDate).Scan(&m.ID, &m.ProjectID, &m.Key, &m.Title, &m.Status, &m.PlannedDate,
		&m.DoneDate, &m.Note, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}

	if change.PreviousStatus != status {
		if err := r.insertEvent(ctx, tx, &change); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit milestone update: %w", err)
	}
	return &change, nil
}

func (r *MilestoneRepository) insertEvent(ctx context.Context, tx pgx.Tx, change *model.MilestoneChange) error {
	payload := contractmq.MilestoneStatusChangedPayload{
		EventID:        uuid.NewString(),
		MilestoneID:    change.Milestone.ID,
		ProjectID:      change.Milestone.ProjectID,
		CustomerID:     change.CustomerID,
		MilestoneKey:   change.Milestone.Key,
		PreviousStatus: string(change.PreviousStatus),
		Status:         string(change.Milestone.Status),
		PlannedDate:    change.Milestone.PlannedDate,
		ChangedAt:      change.Milestone.UpdatedAt,
		TraceID:        trace.FromContext(ctx),
	}
	_, err := outbox.InsertEventInTx(ctx, tx, r.outbox, "milestone", change.Milestone.ID,
		contractmq.RoutingKeyMilestoneStatusChanged, payload)
	return err
}
