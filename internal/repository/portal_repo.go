package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"customer-portal/internal/model"
)

// PortalRepository reads the customer-scoped portal data.
type PortalRepository struct {
	db *pgxpool.Pool
}

func NewPortalRepository(db *pgxpool.Pool) *PortalRepository {
	return &PortalRepository{db: db}
}

func (r *PortalRepository) Snapshot(ctx context.Context, customerID string) (*model.CustomerPortalView, error) {
	query := `
        SELECT customer_id, user_id, customer_number, first_name, last_name, email, referral_code,
               project_id, project_number, project_status, capacity_kwp, storage_kwh, module_count,
               module_model, inverter_model, orientation, annual_yield_kwh, installation_date,
               commissioning_date, total_kwh, total_co2_kg, total_revenue_eur, referral_count,
               referral_bonus_total
        FROM v_customer_portal
        WHERE customer_id = $1
        LIMIT 1
    `
	var v model.CustomerPortalView
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&v.CustomerID, &v.UserID, &v.CustomerNumber, &v.FirstName, &v.LastName, &v.Email, &v.ReferralCode,
		&v.ProjectID, &v.ProjectNumber, &v.ProjectStatus, &v.CapacityKWp, &v.StorageKWh, &v.ModuleCount,
		&v.ModuleModel, &v.InverterModel, &v.Orientation, &v.AnnualYieldKWh, &v.InstallationDate,
		&v.CommissioningDate, &v.TotalKWh, &v.TotalCO2Kg, &v.TotalRevenueEUR, &v.ReferralCount,
		&v.ReferralBonusTotal,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *PortalRepository) Milestones(ctx context.Context, projectID string) ([]model.Milestone, error) {
	query := `
        SELECT id, project_id, key, title, status, planned_date, done_date, note, sort_order, created_at, updated_at
        FROM milestones
        WHERE project_id = $1
        ORDER BY sort_order
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var out []model.Milestone
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Key, &m.Title, &m.Status, &m.PlannedDate, &m.DoneDate,
			&m.Note, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PortalRepository) Documents(ctx context.Context, projectID string) ([]model.Document, error) {
	query := `
        SELECT id, project_id, category, file_name, storage_path, mime_type, file_size, uploaded_at
        FROM documents
        WHERE project_id = $1
        ORDER BY uploaded_at DESC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Category, &d.FileName, &d.StoragePath, &d.MimeType,
			&d.FileSize, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Monitoring returns monthly production rows from since on, oldest first.
func (r *PortalRepository) Monitoring(ctx context.Context, projectID string, since time.Time) ([]model.MonitoringMonthly, error) {
	query := `
        SELECT id, project_id, month, production_kwh, feed_in_kwh, self_use_kwh, co2_saved_kg, revenue_eur, created_at
        FROM monitoring_monthly
        WHERE project_id = $1 AND month >= $2::date
        ORDER BY month
    `
	rows, err := r.db.Query(ctx, query, projectID, since.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring: %w", err)
	}
	defer rows.Close()

	var out []model.MonitoringMonthly
	for rows.Next() {
		var m model.MonitoringMonthly
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Month, &m.ProductionKWh, &m.FeedInKWh, &m.SelfUseKWh,
			&m.CO2SavedKg, &m.RevenueEUR, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monitoring row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PortalRepository) Referrals(ctx context.Context, customerID string) ([]model.Referral, error) {
	query := `
        SELECT id, referrer_id, referred_email, referred_customer, status, bonus_amount,
               converted_at, bonus_paid_at, created_at
        FROM referrals
        WHERE referrer_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	defer rows.Close()

	var out []model.Referral
	for rows.Next() {
		var ref model.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredEmail, &ref.ReferredCustomer, &ref.Status,
			&ref.BonusAmount, &ref.ConvertedAt, &ref.BonusPaidAt, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// UnreadNotifications returns the newest unread in-portal notifications.
func (r *PortalRepository) UnreadNotifications(ctx context.Context, customerID string, limit int) ([]model.Notification, error) {
	query := `
        SELECT id, customer_id, title, body, type, read_at, action_url, created_at
        FROM notifications
        WHERE customer_id = $1 AND read_at IS NULL
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.Title, &n.Body, &n.Type, &n.ReadAt, &n.ActionURL,
			&n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PortalRepository) InsertNps(ctx context.Context, nps *model.NpsResponse) error {
	query := `
        INSERT INTO nps_responses (customer_id, score, comment, trigger)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, nps.CustomerID, nps.Score, nps.Comment, nps.Trigger).Scan(&nps.ID, &nps.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert nps response: %w", err)
	}
	return nil
}

// MarkNotificationRead only touches the customer's own notification.
func (r *PortalRepository) MarkNotificationRead(ctx context.Context, customerID, notificationID string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE notifications
        SET read_at = COALESCE(read_at, NOW())
        WHERE id = $1 AND customer_id = $2
    `, notificationID, customerID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
