package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"customer-portal/internal/model"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// FindContact returns the customer's first name and phone. A customer
// without a phone on file is reported as ErrNotFound.
func (r *CustomerRepository) FindContact(ctx context.Context, customerID string) (*model.Contact, error) {
	query := `
        SELECT id, first_name, phone
        FROM customers
        WHERE id = $1
    `
	var (
		c     model.Contact
		phone *string
	)
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&c.CustomerID, &c.FirstName, &phone); err != nil {
		return nil, notFound(err)
	}
	if phone == nil || *phone == "" {
		return nil, ErrNotFound
	}
	c.Phone = *phone
	return &c, nil
}

// FindIDByUserID maps an auth user to their customer row.
func (r *CustomerRepository) FindIDByUserID(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM customers WHERE user_id = $1`, userID).Scan(&id)
	if err != nil {
		return "", notFound(err)
	}
	return id, nil
}

// ListReminderTargets returns projects whose installation is on day, with
// their customer's first name and phone (which may be missing).
func (r *CustomerRepository) ListReminderTargets(ctx context.Context, day time.Time) ([]model.ReminderTarget, error) {
	query := `
        SELECT p.id, p.customer_id, c.first_name, c.phone, p.installation_date
        FROM projects p
        JOIN customers c ON c.id = p.customer_id
        WHERE p.installation_date = $1::date
        ORDER BY p.id
    `
	rows, err := r.db.Query(ctx, query, day.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder targets: %w", err)
	}
	defer rows.Close()

	var targets []model.ReminderTarget
	for rows.Next() {
		var t model.ReminderTarget
		if err := rows.Scan(&t.ProjectID, &t.CustomerID, &t.FirstName, &t.Phone, &t.InstallationDate); err != nil {
			return nil, fmt.Errorf("failed to scan reminder target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}
