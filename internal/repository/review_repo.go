package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"customer-portal/internal/model"
)

type ReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, stars, title, text, author_name, author_location, created_at_tp, response, cached_at, is_visible`

// ListVisible returns visible reviews with at least minStars, newest first.
// A zero cachedSince disables the freshness bound.
func (r *ReviewRepository) ListVisible(ctx context.Context, minStars, limit int, cachedSince time.Time) ([]model.CachedReview, error) {
	query := `
        SELECT ` + reviewColumns + `
        FROM trustpilot_reviews
        WHERE stars >= $1
          AND is_visible = TRUE
          AND ($3::timestamptz IS NULL OR cached_at >= $3)
        ORDER BY created_at_tp DESC
        LIMIT $2
    `
	var since *time.Time
	if !cachedSince.IsZero() {
		since = &cachedSince
	}

	rows, err := r.db.Query(ctx, query, minStars, limit, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.CachedReview
	for rows.Next() {
		var rv model.CachedReview
		if err := rows.Scan(&rv.ID, &rv.Stars, &rv.Title, &rv.Text, &rv.AuthorName, &rv.AuthorLocation,
			&rv.CreatedAtTP, &rv.Response, &rv.CachedAt, &rv.IsVisible); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Upsert writes reviews keyed by provider id and refreshes cached_at. An
// existing row keeps its is_visible flag. The returned map holds the stored
// visibility of every written id.
func (r *ReviewRepository) Upsert(ctx context.Context, reviews []model.CachedReview) (map[string]bool, error) {
	visible := make(map[string]bool, len(reviews))
	if len(reviews) == 0 {
		return visible, nil
	}

	query := `
        INSERT INTO trustpilot_reviews
            (id, stars, title, text, author_name, author_location, created_at_tp, response, cached_at, is_visible)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), TRUE)
        ON CONFLICT (id) DO UPDATE SET
            stars = EXCLUDED.stars,
            title = EXCLUDED.title,
            text = EXCLUDED.text,
            author_name = EXCLUDED.author_name,
            author_location = EXCLUDED.author_location,
            created_at_tp = EXCLUDED.created_at_tp,
            response = EXCLUDED.response,
            cached_at = NOW()
        RETURNING id, is_visible
    `

	batch := &pgx.Batch{}
	for _, rv := range reviews {
		batch.Queue(query, rv.ID, rv.Stars, rv.Title, rv.Text, rv.AuthorName, rv.AuthorLocation, rv.CreatedAtTP, rv.Response)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range reviews {
		var (
			id  string
			vis bool
		)
		if err := results.QueryRow().Scan(&id, &vis); err != nil {
			return nil, fmt.Errorf("failed to upsert review: %w", err)
		}
		visible[id] = vis
	}
	return visible, nil
}

// SetVisibility hides or shows a cached review.
func (r *ReviewRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE trustpilot_reviews SET is_visible = $2 WHERE id = $1`, id, visible)
	if err != nil {
		return fmt.Errorf("failed to update review visibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
