package model

import "time"

// CachedReview mirrors a provider review in trustpilot_reviews.
type CachedReview struct {
	ID             string    `json:"id"`
	Stars          int       `json:"stars"`
	Title          *string   `json:"title"`
	Text           *string   `json:"text"`
	AuthorName     string    `json:"author_name"`
	AuthorLocation *string   `json:"author_location"`
	CreatedAtTP    time.Time `json:"created_at_tp"`
	Response       *string   `json:"response"`
	CachedAt       time.Time `json:"cached_at"`
	IsVisible      bool      `json:"-"`
}
