package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"customer-portal/internal/client"
	"customer-portal/internal/model"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/metrics"
)

// Source tags which tier answered a review request.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDemo     Source = "demo"
	SourceAPI      Source = "api"
	SourceFallback Source = "fallback"
)

const (
	DefaultMinStars = 4
	DefaultLimit    = 6
	MaxLimit        = 50
	// extra rows requested from the provider so filtering still fills the page
	fetchHeadroom = 10
)

type Query struct {
	MinStars int
	Limit    int
	Sync     bool
}

type Result struct {
	Reviews           []model.CachedReview `json:"reviews"`
	Source            Source               `json:"source"`
	TotalFromProvider *int                 `json:"totalFromTP,omitempty"`
	Error             string               `json:"error,omitempty"`
}

type Store interface {
	ListVisible(ctx context.Context, minStars, limit int, cachedSince time.Time) ([]model.CachedReview, error)
	Upsert(ctx context.Context, reviews []model.CachedReview) (map[string]bool, error)
}

type Provider interface {
	Configured() bool
	FetchReviews(ctx context.Context, minStars, perPage int) (*client.ReviewPage, error)
}

// strategy answers a query, or returns (nil, nil) to pass to the next tier.
// prevErr is the last error raised by an earlier tier.
type strategy struct {
	source Source
	fetch  func(ctx context.Context, q Query, prevErr error) (*Result, error)
}

// Cache serves reviews from the local cache, the demo set, the live
// provider or the stale cache, in that order.
type Cache struct {
	store      Store
	provider   Provider
	freshness  time.Duration
	logger     *zap.Logger
	now        func() time.Time
	group      singleflight.Group
	strategies []strategy
}

func NewCache(store Store, provider Provider, freshness time.Duration, logger *zap.Logger) *Cache {
	if freshness <= 0 {
		freshness = 24 * time.Hour
	}
	c := &Cache{
		store:     store,
		provider:  provider,
		freshness: freshness,
		logger:    logger,
		now:       time.Now,
	}
	c.strategies = []strategy{
		{SourceCache, c.fromCache},
		{SourceDemo, c.fromDemo},
		{SourceAPI, c.fromProvider},
		{SourceFallback, c.fromFallback},
	}
	return c
}

// Normalize applies defaults; it does not clamp out-of-range values.
func (q Query) Normalize() Query {
	if q.MinStars == 0 {
		q.MinStars = DefaultMinStars
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Fetch never fails: provider and database errors degrade to a lower tier.
func (c *Cache) Fetch(ctx context.Context, q Query) *Result {
	q = q.Normalize()
	log := logger.WithTrace(ctx, c.logger)

	var lastErr error
	for _, s := range c.strategies {
		res, err := s.fetch(ctx, q, lastErr)
		if err != nil {
			log.Warn("Review tier failed",
				zap.String("source", string(s.source)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if res == nil {
			continue
		}
		res.Source = s.source
		if res.Reviews == nil {
			res.Reviews = []model.CachedReview{}
		}
		metrics.RecordReviewFetch(string(s.source))
		return res
	}

	// unreachable while fromFallback always answers
	return &Result{Reviews: filter(DemoReviews(c.now()), q), Source: SourceFallback}
}

func (c *Cache) fromCache(ctx context.Context, q Query, _ error) (*Result, error) {
	if q.Sync {
		return nil, nil
	}
	rows, err := c.store.ListVisible(ctx, q.MinStars, q.Limit, c.now().Add(-c.freshness))
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	// one qualifying row is enough
	if len(rows) == 0 {
		return nil, nil
	}
	return &Result{Reviews: rows}, nil
}

func (c *Cache) fromDemo(_ context.Context, q Query, _ error) (*Result, error) {
	if c.provider.Configured() {
		return nil, nil
	}
	return &Result{Reviews: filter(DemoReviews(c.now()), q)}, nil
}

type livePage struct {
	reviews []model.CachedReview
	total   int
}

func (c *Cache) fromProvider(ctx context.Context, q Query, _ error) (*Result, error) {
	key := fmt.Sprintf("%d:%d", q.MinStars, q.Limit)
	v, err, shared := c.group.Do(key, func() (any, error) {
		// concurrent callers share this fetch; one caller leaving must not cancel it
		return c.fetchLive(context.WithoutCancel(ctx), q)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.WithTrace(ctx, c.logger).Debug("Review fetch coalesced", zap.String("key", key))
	}

	page := v.(*livePage)
	total := page.total
	return &Result{Reviews: filter(page.reviews, q), TotalFromProvider: &total}, nil
}

// fetchLive calls the provider and upserts the page. Rows an operator has
// hidden are dropped from the returned page.
func (c *Cache) fetchLive(ctx context.Context, q Query) (*livePage, error) {
	page, err := c.provider.FetchReviews(ctx, q.MinStars, q.Limit+fetchHeadroom)
	if err != nil {
		return nil, err
	}

	visible, err := c.store.Upsert(ctx, page.Reviews)
	if err != nil {
		// without the stored flags hidden rows cannot be told apart
		return nil, fmt.Errorf("cache upsert: %w", err)
	}

	now := c.now()
	shown := make([]model.CachedReview, 0, len(page.Reviews))
	for _, r := range page.Reviews {
		if !visible[r.ID] {
			continue
		}
		r.CachedAt = now
		shown = append(shown, r)
	}
	return &livePage{reviews: shown, total: page.Total}, nil
}

func (c *Cache) fromFallback(ctx context.Context, q Query, prevErr error) (*Result, error) {
	res := &Result{}
	if prevErr != nil {
		res.Error = prevErr.Error()
	}

	rows, err := c.store.ListVisible(ctx, q.MinStars, q.Limit, time.Time{})
	if err != nil {
		logger.WithTrace(ctx, c.logger).Warn("Stale review lookup failed", zap.Error(err))
	}
	if len(rows) == 0 {
		rows = filter(DemoReviews(c.now()), q)
	}
	res.Reviews = rows
	return res, nil
}

// filter keeps rows with at least q.MinStars stars, up to q.Limit of them.
func filter(rows []model.CachedReview, q Query) []model.CachedReview {
	out := make([]model.CachedReview, 0, min(len(rows), q.Limit))
	for _, r := range rows {
		if len(out) == q.Limit {
			break
		}
		if r.Stars >= q.MinStars {
			out = append(out, r)
		}
	}
	return out
}
