package review

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customer-portal/internal/client"
	"customer-portal/internal/model"
)

// memStore mimics trustpilot_reviews: visibility survives upserts.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]model.CachedReview
	listErr error
	upserts int
}

func newMemStore(rows ...model.CachedReview) *memStore {
	s := &memStore{rows: map[string]model.CachedReview{}}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *memStore) ListVisible(ctx context.Context, minStars, limit int, since time.Time) ([]model.CachedReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.CachedReview
	for _, r := range s.rows {
		if r.IsVisible && r.Stars >= minStars && (since.IsZero() || !r.CachedAt.Before(since)) {
			out = append(out, r)
		}
	}
	// newest first
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAtTP.After(out[j-1].CreatedAtTP); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Upsert(ctx context.Context, reviews []model.CachedReview) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	vis := map[string]bool{}
	for _, r := range reviews {
		if old, ok := s.rows[r.ID]; ok {
			r.IsVisible = old.IsVisible
		} else {
			r.IsVisible = true
		}
		r.CachedAt = time.Now()
		s.rows[r.ID] = r
		vis[r.ID] = r.IsVisible
	}
	return vis, nil
}

type fakeProvider struct {
	configured bool
	page       *client.ReviewPage
	err        error
	calls      atomic.Int32
	gate       chan struct{}
	perPage    int
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) FetchReviews(ctx context.Context, minStars, perPage int) (*client.ReviewPage, error) {
	p.calls.Add(1)
	p.perPage = perPage
	if p.gate != nil {
		<-p.gate
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.page, nil
}

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func row(id string, stars int, age time.Duration, cachedAge time.Duration, visible bool) model.CachedReview {
	return model.CachedReview{
		ID: id, Stars: stars, AuthorName: "A",
		CreatedAtTP: base.Add(-age), CachedAt: base.Add(-cachedAge), IsVisible: visible,
	}
}

func newTestCache(store Store, provider Provider) *Cache {
	c := NewCache(store, provider, 24*time.Hour, zap.NewNop())
	c.now = func() time.Time { return base }
	return c
}

func ids(rows []model.CachedReview) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestFreshCacheFilteringAndOrdering(t *testing.T) {
	store := newMemStore(
		row("a", 5, 3*time.Hour, time.Hour, true),
		row("b", 5, time.Hour, time.Hour, true),
		row("c", 4, 30*time.Minute, time.Hour, true),
		row("d", 5, 10*time.Minute, time.Hour, false),
		row("e", 5, 2*time.Hour, time.Hour, true),
	)
	provider := &fakeProvider{configured: true}

	res := newTestCache(store, provider).Fetch(context.Background(), Query{MinStars: 5, Limit: 2})

	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, []string{"b", "e"}, ids(res.Reviews))
	assert.Zero(t, provider.calls.Load())
}

func TestSingleFreshRowShortCircuits(t *testing.T) {
	store := newMemStore(row("only", 5, time.Hour, time.Hour, true))
	provider := &fakeProvider{configured: true}

	res := newTestCache(store, provider).Fetch(context.Background(), Query{})

	assert.Equal(t, SourceCache, res.Source)
	assert.Len(t, res.Reviews, 1)
	assert.Zero(t, provider.calls.Load())
}

func TestDemoWhenProviderNotConfigured(t *testing.T) {
	store := newMemStore(row("stale", 5, time.Hour, 48*time.Hour, true))

	res := newTestCache(store, &fakeProvider{}).Fetch(context.Background(), Query{MinStars: 5, Limit: 10})

	assert.Equal(t, SourceDemo, res.Source)
	assert.Equal(t, []string{"demo-1", "demo-2", "demo-3", "demo-4", "demo-5"}, ids(res.Reviews))
}

func TestLiveFetchUpsertsAndHonoursHiddenRows(t *testing.T) {
	store := newMemStore(row("hidden", 5, time.Hour, 72*time.Hour, false))
	provider := &fakeProvider{configured: true, page: &client.ReviewPage{
		Total: 120,
		Reviews: []model.CachedReview{
			row("hidden", 5, time.Hour, 0, true),
			row("n1", 5, 2*time.Hour, 0, true),
			row("n2", 3, 3*time.Hour, 0, true),
			row("n3", 4, 4*time.Hour, 0, true),
		},
	}}

	res := newTestCache(store, provider).Fetch(context.Background(), Query{MinStars: 4, Limit: 6, Sync: true})

	assert.Equal(t, SourceAPI, res.Source)
	assert.Equal(t, []string{"n1", "n3"}, ids(res.Reviews))
	require.NotNil(t, res.TotalFromProvider)
	assert.Equal(t, 120, *res.TotalFromProvider)
	assert.Equal(t, 16, provider.perPage)
	assert.Len(t, store.rows, 4)
	assert.False(t, store.rows["hidden"].IsVisible)
}

func TestFallbackServesStaleRows(t *testing.T) {
	store := newMemStore(
		row("old", 5, 90*time.Hour, 72*time.Hour, true),
		row("old-hidden", 5, 10*time.Hour, 72*time.Hour, false),
	)
	provider := &fakeProvider{configured: true, err: &client.ProviderError{Provider: "trustpilot", Status: 503, Message: "Trustpilot API 503"}}

	res := newTestCache(store, provider).Fetch(context.Background(), Query{})

	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, []string{"old"}, ids(res.Reviews))
	assert.Contains(t, res.Error, "Trustpilot API 503")
}

func TestFallbackToDemoWhenCacheEmpty(t *testing.T) {
	provider := &fakeProvider{configured: true, err: errors.New("dial tcp: connection refused")}

	res := newTestCache(newMemStore(), provider).Fetch(context.Background(), Query{MinStars: 4, Limit: 3})

	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, []string{"demo-1", "demo-2", "demo-3"}, ids(res.Reviews))
	assert.Equal(t, "dial tcp: connection refused", res.Error)
}

func TestDatabaseDownStillAnswers(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db down")
	provider := &fakeProvider{configured: true, err: errors.New("timeout")}

	res := newTestCache(store, provider).Fetch(context.Background(), Query{})

	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Reviews, 6)
	assert.Equal(t, "timeout", res.Error)
}

func TestConcurrentColdFetchesAreCoalesced(t *testing.T) {
	provider := &fakeProvider{
		configured: true,
		gate:       make(chan struct{}),
		page:       &client.ReviewPage{Total: 1, Reviews: []model.CachedReview{row("n1", 5, time.Hour, 0, true)}},
	}
	c := newTestCache(newMemStore(), provider)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Result, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Fetch(context.Background(), Query{Sync: true})
		}(i)
	}

	// let the first fetch block until every caller has joined it
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, SourceAPI, r.Source)
		assert.Equal(t, []string{"n1"}, ids(r.Reviews))
	}
	assert.Equal(t, int32(1), provider.calls.Load())
}
