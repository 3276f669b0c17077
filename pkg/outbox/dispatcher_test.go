package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customer-portal/pkg/trace"
)

type fakeStore struct {
	pending []*Event
	failed  []*Event
	byID    map[int64]*Event
	sent    []int64
	marked  []int64
}

func (f *fakeStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.pending, nil
}

func (f *fakeStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	return f.failed, nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	e, ok := f.byID[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) MarkAsSent(ctx context.Context, eventID int64) error {
	f.sent = append(f.sent, eventID)
	return nil
}

func (f *fakeStore) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	f.marked = append(f.marked, eventID)
	return nil
}

type published struct {
	routingKey string
	body       string
	traceID    string
}

type fakePublisher struct {
	failOn map[string]bool
	out    []published
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if p.failOn[routingKey] {
		return errors.New("channel closed")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.out = append(p.out, published{routingKey: routingKey, body: string(body), traceID: trace.FromContext(ctx)})
	return nil
}

func TestProcessPendingPublishesAndMarks(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		{ID: 1, RoutingKey: "milestone.status_changed", Payload: json.RawMessage(`{"milestone_id":"m1","trace_id":"abc"}`)},
		{ID: 2, RoutingKey: "broken", Payload: json.RawMessage(`{}`)},
	}}
	pub := &fakePublisher{failOn: map[string]bool{"broken": true}}

	n := NewDispatcher(store, pub, zap.NewNop()).ProcessPending(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, store.sent)
	assert.Equal(t, []int64{2}, store.marked)
	require.Len(t, pub.out, 1)
	assert.JSONEq(t, `{"milestone_id":"m1","trace_id":"abc"}`, pub.out[0].body)
	assert.Equal(t, "abc", pub.out[0].traceID)
}

func TestReplayFailedEvents(t *testing.T) {
	ev := &Event{ID: 7, RoutingKey: "milestone.status_changed", Payload: json.RawMessage(`{}`)}
	store := &fakeStore{failed: []*Event{ev, {ID: 8}}, byID: map[int64]*Event{7: ev}}
	pub := &fakePublisher{}

	n, err := NewReplayService(store, pub, zap.NewNop()).ReplayFailedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{7}, store.sent)
}

func TestReplayUnknownEvent(t *testing.T) {
	store := &fakeStore{byID: map[int64]*Event{}}
	err := NewReplayService(store, &fakePublisher{}, zap.NewNop()).ReplayEvent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrEventNotFound)
}
