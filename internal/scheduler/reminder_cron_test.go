package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customer-portal/internal/service/notify"
	"customer-portal/pkg/trace"
)

type fakeSender struct {
	calls   int
	traceID string
	err     error
}

func (f *fakeSender) SendReminders(ctx context.Context) (*notify.SweepResult, error) {
	f.calls++
	f.traceID = trace.FromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &notify.SweepResult{Sent: 1, Total: 1}, nil
}

func TestStartReminderCron(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	c, err := StartReminderCron("0 18 * * *", loc, &fakeSender{}, zap.NewNop())
	require.NoError(t, err)
	defer c.Stop()

	entries := c.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Next.In(loc)
	assert.Equal(t, 18, next.Hour())
	assert.Equal(t, 0, next.Minute())

	_, err = StartReminderCron("every evening", loc, &fakeSender{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunSweep(t *testing.T) {
	s := &fakeSender{}
	runSweep(s, zap.NewNop())
	assert.Equal(t, 1, s.calls)
	assert.Len(t, s.traceID, 32)

	s.err = errors.New("db down")
	runSweep(s, zap.NewNop())
	assert.Equal(t, 2, s.calls)
}
