package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"customer-portal/internal/service/notify"
	"customer-portal/pkg/otel"
	"customer-portal/pkg/trace"
)

type ReminderSender interface {
	SendReminders(ctx context.Context) (*notify.SweepResult, error)
}

// StartReminderCron schedules the appointment reminder sweep. Overlapping
// runs are skipped. Stop the returned cron on shutdown.
func StartReminderCron(schedule string, loc *time.Location, sender ReminderSender, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if _, err := c.AddFunc(schedule, func() { runSweep(sender, logger) }); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("Reminder cron started", zap.String("schedule", schedule), zap.String("timezone", loc.String()))
	return c, nil
}

func runSweep(sender ReminderSender, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), notify.SweepTimeout)
	defer cancel()

	traceID := trace.GenerateTraceID()
	ctx = trace.WithContext(ctx, traceID)
	ctx, span := otel.StartSpan(ctx, "reminder.sweep")
	defer span.End()

	res, err := sender.SendReminders(ctx)
	if err != nil {
		logger.Error("Scheduled reminder sweep failed", zap.String("trace_id", traceID), zap.Error(err))
		return
	}
	logger.Info("Scheduled reminder sweep finished",
		zap.String("trace_id", traceID),
		zap.Int("sent", res.Sent),
		zap.Int("total", res.Total),
	)
}
