package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"customer-portal/internal/model"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/metrics"
)

const (
	TriggerAppointmentReminder = "appointment_reminder"
	TriggerMilestoneActive     = "milestone_active"
)

// SweepTimeout bounds one sweep; it must finish well before the next day's run.
const SweepTimeout = 10 * time.Minute

const reminderGuardName = "reminder"

// ReminderGuard claims a reminder so that concurrent sweeps (every replica's
// cron plus the HTTP trigger) send it once.
type ReminderGuard interface {
	AcquireOnce(ctx context.Context, handler, eventKey string) bool
	Release(ctx context.Context, handler, eventKey string)
}

// WithReminderGuard makes SendReminders claim project_id:day before sending.
func (d *Dispatcher) WithReminderGuard(g ReminderGuard) *Dispatcher {
	d.guard = g
	return d
}

func reminderKey(projectID string, day time.Time) string {
	return projectID + ":" + day.Format(time.DateOnly)
}

type SweepResult struct {
	Sent  int `json:"sent"`
	Total int `json:"total"`
}

// Tomorrow returns the calendar day after now in loc.
func Tomorrow(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// SendReminders messages every customer whose installation is tomorrow.
// Recipients are processed one at a time; a failed send does not stop the
// sweep and is not retried. Recipients without a phone, and reminders another
// sweep already claimed for the day, count toward Total only.
func (d *Dispatcher) SendReminders(ctx context.Context) (*SweepResult, error) {
	log := logger.WithTrace(ctx, d.logger)

	day := Tomorrow(d.now(), d.opts.Location)
	targets, err := d.reminders.ListReminderTargets(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder targets: %w", err)
	}

	date := FormatGermanDate(day)
	render := Templates[TemplateAppointmentReminder]
	result := &SweepResult{Total: len(targets)}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if t.Phone == nil || *t.Phone == "" {
			log.Info("Skipping reminder, no phone on file",
				zap.String("customer_id", t.CustomerID),
				zap.String("project_id", t.ProjectID),
			)
			metrics.RecordReminderSweep("skipped")
			continue
		}

		key := reminderKey(t.ProjectID, day)
		if d.guard != nil && !d.guard.AcquireOnce(ctx, reminderGuardName, key) {
			log.Info("Skipping reminder, already sent today",
				zap.String("customer_id", t.CustomerID),
				zap.String("project_id", t.ProjectID),
			)
			metrics.RecordReminderSweep("duplicate")
			continue
		}

		message := render(d.vars(t.FirstName, date))
		projectID := t.ProjectID
		entry := &model.NotificationLog{
			CustomerID: t.CustomerID,
			ProjectID:  &projectID,
			Phone:      *t.Phone,
			Message:    message,
			Trigger:    TriggerAppointmentReminder,
		}
		_, sendErr := d.deliver(ctx, *t.Phone, message, entry)
		if err := d.logs.Insert(ctx, entry); err != nil {
			log.Error("Failed to write notification log",
				zap.String("customer_id", t.CustomerID),
				zap.String("project_id", t.ProjectID),
				zap.Error(err),
			)
		}

		if sendErr != nil {
			if d.guard != nil {
				d.guard.Release(ctx, reminderGuardName, key)
			}
			log.Error("Reminder send failed",
				zap.String("customer_id", t.CustomerID),
				zap.String("project_id", t.ProjectID),
				zap.Error(sendErr),
			)
			metrics.RecordReminderSweep("failed")
			continue
		}
		result.Sent++
		metrics.RecordReminderSweep("sent")
	}

	log.Info("Reminder sweep finished",
		zap.String("day", day.Format(time.DateOnly)),
		zap.Int("sent", result.Sent),
		zap.Int("total", result.Total),
	)
	return result, nil
}
