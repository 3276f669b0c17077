package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "customer-portal/contracts/mq"
	"customer-portal/internal/model"
	"customer-portal/internal/service/notify"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/metrics"
	"customer-portal/pkg/trace"
	"customer-portal/pkg/util"
)

const handlerName = "milestone_notify"

type Notifier interface {
	Send(ctx context.Context, req notify.SendRequest) (*notify.SendResult, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, eventKey string) bool
	Release(ctx context.Context, handler, eventKey string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error
}

// MilestoneChangedHandler sends the WhatsApp update when a milestone
// becomes active.
type MilestoneChangedHandler struct {
	notifier     Notifier
	deduper      Deduper
	retryCounter RetryCounter
	dlq          DLQPublisher
	maxRetries   int64
	loc          *time.Location
	logger       *zap.Logger
}

func NewMilestoneChangedHandler(
	notifier Notifier,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DLQPublisher,
	maxRetries int,
	loc *time.Location,
	logger *zap.Logger,
) *MilestoneChangedHandler {
	return &MilestoneChangedHandler{
		notifier:     notifier,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		maxRetries:   int64(maxRetries),
		loc:          loc,
		logger:       logger,
	}
}

// Handle returns an error only when the message should be requeued.
func (h *MilestoneChangedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload mqcontracts.MilestoneStatusChangedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid MilestoneStatusChangedPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		h.deadLetter(ctx, raw, err)
		return nil
	}

	if payload.TraceID != "" {
		ctx = trace.WithContext(ctx, payload.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("milestone_id", payload.MilestoneID),
		zap.String("customer_id", payload.CustomerID),
		zap.String("status", payload.Status),
	)

	if model.MilestoneStatus(payload.Status) != model.MilestoneActive {
		log.Debug("Milestone not activated, nothing to send")
		h.outcome("skipped")
		return nil
	}

	eventKey := fmt.Sprintf("%s:%s:%s", payload.MilestoneID, payload.Status, payload.EventID)
	if !h.deduper.AcquireOnce(ctx, handlerName, eventKey) {
		h.outcome("duplicate")
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, eventKey)
	res, err := h.notifier.Send(ctx, notify.SendRequest{
		CustomerID:   payload.CustomerID,
		ProjectID:    payload.ProjectID,
		Trigger:      notify.TriggerMilestoneActive,
		MilestoneKey: payload.MilestoneKey,
		Detail:       h.detail(payload.PlannedDate),
	})
	if err == nil {
		_ = h.retryCounter.Reset(ctx, retryKey)
		log.Info("Milestone notification sent", zap.String("sid", res.SID))
		h.outcome("ok")
		return nil
	}

	// the attempt is already logged (or impossible); sending again would duplicate it
	if errors.Is(err, notify.ErrDeliveryFailed) || errors.Is(err, notify.ErrCustomerNotFound) || errors.Is(err, notify.ErrInvalidRequest) {
		_ = h.retryCounter.Reset(ctx, retryKey)
		log.Warn("Milestone notification not delivered", zap.Error(err))
		h.outcome("skipped")
		return nil
	}

	return h.handleError(ctx, log, raw, eventKey, retryKey, err)
}

func (h *MilestoneChangedHandler) handleError(ctx context.Context, log *zap.Logger, raw json.RawMessage, eventKey, retryKey string, err error) error {
	isRetryable, errType := util.ClassifyError(err)
	retryCount, counterErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if counterErr != nil {
		// without a counter we cannot bound retries
		isRetryable = false
	}

	log.Warn("Milestone notification error",
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry", retryCount),
		zap.Error(err),
	)

	if util.ShouldRetry(retryCount, h.maxRetries, isRetryable) {
		h.deduper.Release(ctx, handlerName, eventKey)
		h.outcome("requeued")
		return err
	}

	_ = h.retryCounter.Reset(ctx, retryKey)
	h.deadLetter(ctx, raw, err)
	return nil
}

func (h *MilestoneChangedHandler) deadLetter(ctx context.Context, raw []byte, cause error) {
	err := h.dlq.PublishToDLQ(ctx, mqcontracts.RoutingKeyMilestoneStatusChanged, raw, cause.Error(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
	h.outcome("dead_lettered")
}

func (h *MilestoneChangedHandler) detail(planned *time.Time) string {
	if planned == nil {
		return ""
	}
	return notify.FormatGermanDate(planned.In(h.loc))
}

func (h *MilestoneChangedHandler) outcome(outcome string) {
	metrics.RecordEventHandled(mqcontracts.RoutingKeyMilestoneStatusChanged, outcome)
}
