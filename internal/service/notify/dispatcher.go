package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"customer-portal/internal/model"
	"customer-portal/internal/repository"
	"customer-portal/pkg/logger"
	"customer-portal/pkg/metrics"
)

var (
	ErrInvalidRequest   = errors.New("invalid notification request")
	ErrCustomerNotFound = errors.New("customer not found or no phone number")
	ErrDeliveryFailed   = errors.New("notification delivery failed")
)

// Messenger delivers one message and returns the provider message id.
type Messenger interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type ContactStore interface {
	FindContact(ctx context.Context, customerID string) (*model.Contact, error)
}

type LogStore interface {
	Insert(ctx context.Context, log *model.NotificationLog) error
}

type ReminderStore interface {
	ListReminderTargets(ctx context.Context, day time.Time) ([]model.ReminderTarget, error)
}

// Options carries the recipient and template settings.
type Options struct {
	ChannelPrefix string
	CountryCode   string
	Brand         string
	PortalURL     string
	SupportPhone  string
	Location      *time.Location
}

type SendRequest struct {
	CustomerID   string `json:"customerId"`
	Trigger      string `json:"trigger"`
	MilestoneKey string `json:"milestoneKey,omitempty"`
	Detail       string `json:"detail,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
}

type SendResult struct {
	SID string
	// the phone number on file
	To       string
	Template TemplateKey
}

// Dispatcher renders templates, sends them once and logs every attempt.
type Dispatcher struct {
	contacts  ContactStore
	logs      LogStore
	reminders ReminderStore
	messenger Messenger
	guard     ReminderGuard
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(contacts ContactStore, logs LogStore, reminders ReminderStore, messenger Messenger, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Dispatcher{
		contacts:  contacts,
		logs:      logs,
		reminders: reminders,
		messenger: messenger,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (r SendRequest) validate() error {
	if r.CustomerID == "" || r.Trigger == "" {
		return fmt.Errorf("%w: customerId and trigger are required", ErrInvalidRequest)
	}
	// no customer can have a malformed id
	if _, err := uuid.Parse(r.CustomerID); err != nil {
		return fmt.Errorf("%w: customerId is not a valid id", ErrCustomerNotFound)
	}
	if r.ProjectID != "" {
		if _, err := uuid.Parse(r.ProjectID); err != nil {
			return fmt.Errorf("%w: projectId is not a valid id", ErrInvalidRequest)
		}
	}
	return nil
}

// Send delivers one templated message to a customer. Unless the request is
// invalid or the customer has no phone, exactly one log row is written.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	log := logger.WithTrace(ctx, d.logger)

	if err := req.validate(); err != nil {
		return nil, err
	}

	contact, err := d.contacts.FindContact(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	key, render, fallback := ResolveTemplate(req.MilestoneKey, req.Trigger)
	if fallback {
		log.Debug("Unknown template key, using default",
			zap.String("milestone_key", req.MilestoneKey),
			zap.String("trigger", req.Trigger),
			zap.String("template", string(key)),
		)
	}
	message := render(d.vars(contact.FirstName, req.Detail))

	entry := &model.NotificationLog{
		CustomerID:   contact.CustomerID,
		ProjectID:    optional(req.ProjectID),
		Phone:        contact.Phone,
		Message:      message,
		Trigger:      req.Trigger,
		MilestoneKey: optional(req.MilestoneKey),
	}
	sid, sendErr := d.deliver(ctx, contact.Phone, message, entry)

	if err := d.logs.Insert(ctx, entry); err != nil {
		log.Error("Failed to write notification log",
			zap.String("customer_id", contact.CustomerID),
			zap.String("status", entry.Status),
			zap.Error(err),
		)
		if sendErr == nil {
			return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
	}

	if sendErr != nil {
		log.Error("WhatsApp send failed",
			zap.String("customer_id", contact.CustomerID),
			zap.String("trigger", req.Trigger),
			zap.Error(sendErr),
		)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, sendErr)
	}

	log.Info("WhatsApp sent",
		zap.String("customer_id", contact.CustomerID),
		zap.String("template", string(key)),
		zap.String("sid", sid),
	)
	return &SendResult{SID: sid, To: contact.Phone, Template: key}, nil
}

// deliver sends once and fills the outcome fields of entry.
func (d *Dispatcher) deliver(ctx context.Context, phone, message string, entry *model.NotificationLog) (string, error) {
	to := NormalizePhone(phone, d.opts.ChannelPrefix, d.opts.CountryCode)
	sid, err := d.messenger.Send(ctx, to, message)
	if err == nil && sid == "" {
		err = errors.New("provider returned no message id")
	}

	if err != nil {
		msg := err.Error()
		entry.Status = model.DeliveryFailed
		entry.Error = &msg
		metrics.RecordNotificationSend(entry.Trigger, model.DeliveryFailed)
		return "", err
	}

	sentAt := d.now()
	entry.Status = model.DeliverySent
	entry.ProviderSID = &sid
	entry.SentAt = &sentAt
	metrics.RecordNotificationSend(entry.Trigger, model.DeliverySent)
	return sid, nil
}

func (d *Dispatcher) vars(name, detail string) TemplateVars {
	return TemplateVars{
		Name:         name,
		Detail:       detail,
		Brand:        d.opts.Brand,
		PortalURL:    d.opts.PortalURL,
		SupportPhone: d.opts.SupportPhone,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
