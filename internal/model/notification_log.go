package model

import "time"

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// NotificationLog is one row of whatsapp_notifications: one per send attempt.
type NotificationLog struct {
	ID           int64      `json:"id"`
	CustomerID   string     `json:"customer_id"`
	ProjectID    *string    `json:"project_id"`
	Phone        string     `json:"phone"`
	Message      string     `json:"message"`
	Trigger      string     `json:"trigger"`
	MilestoneKey *string    `json:"milestone_key"`
	ProviderSID  *string    `json:"twilio_sid"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at"`
	Error        *string    `json:"error"`
	CreatedAt    time.Time  `json:"created_at"`
}
