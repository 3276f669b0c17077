package model

import "time"

// Notification is an in-portal message shown to the customer.
type Notification struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Title      string     `json:"title"`
	Body       *string    `json:"body"`
	Type       string     `json:"type"`
	ReadAt     *time.Time `json:"read_at"`
	ActionURL  *string    `json:"action_url"`
	CreatedAt  time.Time  `json:"created_at"`
}
