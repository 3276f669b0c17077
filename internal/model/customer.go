package model

import "time"

type Customer struct {
	ID             string    `json:"id"`
	UserID         *string   `json:"user_id"`
	CustomerNumber string    `json:"customer_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          *string   `json:"phone"`
	Street         *string   `json:"street"`
	Zip            *string   `json:"zip"`
	City           *string   `json:"city"`
	ReferralCode   string    `json:"referral_code"`
	ReferredBy     *string   `json:"referred_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contact is what the notification dispatcher needs to reach a customer.
type Contact struct {
	CustomerID string
	FirstName  string
	Phone      string
}

// ReminderTarget is a project installed tomorrow together with its customer's contact.
type ReminderTarget struct {
	ProjectID        string
	CustomerID       string
	FirstName        string
	Phone            *string
	InstallationDate time.Time
}
