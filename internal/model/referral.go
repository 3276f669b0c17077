package model

import "time"

const (
	ReferralPending   = "pending"
	ReferralConverted = "converted"
	ReferralBonusPaid = "bonus_paid"
)

type Referral struct {
	ID               string     `json:"id"`
	ReferrerID       string     `json:"referrer_id"`
	ReferredEmail    string     `json:"referred_email"`
	ReferredCustomer *string    `json:"referred_customer"`
	Status           string     `json:"status"`
	BonusAmount      float64    `json:"bonus_amount"`
	ConvertedAt      *time.Time `json:"converted_at"`
	BonusPaidAt      *time.Time `json:"bonus_paid_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

type NpsResponse struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Score      int       `json:"score"`
	Comment    *string   `json:"comment"`
	Trigger    string    `json:"trigger"`
	CreatedAt  time.Time `json:"created_at"`
}
