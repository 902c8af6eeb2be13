package model

import "time"

type CheckoutStatus string

const (
	CheckoutStatusPending   CheckoutStatus = "pending"
	CheckoutStatusCompleted CheckoutStatus = "completed"
	CheckoutStatusExpired   CheckoutStatus = "expired"
	CheckoutStatusRefunded  CheckoutStatus = "refunded"
)

// CheckoutSession records one attempted rental payment.
type CheckoutSession struct {
	ID              int64          `json:"id"`
	Reference       string         `json:"reference"`
	StripeSessionID *string        `json:"stripe_session_id"`
	ListingID       int64          `json:"listing_id"`
	RenterID        int64          `json:"renter_id"`
	AmountCents     int64          `json:"amount_cents"`
	FeeCents        int64          `json:"fee_cents"`
	Status          CheckoutStatus `json:"status"`
	PaymentIntentID string         `json:"payment_intent_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
