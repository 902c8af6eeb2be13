package model

import "time"

// ConnectStatus is the onboarding state of a user's Stripe Connect account.
type ConnectStatus string

const (
	ConnectStatusAbsent    ConnectStatus = "absent"
	ConnectStatusPending   ConnectStatus = "pending"
	ConnectStatusValidated ConnectStatus = "validated"
)

type User struct {
	ID                     int64         `json:"id"`
	Email                  string        `json:"email"`
	Name                   string        `json:"name"`
	PasswordHash           string        `json:"-"`
	StripeConnectAccountID *string       `json:"stripe_connect_account_id"`
	ConnectStatus          ConnectStatus `json:"connect_status"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// CanListPaid reports whether the user may publish a listing with a non-zero price.
func (u *User) CanListPaid() bool {
	return u != nil && u.StripeConnectAccountID != nil && u.ConnectStatus == ConnectStatusValidated
}
