package handler

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/dukerupert/toolshub/internal/email"
	"github.com/dukerupert/toolshub/internal/payment"
)

// Processor is the payment provider. *payment.Client implements it.
type Processor interface {
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID string) (string, error)
	GetAccount(ctx context.Context, accountID string) (payment.AccountStatus, error)
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error)
	Refund(ctx context.Context, paymentIntentID string) error
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// Mailer sends rental notices. *email.Client implements it.
type Mailer interface {
	Configured() bool
	SendRentalConfirmation(ctx context.Context, r email.Rental) error
	SendNewRenterNotice(ctx context.Context, r email.Rental) error
	SendRefundNotice(ctx context.Context, r email.Rental) error
}

var (
	_ Processor = (*payment.Client)(nil)
	_ Mailer    = (*email.Client)(nil)
)
