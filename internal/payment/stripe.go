package payment

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountlink"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrAccountNotFound is returned when Stripe has no record of a Connect account.
var ErrAccountNotFound = errors.New("connect account not found")

type Config struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	Currency      string
}

// AccountStatus summarises a Connect account's onboarding progress.
type AccountStatus struct {
	ID               string
	ChargesEnabled   bool
	DetailsSubmitted bool
}

// Ready reports whether the account can receive destination charges.
func (a AccountStatus) Ready() bool {
	return a.ChargesEnabled && a.DetailsSubmitted
}

// CheckoutRequest describes a one-off rental payment routed to an owner.
type CheckoutRequest struct {
	Reference          string
	ListingID          int64
	Description        string
	AmountCents        int64
	FeeCents           int64
	DestinationAccount string
	CustomerEmail      string
}

// CheckoutSession is the hosted checkout Stripe created.
type CheckoutSession struct {
	ID  string
	URL string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	return &Client{cfg: cfg}
}

// CreateConnectAccount creates an Express account for an owner and returns its ID.
func (c *Client) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	acct, err := account.New(params)
	if err != nil {
		return "", fmt.Errorf("create connect account: %w", err)
	}
	return acct.ID, nil
}

// CreateAccountLink returns a hosted onboarding URL for accountID. Stripe
// sends the browser back to the landing page with connectAccountStatus set.
func (c *Client) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(c.cfg.BaseURL + "/toolshub?connectAccountStatus=cancelled"),
		ReturnURL:  stripe.String(c.cfg.BaseURL + "/toolshub?connectAccountStatus=success"),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := accountlink.New(params)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

// GetAccount fetches the onboarding state of a Connect account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := account.GetByID(accountID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && (stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == 404) {
			return AccountStatus{}, ErrAccountNotFound
		}
		return AccountStatus{}, fmt.Errorf("get connect account: %w", err)
	}
	return AccountStatus{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

// CreateCheckoutSession creates a payment-mode checkout whose funds go to the
// owner's account minus the platform fee.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(c.cfg.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.FeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.DestinationAccount),
			},
		},
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(c.cfg.BaseURL + "/toolshub?paymentStatus=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(c.cfg.BaseURL + "/toolshub?paymentStatus=cancelled"),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("listing_id", fmt.Sprint(req.ListingID))
	params.AddMetadata("reference", req.Reference)
	params.Context = ctx

	sess, err := checksession.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// Refund returns a payment in full, pulling the transfer back from the owner
// and returning the platform fee.
func (c *Client) Refund(ctx context.Context, paymentIntentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent:        stripe.String(paymentIntentID),
		ReverseTransfer:      stripe.Bool(true),
		RefundApplicationFee: stripe.Bool(true),
	}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	return nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// UserMessage extracts the human-readable part of a Stripe error, if any.
func UserMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return ""
}
