// Package marketplace holds a signed-in user's view of the tool rental
// marketplace: the listings and rentals they can see, the gate in front of
// listing creation, and the checkout hand-off to the payment processor.
//
// State changes only after the backend confirms them. Every mutating
// operation is tracked in an opstate.Tracker, so a second trigger while the
// first is waiting is refused with opstate.ErrInFlight.
package marketplace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/opstate"
	"github.com/dukerupert/toolshub/internal/rpc"
)

// Backend is the RPC surface the marketplace talks to. Failures reported by
// the backend come back as *BusinessError or *DomainValidationError; any
// other error is treated as a transport failure.
type Backend interface {
	GetRentListings(ctx context.Context, filter *model.ListingFilter) (rpc.GetRentListingsResponse, error)
	GetTools(ctx context.Context) ([]model.Tool, error)
	CreateRentListing(ctx context.Context, req rpc.CreateRentListingRequest) (rpc.CreateRentListingResponse, error)
	ToggleListingActive(ctx context.Context, listingID int64) (rpc.ToggleListingActiveResponse, error)
	GetRentedTools(ctx context.Context, filter *model.RentedFilter) ([]model.RentedTool, error)
	GetRentedOutTools(ctx context.Context) ([]model.RentedTool, error)
	UpdateRentedToolCredentials(ctx context.Context, req rpc.UpdateCredentialsRequest) (rpc.UpdateCredentialsResponse, error)
	GetUserStripeAccount(ctx context.Context, userID int64) (rpc.GetUserStripeAccountResponse, error)
	ValidateConnectAccount(ctx context.Context, connectID string) (rpc.ValidateConnectAccountResponse, error)
	CreateConnectAccount(ctx context.Context) (rpc.CreateConnectAccountResponse, error)
	ProcessRentPayment(ctx context.Context, listingID int64) (rpc.ProcessRentPaymentResponse, error)
}

// Navigator moves the user to another page. Navigate leaves the application
// (payment checkout, account onboarding); ReplaceURL swaps the current
// location without adding a history entry.
type Navigator interface {
	Navigate(url string) error
	ReplaceURL(url string)
}

// User is the signed-in user. ConnectAccountID is nil until the user has
// linked a Stripe account.
type User struct {
	ID               int64
	Name             string
	Email            string
	ConnectAccountID *string
	ConnectStatus    model.ConnectStatus
}

type Marketplace struct {
	backend Backend
	nav     Navigator
	ops     *opstate.Tracker
	logger  *slog.Logger

	mu            sync.RWMutex
	user          User
	accountLoaded bool
	listings      []model.Listing
	listingTotal  int
	listingFilter *model.ListingFilter
	tools         []model.Tool
	rentedByMe    []model.RentedTool
	rentedOut     []model.RentedTool
	checkout      CheckoutAttempt
}

func New(backend Backend, nav Navigator, user User, logger *slog.Logger) *Marketplace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Marketplace{
		backend: backend,
		nav:     nav,
		ops:     opstate.NewTracker(),
		logger:  logger.With("component", "marketplace"),
		user:    user,
	}
}

// User returns a copy of the current user.
func (m *Marketplace) User() User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u := m.user
	if u.ConnectAccountID != nil {
		id := *u.ConnectAccountID
		u.ConnectAccountID = &id
	}
	return u
}

// OpState reports the state of a mutating operation.
func (m *Marketplace) OpState(op opstate.Op) opstate.State {
	return m.ops.State(op)
}

// guard runs fn as op. The tracker is always settled, whichever way fn
// returns, and the error is classified for display.
func (m *Marketplace) guard(op opstate.Op, action string, fn func() error) (err error) {
	finish, err := m.ops.Begin(op)
	if err != nil {
		return err
	}
	defer func() { finish(err) }()

	err = classify(action, fn())
	if err != nil {
		m.logger.Debug("operation failed", "op", op, "error", err)
	}
	return err
}
