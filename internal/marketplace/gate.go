package marketplace

import (
	"context"
	"strings"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/opstate"
)

// Route is the screen the listing-creation gate sends an owner to.
type Route int

const (
	RouteListingForm Route = iota + 1
	RouteAccountLinking
)

func (r Route) String() string {
	if r == RouteListingForm {
		return "listing_form"
	}
	return "account_linking"
}

// GateDecision tells the caller where an owner who wants to create a
// listing should go.
type GateDecision struct {
	Route            Route
	ConnectAccountID *string
	ConnectStatus    model.ConnectStatus
}

// AttemptOpenListingCreation routes the owner to the listing form when their
// Stripe account is validated and to account linking otherwise. The
// account is fetched from the backend the first time only.
func (m *Marketplace) AttemptOpenListingCreation(ctx context.Context) (GateDecision, error) {
	if err := m.loadAccount(ctx); err != nil {
		return GateDecision{}, err
	}

	u := m.User()
	d := GateDecision{
		Route:            RouteAccountLinking,
		ConnectAccountID: u.ConnectAccountID,
		ConnectStatus:    u.ConnectStatus,
	}
	if u.ConnectAccountID != nil && u.ConnectStatus == model.ConnectStatusValidated {
		d.Route = RouteListingForm
	}
	return d, nil
}

// CanCreateListing reports whether the gate is open without asking the
// backend.
func (m *Marketplace) CanCreateListing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.ConnectAccountID != nil && m.user.ConnectStatus == model.ConnectStatusValidated
}

func (m *Marketplace) loadAccount(ctx context.Context) error {
	m.mu.RLock()
	loaded, userID := m.accountLoaded, m.user.ID
	m.mu.RUnlock()
	if loaded {
		return nil
	}

	resp, err := m.backend.GetUserStripeAccount(ctx, userID)
	if err != nil {
		return classify("loading your Stripe account", err)
	}

	m.mu.Lock()
	m.user.ConnectAccountID = resp.StripeConnectAccountID
	m.user.ConnectStatus = resp.ConnectStatus
	if m.user.ConnectStatus == "" {
		m.user.ConnectStatus = model.ConnectStatusAbsent
		if resp.StripeConnectAccountID != nil {
			m.user.ConnectStatus = model.ConnectStatusValidated
		}
	}
	m.accountLoaded = true
	m.mu.Unlock()
	return nil
}

// SubmitConnectAccountID asks the backend to validate an existing Stripe
// account ID. The user's account is updated only when the backend accepts
// it; a rejected ID is not retried.
func (m *Marketplace) SubmitConnectAccountID(ctx context.Context, candidate string) error {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return &ValidationError{Field: "connect_id", Message: "Please enter your Stripe account ID"}
	}

	return m.guard(opstate.ValidateConnect, "validating your Stripe account", func() error {
		resp, err := m.backend.ValidateConnectAccount(ctx, candidate)
		if err != nil {
			return err
		}

		m.mu.Lock()
		id := candidate
		m.user.ConnectAccountID = &id
		m.user.ConnectStatus = model.ConnectStatusValidated
		m.accountLoaded = true
		userID := m.user.ID
		m.mu.Unlock()

		m.logger.Info("connect account validated", "user_id", userID, "message", resp.Message)
		return nil
	})
}

// RequestAccountProvisioning creates a new Stripe account and sends the
// user to its onboarding page. The outcome comes back later as a
// connectAccountStatus redirect marker. The pending account is recorded
// even if navigation fails, since the backend has already created it.
func (m *Marketplace) RequestAccountProvisioning(ctx context.Context) error {
	return m.guard(opstate.CreateConnect, "creating your Stripe account", func() error {
		resp, err := m.backend.CreateConnectAccount(ctx)
		if err != nil {
			return err
		}

		m.mu.Lock()
		id := resp.AccountID
		m.user.ConnectAccountID = &id
		m.user.ConnectStatus = model.ConnectStatusPending
		m.accountLoaded = true
		m.mu.Unlock()

		return m.nav.Navigate(resp.AccountLink)
	})
}
