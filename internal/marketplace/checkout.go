package marketplace

import (
	"context"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/opstate"
)

// CheckoutPhase tracks the local progress of a rental checkout.
type CheckoutPhase int

const (
	CheckoutIdle CheckoutPhase = iota
	CheckoutInitiating
	CheckoutAwaitingRedirect
	CheckoutFailed
)

func (p CheckoutPhase) String() string {
	switch p {
	case CheckoutInitiating:
		return "initiating"
	case CheckoutAwaitingRedirect:
		return "awaiting_redirect"
	case CheckoutFailed:
		return "failed"
	default:
		return "idle"
	}
}

// CheckoutAttempt is the in-process part of a rental checkout. Once the
// user has been sent to the processor nothing here survives; the outcome is
// rebuilt from the return URL by Reconcile.
type CheckoutAttempt struct {
	ListingID int64
	Phase     CheckoutPhase
	Reference string
	Reason    string
}

func (m *Marketplace) Checkout() CheckoutAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkout
}

// InitiateRentalCheckout opens a checkout session for l and sends the user
// to it. Own, full and inactive listings are refused locally; the backend
// repeats those checks authoritatively. A failed attempt is abandoned, not
// retried.
func (m *Marketplace) InitiateRentalCheckout(ctx context.Context, l model.Listing) error {
	userID := m.User().ID
	switch {
	case IsOwnListing(l, userID):
		return &ValidationError{Field: "listing", Message: "You cannot rent your own listing"}
	case !l.IsActive:
		return &ValidationError{Field: "listing", Message: "This listing is not available"}
	case IsFull(l):
		return &ValidationError{Field: "listing", Message: "This listing is full"}
	}

	return m.guard(opstate.Checkout, "starting checkout", func() error {
		m.setCheckout(CheckoutAttempt{ListingID: l.ID, Phase: CheckoutInitiating})

		resp, err := m.backend.ProcessRentPayment(ctx, l.ID)
		if err != nil {
			err = classify("starting checkout", err)
			m.setCheckout(CheckoutAttempt{ListingID: l.ID, Phase: CheckoutFailed, Reason: err.Error()})
			return err
		}

		m.setCheckout(CheckoutAttempt{ListingID: l.ID, Phase: CheckoutAwaitingRedirect, Reference: resp.Reference})
		if err := m.nav.Navigate(resp.CheckoutURL); err != nil {
			err = classify("opening checkout", err)
			m.setCheckout(CheckoutAttempt{ListingID: l.ID, Phase: CheckoutFailed, Reference: resp.Reference, Reason: err.Error()})
			return err
		}
		return nil
	})
}

func (m *Marketplace) setCheckout(a CheckoutAttempt) {
	m.mu.Lock()
	m.checkout = a
	m.mu.Unlock()
}
