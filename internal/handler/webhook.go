package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/dukerupert/toolshub/internal/email"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/store"
	"github.com/dukerupert/toolshub/internal/websocket"
)

type WebhookHandler struct {
	processor     Processor
	checkoutStore *store.CheckoutStore
	rentalStore   *store.RentalStore
	listingStore  *store.ListingStore
	userStore     *store.UserStore
	mailer        Mailer
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewWebhookHandler(
	p Processor,
	cs *store.CheckoutStore,
	rs *store.RentalStore,
	ls *store.ListingStore,
	us *store.UserStore,
	mailer Mailer,
	hub *websocket.Hub,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		processor:     p,
		checkoutStore: cs,
		rentalStore:   rs,
		listingStore:  ls,
		userStore:     us,
		mailer:        mailer,
		hub:           hub,
		logger:        logger.With("component", "webhook"),
	}
}

func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.processor.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("invalid webhook signature", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(r.Context(), event)
	case "checkout.session.expired":
		h.handleCheckoutExpired(event)
	case "account.updated":
		h.handleAccountUpdated(event)
	default:
		h.logger.Debug("ignored webhook event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// attemptFor finds the checkout attempt behind a Stripe session, by session
// ID first and by client reference as a fallback.
func (h *WebhookHandler) attemptFor(sess stripe.CheckoutSession) (*model.CheckoutSession, error) {
	attempt, err := h.checkoutStore.GetByStripeSessionID(sess.ID)
	if err != nil || attempt != nil {
		return attempt, err
	}
	if sess.ClientReferenceID == "" {
		return nil, nil
	}
	return h.checkoutStore.GetByReference(sess.ClientReferenceID)
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	attempt, err := h.attemptFor(sess)
	if err != nil {
		h.logger.Error("get checkout attempt", "session_id", sess.ID, "error", err)
		return
	}
	if attempt == nil {
		h.logger.Warn("checkout session without attempt", "session_id", sess.ID)
		return
	}

	var paymentIntentID string
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}

	rentalID, err := h.checkoutStore.Complete(attempt.ID, paymentIntentID)
	switch {
	case errors.Is(err, store.ErrNotPending):
		h.logger.Debug("checkout already settled", "checkout_id", attempt.ID)
		return
	case errors.Is(err, store.ErrListingFull), errors.Is(err, store.ErrListingInactive), errors.Is(err, store.ErrNotFound):
		h.refund(ctx, attempt, paymentIntentID, err)
		return
	case err != nil:
		h.logger.Error("complete checkout", "checkout_id", attempt.ID, "error", err)
		return
	}

	h.logger.Info("rental created", "rental_id", rentalID, "listing_id", attempt.ListingID, "renter_id", attempt.RenterID)

	listing, err := h.listingStore.GetByID(attempt.ListingID)
	if err != nil || listing == nil {
		h.logger.Error("get listing after rental", "listing_id", attempt.ListingID, "error", err)
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.Event{Type: websocket.ListingUpdated, ListingID: listing.ID, SubscribedUsers: &listing.SubscribedUsers})
		h.hub.Notify(websocket.Event{Type: websocket.RentalCreated, RentalID: rentalID, ListingID: listing.ID}, attempt.RenterID, listing.OwnerID)
	}

	rental, ok := h.rentalNotice(attempt, listing)
	if !ok {
		return
	}
	if err := h.mailer.SendRentalConfirmation(ctx, rental); err != nil {
		h.logger.Error("send rental confirmation", "rental_id", rentalID, "error", err)
	}
	if err := h.mailer.SendNewRenterNotice(ctx, rental); err != nil {
		h.logger.Error("send new renter notice", "rental_id", rentalID, "error", err)
	}
}

// refund returns a payment whose listing could no longer take the renter.
func (h *WebhookHandler) refund(ctx context.Context, attempt *model.CheckoutSession, paymentIntentID string, cause error) {
	h.logger.Warn("paid checkout could not subscribe, refunding",
		"checkout_id", attempt.ID, "listing_id", attempt.ListingID, "reason", cause)

	if paymentIntentID == "" {
		h.logger.Error("refund without payment intent", "checkout_id", attempt.ID)
		return
	}
	if err := h.processor.Refund(ctx, paymentIntentID); err != nil {
		h.logger.Error("refund payment", "checkout_id", attempt.ID, "error", err)
		return
	}
	if err := h.checkoutStore.Settle(attempt.ID, model.CheckoutStatusRefunded, paymentIntentID); err != nil {
		h.logger.Error("mark checkout refunded", "checkout_id", attempt.ID, "error", err)
	}

	listing, err := h.listingStore.GetByID(attempt.ListingID)
	if err != nil {
		h.logger.Error("get listing for refund notice", "listing_id", attempt.ListingID, "error", err)
		return
	}
	rental, ok := h.rentalNotice(attempt, listing)
	if !ok {
		return
	}
	if err := h.mailer.SendRefundNotice(ctx, rental); err != nil {
		h.logger.Error("send refund notice", "checkout_id", attempt.ID, "error", err)
	}
}

// rentalNotice gathers what the notification emails need. It reports false
// when mail is not configured or the parties cannot be loaded.
func (h *WebhookHandler) rentalNotice(attempt *model.CheckoutSession, listing *model.Listing) (email.Rental, bool) {
	if h.mailer == nil || !h.mailer.Configured() || listing == nil {
		return email.Rental{}, false
	}
	renter, err := h.userStore.GetByID(attempt.RenterID)
	if err != nil || renter == nil {
		h.logger.Error("get renter for notice", "user_id", attempt.RenterID, "error", err)
		return email.Rental{}, false
	}
	owner, err := h.userStore.GetByID(listing.OwnerID)
	if err != nil || owner == nil {
		h.logger.Error("get owner for notice", "user_id", listing.OwnerID, "error", err)
		return email.Rental{}, false
	}
	return email.Rental{
		ToolName:    listing.ToolName,
		PlanName:    listing.PlanName,
		Price:       float64(attempt.AmountCents) / 100,
		RenterEmail: renter.Email,
		OwnerEmail:  owner.Email,
	}, true
}

func (h *WebhookHandler) handleCheckoutExpired(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	attempt, err := h.attemptFor(sess)
	if err != nil || attempt == nil {
		h.logger.Warn("expired session without attempt", "session_id", sess.ID, "error", err)
		return
	}
	err = h.checkoutStore.Settle(attempt.ID, model.CheckoutStatusExpired, "")
	if err != nil && !errors.Is(err, store.ErrNotPending) {
		h.logger.Error("expire checkout", "checkout_id", attempt.ID, "error", err)
	}
}

func (h *WebhookHandler) handleAccountUpdated(event stripe.Event) {
	var acct stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
		h.logger.Error("unmarshal account", "error", err)
		return
	}
	if !acct.ChargesEnabled || !acct.DetailsSubmitted {
		return
	}

	updated, err := h.userStore.MarkConnectValidated(acct.ID)
	if err != nil {
		h.logger.Error("mark connect account validated", "account_id", acct.ID, "error", err)
		return
	}
	if updated {
		h.logger.Info("connect account validated by webhook", "account_id", acct.ID)
	}
}
