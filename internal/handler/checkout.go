package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/payment"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
)

type CheckoutHandler struct {
	listingStore  *store.ListingStore
	userStore     *store.UserStore
	checkoutStore *store.CheckoutStore
	processor     Processor
	feePercent    int64
	logger        *slog.Logger
}

func NewCheckoutHandler(
	ls *store.ListingStore,
	us *store.UserStore,
	cs *store.CheckoutStore,
	p Processor,
	feePercent int64,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		listingStore:  ls,
		userStore:     us,
		checkoutStore: cs,
		processor:     p,
		feePercent:    feePercent,
		logger:        logger.With("component", "checkout"),
	}
}

// ProcessRentPayment opens a Stripe checkout for a listing. Capacity is
// checked here only to fail early; the slot is taken when the webhook
// confirms payment.
func (h *CheckoutHandler) ProcessRentPayment(w http.ResponseWriter, r *http.Request) {
	var req rpc.ProcessRentPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	userID := auth.UserID(r.Context())

	listing, err := h.listingStore.GetByID(req.Listing.ID)
	if err != nil {
		h.logger.Error("get listing", "listing_id", req.Listing.ID, "error", err)
		internalError(w)
		return
	}
	if msg := rentRefusal(listing, userID); msg != "" {
		fail(w, msg)
		return
	}

	owner, err := h.userStore.GetByID(listing.OwnerID)
	if err != nil {
		h.logger.Error("get listing owner", "listing_id", listing.ID, "error", err)
		internalError(w)
		return
	}
	if !owner.CanListPaid() {
		fail(w, "The owner of this listing cannot accept payments yet")
		return
	}

	renter, err := h.userStore.GetByID(userID)
	if err != nil || renter == nil {
		h.logger.Error("get renter", "user_id", userID, "error", err)
		internalError(w)
		return
	}

	if !payment.Chargeable(listing.Price) {
		h.logger.Warn("listing price not chargeable", "listing_id", listing.ID, "price", listing.Price)
		fail(w, "This listing's price cannot be charged")
		return
	}
	amount := payment.ToCents(listing.Price)
	fee := payment.PlatformFee(amount, h.feePercent)
	attempt, err := h.checkoutStore.Create(listing.ID, userID, amount, fee)
	if err != nil {
		h.logger.Error("create checkout attempt", "listing_id", listing.ID, "error", err)
		internalError(w)
		return
	}

	sess, err := h.processor.CreateCheckoutSession(r.Context(), payment.CheckoutRequest{
		Reference:          attempt.Reference,
		ListingID:          listing.ID,
		Description:        fmt.Sprintf("%s %s rental", listing.ToolName, listing.PlanName),
		AmountCents:        amount,
		FeeCents:           fee,
		DestinationAccount: *owner.StripeConnectAccountID,
		CustomerEmail:      renter.Email,
	})
	if err != nil {
		h.logger.Error("create checkout session", "listing_id", listing.ID, "error", err)
		if err := h.checkoutStore.Settle(attempt.ID, model.CheckoutStatusExpired, ""); err != nil {
			h.logger.Warn("expire failed checkout attempt", "checkout_id", attempt.ID, "error", err)
		}
		if msg := payment.UserMessage(err); msg != "" {
			fail(w, msg)
			return
		}
		internalError(w)
		return
	}

	if err := h.checkoutStore.SetStripeSessionID(attempt.ID, sess.ID); err != nil {
		h.logger.Error("store stripe session id", "checkout_id", attempt.ID, "error", err)
		internalError(w)
		return
	}

	h.logger.Info("checkout started", "checkout_id", attempt.ID, "listing_id", listing.ID, "renter_id", userID)
	ok(w, rpc.ProcessRentPaymentResponse{CheckoutURL: sess.URL, Reference: attempt.Reference})
}

// rentRefusal returns why userID may not rent l, or "" if they may.
func rentRefusal(l *model.Listing, userID int64) string {
	switch {
	case l == nil:
		return "Listing not found"
	case !l.IsActive:
		return "This listing is not available"
	case l.OwnerID == userID:
		return "You cannot rent your own listing"
	case !l.UnlimitedUsers && l.SubscribedUsers >= l.TotalUsers:
		return "This listing is full"
	}
	return ""
}
