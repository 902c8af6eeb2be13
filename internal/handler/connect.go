package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/payment"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
)

type ConnectHandler struct {
	userStore *store.UserStore
	processor Processor
	logger    *slog.Logger
}

func NewConnectHandler(us *store.UserStore, p Processor, logger *slog.Logger) *ConnectHandler {
	return &ConnectHandler{userStore: us, processor: p, logger: logger.With("component", "connect")}
}

// GetUserStripeAccount reports the caller's own onboarding state. The
// userId field is accepted for compatibility but must match the session.
func (h *ConnectHandler) GetUserStripeAccount(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetUserStripeAccountRequest
	if !decode(w, r, &req) {
		return
	}

	userID := auth.UserID(r.Context())
	if req.UserID != 0 && req.UserID != userID {
		fail(w, "You can only view your own Stripe account")
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		h.logger.Error("get user", "user_id", userID, "error", err)
		internalError(w)
		return
	}
	if user == nil {
		fail(w, "User not found")
		return
	}
	ok(w, rpc.GetUserStripeAccountResponse{
		StripeConnectAccountID: user.StripeConnectAccountID,
		ConnectStatus:          user.ConnectStatus,
	})
}

func (h *ConnectHandler) ValidateConnectAccount(w http.ResponseWriter, r *http.Request) {
	var req rpc.ValidateConnectAccountRequest
	if !decode(w, r, &req) {
		return
	}
	userID := auth.UserID(r.Context())

	existing, err := h.userStore.GetByConnectAccountID(req.ConnectID)
	if err != nil {
		h.logger.Error("lookup connect account", "error", err)
		internalError(w)
		return
	}
	if existing != nil && existing.ID != userID {
		fail(w, "This Stripe account is already linked to another user")
		return
	}

	status, err := h.processor.GetAccount(r.Context(), req.ConnectID)
	if errors.Is(err, payment.ErrAccountNotFound) {
		fail(w, "Invalid Stripe account ID")
		return
	}
	if err != nil {
		h.logger.Error("get stripe account", "account_id", req.ConnectID, "error", err)
		if msg := payment.UserMessage(err); msg != "" {
			fail(w, msg)
			return
		}
		internalError(w)
		return
	}
	if !status.Ready() {
		fail(w, "This Stripe account has not finished onboarding. Complete the Stripe setup and try again")
		return
	}

	if _, err := h.userStore.SetConnectAccount(userID, req.ConnectID, model.ConnectStatusValidated); err != nil {
		h.logger.Error("store connect account", "user_id", userID, "error", err)
		internalError(w)
		return
	}

	h.logger.Info("connect account validated", "user_id", userID, "account_id", req.ConnectID)
	ok(w, rpc.ValidateConnectAccountResponse{
		Message:                "Stripe account validated successfully",
		StripeConnectAccountID: req.ConnectID,
	})
}

// CreateConnectAccount provisions an Express account, or reuses the
// caller's pending one, and returns a fresh onboarding link.
func (h *ConnectHandler) CreateConnectAccount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		h.logger.Error("get user", "user_id", userID, "error", err)
		internalError(w)
		return
	}
	if user.CanListPaid() {
		fail(w, "Your Stripe account is already connected")
		return
	}

	var accountID string
	if user.StripeConnectAccountID != nil {
		accountID = *user.StripeConnectAccountID
	} else {
		accountID, err = h.processor.CreateConnectAccount(r.Context(), user.Email)
		if err != nil {
			h.failStripe(w, "create connect account", err)
			return
		}
		if _, err := h.userStore.SetConnectAccount(userID, accountID, model.ConnectStatusPending); err != nil {
			h.logger.Error("store connect account", "user_id", userID, "error", err)
			internalError(w)
			return
		}
	}

	link, err := h.processor.CreateAccountLink(r.Context(), accountID)
	if err != nil {
		h.failStripe(w, "create account link", err)
		return
	}
	ok(w, rpc.CreateConnectAccountResponse{AccountID: accountID, AccountLink: link})
}

func (h *ConnectHandler) failStripe(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action, "error", err)
	if msg := payment.UserMessage(err); msg != "" {
		fail(w, msg)
		return
	}
	internalError(w)
}
