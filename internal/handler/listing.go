package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/payment"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
	"github.com/dukerupert/toolshub/internal/websocket"
)

const maxListingPage = 100

type ListingHandler struct {
	listingStore *store.ListingStore
	toolStore    *store.ToolStore
	userStore    *store.UserStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewListingHandler(ls *store.ListingStore, ts *store.ToolStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listingStore: ls,
		toolStore:    ts,
		userStore:    us,
		hub:          hub,
		logger:       logger.With("component", "listings"),
	}
}

func (h *ListingHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

func (h *ListingHandler) GetRentListings(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetRentListingsRequest
	if !decode(w, r, &req) {
		return
	}

	var filter model.ListingFilter
	if req.Filters != nil {
		filter = *req.Filters
	}
	if filter.Limit <= 0 || filter.Limit > maxListingPage {
		filter.Limit = maxListingPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	listings, total, err := h.listingStore.List(auth.UserID(r.Context()), filter)
	if err != nil {
		h.logger.Error("list listings", "error", err)
		internalError(w)
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	ok(w, rpc.GetRentListingsResponse{Listings: listings, TotalCount: total})
}

func (h *ListingHandler) GetTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.toolStore.List()
	if err != nil {
		h.logger.Error("list tools", "error", err)
		internalError(w)
		return
	}
	if tools == nil {
		tools = []model.Tool{}
	}
	ok(w, rpc.GetToolsResponse{Tools: tools})
}

func (h *ListingHandler) CreateRentListing(w http.ResponseWriter, r *http.Request) {
	var req rpc.CreateRentListingRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.UnlimitedUsers && req.TotalUsers <= 0 {
		invalid(w, "total_users must be greater than 0 unless unlimited_users is set", "total_users")
		return
	}
	if !payment.Chargeable(req.Price) {
		invalid(w, fmt.Sprintf("price must be between %.2f and %.2f", float64(payment.MinChargeCents)/100, payment.MaxPrice))
		return
	}

	userID := auth.UserID(r.Context())
	user, err := h.userStore.GetByID(userID)
	if err != nil {
		h.logger.Error("get owner", "user_id", userID, "error", err)
		internalError(w)
		return
	}
	if !user.CanListPaid() {
		fail(w, "Please connect and validate your Stripe account before creating listings")
		return
	}

	plan, err := h.toolStore.GetPlan(req.PlanID)
	if err != nil {
		h.logger.Error("get plan", "plan_id", req.PlanID, "error", err)
		internalError(w)
		return
	}
	if plan == nil || plan.ToolID != req.ToolID {
		invalid(w, "The selected plan does not belong to this tool")
		return
	}

	listing, err := h.listingStore.Create(userID, model.NewListing{
		ToolID:         req.ToolID,
		PlanID:         req.PlanID,
		Price:          req.Price,
		TotalUsers:     req.TotalUsers,
		UnlimitedUsers: req.UnlimitedUsers,
	})
	if err != nil {
		h.logger.Error("create listing", "user_id", userID, "error", err)
		internalError(w)
		return
	}

	h.logger.Info("listing created", "listing_id", listing.ID, "owner_id", userID)
	h.broadcast(websocket.Event{Type: websocket.ListingUpdated, ListingID: listing.ID, IsActive: &listing.IsActive})

	ok(w, rpc.CreateRentListingResponse{Message: "Listing created successfully", Listing: *listing})
}

func (h *ListingHandler) ToggleListingActive(w http.ResponseWriter, r *http.Request) {
	var req rpc.ToggleListingActiveRequest
	if !decode(w, r, &req) {
		return
	}

	active, err := h.listingStore.ToggleActive(req.ListingID, auth.UserID(r.Context()))
	switch {
	case errors.Is(err, store.ErrNotFound):
		fail(w, "Listing not found")
		return
	case errors.Is(err, store.ErrForbidden):
		fail(w, "Only the owner can change this listing")
		return
	case err != nil:
		h.logger.Error("toggle listing", "listing_id", req.ListingID, "error", err)
		internalError(w)
		return
	}

	h.broadcast(websocket.Event{Type: websocket.ListingUpdated, ListingID: req.ListingID, IsActive: &active})
	ok(w, rpc.ToggleListingActiveResponse{ListingID: req.ListingID, IsActive: active})
}
