package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
	"github.com/dukerupert/toolshub/internal/websocket"
)

type RentalHandler struct {
	rentalStore *store.RentalStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewRentalHandler(rs *store.RentalStore, hub *websocket.Hub, logger *slog.Logger) *RentalHandler {
	return &RentalHandler{rentalStore: rs, hub: hub, logger: logger.With("component", "rentals")}
}

func (h *RentalHandler) GetRentedTools(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetRentedToolsRequest
	if !decode(w, r, &req) {
		return
	}

	var filter model.RentedFilter
	if req.Filters != nil {
		filter = *req.Filters
	}

	rented, err := h.rentalStore.ListByRenter(auth.UserID(r.Context()), filter)
	if err != nil {
		h.logger.Error("list rented tools", "error", err)
		internalError(w)
		return
	}
	if rented == nil {
		rented = []model.RentedTool{}
	}
	ok(w, rpc.GetRentedToolsResponse{RentedTools: rented})
}

func (h *RentalHandler) GetRentedOutTools(w http.ResponseWriter, r *http.Request) {
	rented, err := h.rentalStore.ListByOwner(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list rented out tools", "error", err)
		internalError(w)
		return
	}
	if rented == nil {
		rented = []model.RentedTool{}
	}
	ok(w, rpc.GetRentedOutToolsResponse{RentedOutTools: rented})
}

func (h *RentalHandler) UpdateRentedToolCredentials(w http.ResponseWriter, r *http.Request) {
	var req rpc.UpdateCredentialsRequest
	if !decode(w, r, &req) {
		return
	}

	rental, err := h.rentalStore.UpdateCredentials(req.RentedToolID, auth.UserID(r.Context()), req.Login, req.Password)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fail(w, "Rented tool not found")
		return
	case errors.Is(err, store.ErrForbidden):
		fail(w, "Only the listing owner can update credentials")
		return
	case err != nil:
		h.logger.Error("update credentials", "rented_tool_id", req.RentedToolID, "error", err)
		internalError(w)
		return
	}

	if h.hub != nil {
		h.hub.Notify(websocket.Event{Type: websocket.CredentialsUpdated, RentalID: rental.ID, ListingID: rental.ListingID}, rental.RenterID)
	}

	resp := rpc.UpdateCredentialsResponse{Message: "Credentials updated successfully", RentedToolID: rental.ID}
	if rental.Login != nil {
		resp.Login = *rental.Login
	}
	if rental.Password != nil {
		resp.Password = *rental.Password
	}
	ok(w, resp)
}
