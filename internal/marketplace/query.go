package marketplace

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/opstate"
	"github.com/dukerupert/toolshub/internal/rpc"
)

// Listing prices must fall within what the payment processor can charge.
const (
	minPrice = 0.50
	maxPrice = 999999.99
)

// RentedFilters narrows the rented-by-me collection. Nil fields impose no
// constraint.
type RentedFilters = model.RentedFilter

// FetchRentListings replaces the rent listings with a fresh copy from the
// backend. On failure the previous collection is kept.
func (m *Marketplace) FetchRentListings(ctx context.Context, filter *model.ListingFilter) ([]model.Listing, error) {
	resp, err := m.backend.GetRentListings(ctx, filter)
	if err != nil {
		return nil, classify("loading listings", err)
	}

	m.mu.Lock()
	m.listings = resp.Listings
	m.listingTotal = resp.TotalCount
	m.listingFilter = filter
	m.mu.Unlock()
	return slices.Clone(resp.Listings), nil
}

func (m *Marketplace) FetchTools(ctx context.Context) ([]model.Tool, error) {
	tools, err := m.backend.GetTools(ctx)
	if err != nil {
		return nil, classify("loading tools", err)
	}

	m.mu.Lock()
	m.tools = tools
	m.mu.Unlock()
	return slices.Clone(tools), nil
}

// FetchRentedByMe reloads the tools the user rents, wholesale, for the
// given filters.
func (m *Marketplace) FetchRentedByMe(ctx context.Context, filters *RentedFilters) ([]model.RentedTool, error) {
	rented, err := m.backend.GetRentedTools(ctx, filters)
	if err != nil {
		return nil, classify("loading rented tools", err)
	}

	m.mu.Lock()
	m.rentedByMe = rented
	m.mu.Unlock()
	return slices.Clone(rented), nil
}

func (m *Marketplace) FetchRentedOut(ctx context.Context) ([]model.RentedTool, error) {
	rented, err := m.backend.GetRentedOutTools(ctx)
	if err != nil {
		return nil, classify("loading rented out tools", err)
	}

	m.mu.Lock()
	m.rentedOut = rented
	m.mu.Unlock()
	return slices.Clone(rented), nil
}

func (m *Marketplace) Listings() []model.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.listings)
}

// ListingTotal is the total number of listings matching the last filter,
// regardless of paging.
func (m *Marketplace) ListingTotal() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listingTotal
}

func (m *Marketplace) Tools() []model.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tools)
}

func (m *Marketplace) RentedByMe() []model.RentedTool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rentedByMe)
}

func (m *Marketplace) RentedOut() []model.RentedTool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rentedOut)
}

// Cards returns every loaded item as a card for the current user: rent
// listings first, then rented-by-me, then rented-out.
func (m *Marketplace) Cards() []Card {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cards := make([]Card, 0, len(m.listings)+len(m.rentedByMe)+len(m.rentedOut))
	for _, l := range m.listings {
		cards = append(cards, ListingCard{Listing: l, ViewerID: m.user.ID})
	}
	for _, a := range m.rentedByMe {
		cards = append(cards, RentedByMeCard{Asset: a})
	}
	for _, a := range m.rentedOut {
		cards = append(cards, RentedOutCard{Asset: a})
	}
	return cards
}

// ToggleListingActive flips a listing's visibility. The local listing takes
// the backend's is_active value only after the backend confirms.
func (m *Marketplace) ToggleListingActive(ctx context.Context, listingID int64) (bool, error) {
	var active bool
	err := m.guard(opstate.ToggleListing, "updating the listing", func() error {
		resp, err := m.backend.ToggleListingActive(ctx, listingID)
		if err != nil {
			return err
		}
		active = resp.IsActive

		m.mu.Lock()
		defer m.mu.Unlock()
		for i := range m.listings {
			if m.listings[i].ID == listingID {
				m.listings[i].IsActive = resp.IsActive
			}
		}
		return nil
	})
	return active, err
}

// NewListingInput is what an owner fills in to create a listing.
type NewListingInput struct {
	ToolID         int64
	PlanID         int64
	Price          float64
	TotalUsers     int
	UnlimitedUsers bool
}

func (in NewListingInput) validate(tools []model.Tool) error {
	if in.ToolID <= 0 || in.PlanID <= 0 {
		return &ValidationError{Field: "tool_id", Message: "Please select a tool and plan"}
	}
	if in.Price <= 0 {
		return &ValidationError{Field: "price", Message: "Price must be greater than zero"}
	}
	if in.Price < minPrice || in.Price > maxPrice {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("Price must be between %.2f and %.2f", minPrice, maxPrice)}
	}
	if !in.UnlimitedUsers && in.TotalUsers <= 0 {
		return &ValidationError{Field: "total_users", Message: "Total users must be greater than zero"}
	}
	if len(tools) == 0 {
		return nil
	}
	i := slices.IndexFunc(tools, func(t model.Tool) bool { return t.ID == in.ToolID })
	if i < 0 {
		return &ValidationError{Field: "tool_id", Message: "Please select a tool and plan"}
	}
	if !slices.Contains(tools[i].PlanIDs, in.PlanID) {
		return &ValidationError{Field: "plan_id", Message: "The selected plan does not belong to this tool"}
	}
	return nil
}

// CreateListing validates the input locally, checks the connect-account
// gate, creates the listing and reloads the rent listings. Invalid input
// never reaches the backend.
func (m *Marketplace) CreateListing(ctx context.Context, in NewListingInput) (model.Listing, error) {
	if err := in.validate(m.Tools()); err != nil {
		return model.Listing{}, err
	}

	decision, err := m.AttemptOpenListingCreation(ctx)
	if err != nil {
		return model.Listing{}, err
	}
	if decision.Route != RouteListingForm {
		return model.Listing{}, ErrConnectAccountRequired
	}

	if in.UnlimitedUsers {
		in.TotalUsers = 0
	}

	var created model.Listing
	err = m.guard(opstate.CreateListing, "creating the listing", func() error {
		resp, err := m.backend.CreateRentListing(ctx, rpc.CreateRentListingRequest{
			ToolID:         in.ToolID,
			PlanID:         in.PlanID,
			Price:          in.Price,
			TotalUsers:     in.TotalUsers,
			UnlimitedUsers: in.UnlimitedUsers,
		})
		if err != nil {
			return err
		}
		created = resp.Listing
		return nil
	})
	if err != nil {
		return model.Listing{}, err
	}

	m.mu.RLock()
	filter := m.listingFilter
	m.mu.RUnlock()
	if _, err := m.FetchRentListings(ctx, filter); err != nil {
		m.logger.Warn("reload listings after create", "listing_id", created.ID, "error", err)
	}
	return created, nil
}
