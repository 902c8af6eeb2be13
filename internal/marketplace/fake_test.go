package marketplace

import (
	"context"
	"errors"
	"sync"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/rpc"
)

var errTransport = errors.New("dial tcp 127.0.0.1:8080: connection refused")

// fakeBackend records calls and answers from its fields.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	listings []model.Listing
	tools    []model.Tool
	rented   []model.RentedTool
	out      []model.RentedTool
	account  rpc.GetUserStripeAccountResponse
	nextID   int64

	lastRentedFilter *model.RentedFilter

	// err, when set for an endpoint name, is returned instead of a reply.
	err map[string]error

	toggleResult *bool
	connect      rpc.CreateConnectAccountResponse
	checkout     rpc.ProcessRentPaymentResponse
	block        chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: map[string]int{}, err: map[string]error{}, nextID: 100}
}

func (f *fakeBackend) record(name string) error {
	f.mu.Lock()
	f.calls[name]++
	block := f.block
	err := f.err[name]
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) GetRentListings(ctx context.Context, filter *model.ListingFilter) (rpc.GetRentListingsResponse, error) {
	if err := f.record(rpc.GetRentListings); err != nil {
		return rpc.GetRentListingsResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.Listing(nil), f.listings...)
	return rpc.GetRentListingsResponse{Listings: out, TotalCount: len(out)}, nil
}

func (f *fakeBackend) GetTools(ctx context.Context) ([]model.Tool, error) {
	if err := f.record(rpc.GetTools); err != nil {
		return nil, err
	}
	return f.tools, nil
}

func (f *fakeBackend) CreateRentListing(ctx context.Context, req rpc.CreateRentListingRequest) (rpc.CreateRentListingResponse, error) {
	if err := f.record(rpc.CreateRentListing); err != nil {
		return rpc.CreateRentListingResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l := model.Listing{
		ID:             f.nextID,
		OwnerID:        1,
		ToolID:         req.ToolID,
		PlanID:         req.PlanID,
		Price:          req.Price,
		TotalUsers:     req.TotalUsers,
		UnlimitedUsers: req.UnlimitedUsers,
		IsActive:       true,
	}
	f.listings = append(f.listings, l)
	return rpc.CreateRentListingResponse{Message: "Listing created successfully", Listing: l}, nil
}

func (f *fakeBackend) ToggleListingActive(ctx context.Context, id int64) (rpc.ToggleListingActiveResponse, error) {
	if err := f.record(rpc.ToggleListingActive); err != nil {
		return rpc.ToggleListingActiveResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.listings {
		if f.listings[i].ID == id {
			f.listings[i].IsActive = !f.listings[i].IsActive
			active := f.listings[i].IsActive
			if f.toggleResult != nil {
				active = *f.toggleResult
			}
			return rpc.ToggleListingActiveResponse{ListingID: id, IsActive: active}, nil
		}
	}
	return rpc.ToggleListingActiveResponse{}, &BusinessError{Message: "Listing not found"}
}

func (f *fakeBackend) GetRentedTools(ctx context.Context, filter *model.RentedFilter) ([]model.RentedTool, error) {
	if err := f.record(rpc.GetRentedTools); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastRentedFilter = filter
	f.mu.Unlock()
	return f.rented, nil
}

func (f *fakeBackend) GetRentedOutTools(ctx context.Context) ([]model.RentedTool, error) {
	if err := f.record(rpc.GetRentedOutTools); err != nil {
		return nil, err
	}
	return append([]model.RentedTool(nil), f.out...), nil
}

func (f *fakeBackend) UpdateRentedToolCredentials(ctx context.Context, req rpc.UpdateCredentialsRequest) (rpc.UpdateCredentialsResponse, error) {
	if err := f.record(rpc.UpdateRentedToolCredentials); err != nil {
		return rpc.UpdateCredentialsResponse{}, err
	}
	return rpc.UpdateCredentialsResponse{
		Message:      "Credentials updated successfully",
		RentedToolID: req.RentedToolID,
		Login:        req.Login,
		Password:     req.Password,
	}, nil
}

func (f *fakeBackend) GetUserStripeAccount(ctx context.Context, userID int64) (rpc.GetUserStripeAccountResponse, error) {
	if err := f.record(rpc.GetUserStripeAccount); err != nil {
		return rpc.GetUserStripeAccountResponse{}, err
	}
	return f.account, nil
}

func (f *fakeBackend) ValidateConnectAccount(ctx context.Context, id string) (rpc.ValidateConnectAccountResponse, error) {
	if err := f.record(rpc.ValidateConnectAccount); err != nil {
		return rpc.ValidateConnectAccountResponse{}, err
	}
	return rpc.ValidateConnectAccountResponse{Message: "Stripe account validated", StripeConnectAccountID: id}, nil
}

func (f *fakeBackend) CreateConnectAccount(ctx context.Context) (rpc.CreateConnectAccountResponse, error) {
	if err := f.record(rpc.CreateConnectAccount); err != nil {
		return rpc.CreateConnectAccountResponse{}, err
	}
	return f.connect, nil
}

func (f *fakeBackend) ProcessRentPayment(ctx context.Context, listingID int64) (rpc.ProcessRentPaymentResponse, error) {
	if err := f.record(rpc.ProcessRentPayment); err != nil {
		return rpc.ProcessRentPaymentResponse{}, err
	}
	return f.checkout, nil
}

type fakeNav struct {
	mu       sync.Mutex
	visited  []string
	replaced []string
	err      error
}

func (n *fakeNav) Navigate(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.visited = append(n.visited, url)
	return nil
}

func (n *fakeNav) ReplaceURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaced = append(n.replaced, url)
}

type fakeNotifier struct {
	got []Notification
}

func (n *fakeNotifier) Notify(note Notification) { n.got = append(n.got, note) }

func strPtr(s string) *string { return &s }

const (
	ownerID  int64 = 1
	renterID int64 = 2
)

func newOwner(b *fakeBackend, nav *fakeNav) *Marketplace {
	return New(b, nav, User{ID: ownerID, Name: "Olive", Email: "olive@example.com"}, nil)
}

func newRenter(b *fakeBackend, nav *fakeNav) *Marketplace {
	return New(b, nav, User{ID: renterID, Name: "Rex", Email: "rex@example.com"}, nil)
}
