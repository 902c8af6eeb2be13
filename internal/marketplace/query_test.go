package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/rpc"
)

func catalog() []model.Tool {
	return []model.Tool{
		{ID: 1, Name: "Figma", PlanIDs: []int64{10, 11}},
		{ID: 2, Name: "Notion", PlanIDs: []int64{20}},
	}
}

func validatedOwner(b *fakeBackend) *Marketplace {
	b.account = rpc.GetUserStripeAccountResponse{
		StripeConnectAccountID: strPtr("acct_owner"),
		ConnectStatus:          model.ConnectStatusValidated,
	}
	b.tools = catalog()
	return newOwner(b, &fakeNav{})
}

func TestFetchRentListingsFailureKeepsPrevious(t *testing.T) {
	b := newFakeBackend()
	b.listings = []model.Listing{{ID: 1}, {ID: 2}}
	m := newRenter(b, &fakeNav{})

	got, err := m.FetchRentListings(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, m.ListingTotal())

	b.err[rpc.GetRentListings] = &BusinessError{Message: "Database unavailable"}
	_, err = m.FetchRentListings(context.Background(), nil)
	assert.EqualError(t, err, "Database unavailable")
	assert.Len(t, m.Listings(), 2)
}

func TestFetchRentedByMePassesFilters(t *testing.T) {
	b := newFakeBackend()
	b.rented = []model.RentedTool{{ID: 1, ToolName: "Figma"}}
	m := newRenter(b, &fakeNav{})

	name := "fig"
	maxPrice := 20.0
	_, err := m.FetchRentedByMe(context.Background(), &RentedFilters{ToolName: &name, MaxPrice: &maxPrice})
	require.NoError(t, err)

	require.NotNil(t, b.lastRentedFilter)
	assert.Equal(t, "fig", *b.lastRentedFilter.ToolName)
	assert.Nil(t, b.lastRentedFilter.MinPrice)
	assert.Len(t, m.RentedByMe(), 1)
}

func TestFetchRentedOutTransportFailure(t *testing.T) {
	b := newFakeBackend()
	b.out = []model.RentedTool{{ID: 1}}
	m := newOwner(b, &fakeNav{})
	_, err := m.FetchRentedOut(context.Background())
	require.NoError(t, err)

	b.err[rpc.GetRentedOutTools] = errTransport
	_, err = m.FetchRentedOut(context.Background())
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.Len(t, m.RentedOut(), 1)
}

func TestToggleListingActive(t *testing.T) {
	b := newFakeBackend()
	b.listings = []model.Listing{{ID: 7, OwnerID: ownerID, IsActive: true}}
	m := newOwner(b, &fakeNav{})
	_, err := m.FetchRentListings(context.Background(), nil)
	require.NoError(t, err)

	active, err := m.ToggleListingActive(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, active)
	assert.False(t, m.Listings()[0].IsActive)
}

func TestToggleListingActiveUsesServerValue(t *testing.T) {
	b := newFakeBackend()
	b.listings = []model.Listing{{ID: 7, OwnerID: ownerID, IsActive: true}}
	stillActive := true
	b.toggleResult = &stillActive
	m := newOwner(b, &fakeNav{})
	_, err := m.FetchRentListings(context.Background(), nil)
	require.NoError(t, err)

	active, err := m.ToggleListingActive(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, active)
	assert.True(t, m.Listings()[0].IsActive)
}

func TestToggleListingActiveFailureLeavesValue(t *testing.T) {
	b := newFakeBackend()
	b.listings = []model.Listing{{ID: 7, OwnerID: ownerID, IsActive: true}}
	m := newOwner(b, &fakeNav{})
	_, err := m.FetchRentListings(context.Background(), nil)
	require.NoError(t, err)

	b.err[rpc.ToggleListingActive] = &BusinessError{Message: "Only the owner can change this listing"}
	_, err = m.ToggleListingActive(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, m.Listings()[0].IsActive)
}

func TestCreateListingInvalidInputIssuesNoRequest(t *testing.T) {
	tests := []struct {
		name  string
		in    NewListingInput
		field string
	}{
		{"missing tool", NewListingInput{PlanID: 10, Price: 5, TotalUsers: 2}, "tool_id"},
		{"missing plan", NewListingInput{ToolID: 1, Price: 5, TotalUsers: 2}, "tool_id"},
		{"zero price", NewListingInput{ToolID: 1, PlanID: 10, TotalUsers: 2}, "price"},
		{"negative price", NewListingInput{ToolID: 1, PlanID: 10, Price: -1, TotalUsers: 2}, "price"},
		{"sub-cent price", NewListingInput{ToolID: 1, PlanID: 10, Price: 0.001, TotalUsers: 2}, "price"},
		{"huge price", NewListingInput{ToolID: 1, PlanID: 10, Price: 1e30, TotalUsers: 2}, "price"},
		{"no seats", NewListingInput{ToolID: 1, PlanID: 10, Price: 5}, "total_users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			m := validatedOwner(b)

			_, err := m.CreateListing(context.Background(), tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 0, b.total())
		})
	}
}

func TestCreateListingPlanMustBelongToTool(t *testing.T) {
	b := newFakeBackend()
	m := validatedOwner(b)
	_, err := m.FetchTools(context.Background())
	require.NoError(t, err)

	_, err = m.CreateListing(context.Background(), NewListingInput{ToolID: 1, PlanID: 20, Price: 5, TotalUsers: 2})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "plan_id", ve.Field)
	assert.Equal(t, 0, b.count(rpc.CreateRentListing))
}

func TestCreateListingRequiresConnectAccount(t *testing.T) {
	b := newFakeBackend()
	m := newOwner(b, &fakeNav{})

	_, err := m.CreateListing(context.Background(), NewListingInput{ToolID: 1, PlanID: 10, Price: 5, TotalUsers: 2})
	assert.ErrorIs(t, err, ErrConnectAccountRequired)
	assert.Equal(t, 0, b.count(rpc.CreateRentListing))
}

func TestCreateListingAppearsOnceAfterReload(t *testing.T) {
	b := newFakeBackend()
	b.listings = []model.Listing{{ID: 1, OwnerID: 9, IsActive: true}}
	m := validatedOwner(b)

	created, err := m.CreateListing(context.Background(), NewListingInput{ToolID: 1, PlanID: 10, Price: 15, TotalUsers: 4})
	require.NoError(t, err)

	var matches int
	for _, l := range m.Listings() {
		if l.ID == created.ID {
			matches++
		}
	}
	assert.Equal(t, 1, matches)
	assert.Len(t, m.Listings(), 2)
	assert.Equal(t, 1, b.count(rpc.GetRentListings))
}

func TestCreateListingUnlimitedSendsZeroSeats(t *testing.T) {
	b := newFakeBackend()
	m := validatedOwner(b)

	created, err := m.CreateListing(context.Background(), NewListingInput{ToolID: 2, PlanID: 20, Price: 30, TotalUsers: 9, UnlimitedUsers: true})
	require.NoError(t, err)
	assert.True(t, created.UnlimitedUsers)
	assert.Equal(t, 0, created.TotalUsers)
}

func TestCardsForViewer(t *testing.T) {
	b := newFakeBackend()
	b.listings = []model.Listing{
		{ID: 1, OwnerID: ownerID, TotalUsers: 2, IsActive: true},
		{ID: 2, OwnerID: 9, TotalUsers: 2, SubscribedUsers: 2, IsActive: true},
		{ID: 3, OwnerID: 9, TotalUsers: 2, IsActive: true},
	}
	b.rented = []model.RentedTool{{ID: 4}}
	b.out = []model.RentedTool{{ID: 5}}
	m := newOwner(b, &fakeNav{})
	ctx := context.Background()
	_, err := m.FetchRentListings(ctx, nil)
	require.NoError(t, err)
	_, err = m.FetchRentedByMe(ctx, nil)
	require.NoError(t, err)
	_, err = m.FetchRentedOut(ctx)
	require.NoError(t, err)

	var labels []string
	for _, c := range m.Cards() {
		labels = append(labels, c.ActionLabel())
	}
	assert.Equal(t, []string{LabelYourListing, LabelFull, LabelRentNow, LabelViewCredentials, LabelViewCredentials}, labels)
}
