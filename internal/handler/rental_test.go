package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/rpc"
)

func TestUpdateRentedToolCredentials(t *testing.T) {
	e := newTestEnv(t)
	l := e.createListing(t, 2)
	rental, err := e.rentals.Subscribe(l.ID, e.renter.ID, "pi_1")
	require.NoError(t, err)

	_, env := call(t, e.rental.UpdateRentedToolCredentials, e.renter.ID, rpc.UpdateCredentialsRequest{
		RentedToolID: rental.ID, Login: "x", Password: "y",
	})
	assert.False(t, env.Success, "renter cannot set credentials")

	_, env = call(t, e.rental.UpdateRentedToolCredentials, e.owner.ID, rpc.UpdateCredentialsRequest{
		RentedToolID: rental.ID, Login: "team@figma.test", Password: "s3cret",
	})
	require.True(t, env.Success)
	resp := data[rpc.UpdateCredentialsResponse](t, env)
	assert.Equal(t, "team@figma.test", resp.Login)
	assert.Equal(t, "s3cret", resp.Password)

	_, env = call(t, e.rental.GetRentedTools, e.renter.ID, nil)
	require.True(t, env.Success)
	rented := data[rpc.GetRentedToolsResponse](t, env).RentedTools
	require.Len(t, rented, 1)
	assert.Equal(t, "s3cret", *rented[0].Password)

	_, env = call(t, e.rental.GetRentedOutTools, e.owner.ID, nil)
	require.True(t, env.Success)
	assert.Len(t, data[rpc.GetRentedOutToolsResponse](t, env).RentedOutTools, 1)
}

func TestGetRentedToolsFilters(t *testing.T) {
	e := newTestEnv(t)
	l := e.createListing(t, 2)
	_, err := e.rentals.Subscribe(l.ID, e.renter.ID, "pi_1")
	require.NoError(t, err)

	miss := "zzz"
	_, env := call(t, e.rental.GetRentedTools, e.renter.ID, rpc.GetRentedToolsRequest{
		Filters: &model.RentedFilter{ToolName: &miss},
	})
	require.True(t, env.Success)
	assert.Empty(t, data[rpc.GetRentedToolsResponse](t, env).RentedTools)

	_, env = call(t, e.rental.GetRentedTools, e.owner.ID, nil)
	assert.Empty(t, data[rpc.GetRentedToolsResponse](t, env).RentedTools, "owner rents nothing")
}
