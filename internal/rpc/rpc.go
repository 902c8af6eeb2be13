// Package rpc defines the JSON wire format spoken between the toolshub
// backend and its clients. Every endpoint is POST /toolshub/api/{name} and
// every response is an envelope of the form {"success": bool, "data": {...}}.
package rpc

import (
	"encoding/json"

	"github.com/dukerupert/toolshub/internal/model"
)

// PathPrefix is the route prefix for every endpoint.
const PathPrefix = "/toolshub/api/"

const (
	GetRentListings             = "getRentListings"
	GetTools                    = "getTools"
	CreateRentListing           = "createRentListing"
	ToggleListingActive         = "toggleListingActive"
	GetRentedTools              = "getRentedTools"
	GetRentedOutTools           = "getRentedOutTools"
	UpdateRentedToolCredentials = "updateRentedToolCredentials"
	GetUserStripeAccount        = "getUserStripeAccount"
	ValidateConnectAccount      = "validateConnectAccount"
	CreateConnectAccount        = "createConnectAccount"
	ProcessRentPayment          = "processRentPayment"

	Login  = "login"
	Logout = "logout"
	Signup = "signup"
	Me     = "me"
)

// ErrorValidation marks a failure as a typed domain validation fault rather
// than a plain business-rule rejection.
const ErrorValidation = "validation_error"

// Reply is the envelope a handler writes.
type Reply struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Envelope is the envelope a client reads; Data is decoded per endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Failure is the data payload of an unsuccessful reply.
type Failure struct {
	Message       string   `json:"message"`
	Error         string   `json:"error,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// OK wraps data in a successful reply.
func OK(data any) Reply {
	return Reply{Success: true, Data: data}
}

// Fail builds a business-rule failure.
func Fail(message string) Reply {
	return Reply{Data: Failure{Message: message}}
}

// Invalid builds a domain validation failure.
func Invalid(message string, missing ...string) Reply {
	return Reply{Data: Failure{Message: message, Error: ErrorValidation, MissingFields: missing}}
}

type GetRentListingsRequest struct {
	Filters *model.ListingFilter `json:"filters,omitempty"`
}

type GetRentListingsResponse struct {
	Listings   []model.Listing `json:"listings"`
	TotalCount int             `json:"total_count"`
}

type GetToolsResponse struct {
	Tools []model.Tool `json:"tools"`
}

type CreateRentListingRequest struct {
	ToolID         int64   `json:"tool_id" validate:"required,gt=0"`
	PlanID         int64   `json:"plan_id" validate:"required,gt=0"`
	Price          float64 `json:"price" validate:"gt=0,lte=999999.99"`
	TotalUsers     int     `json:"total_users" validate:"gte=0"`
	UnlimitedUsers bool    `json:"unlimited_users"`
}

type CreateRentListingResponse struct {
	Message string        `json:"message"`
	Listing model.Listing `json:"listing"`
}

type ToggleListingActiveRequest struct {
	ListingID int64 `json:"listing_id" validate:"required,gt=0"`
}

type ToggleListingActiveResponse struct {
	ListingID int64 `json:"listing_id"`
	IsActive  bool  `json:"is_active"`
}

type GetRentedToolsRequest struct {
	Filters *model.RentedFilter `json:"filters,omitempty"`
}

type GetRentedToolsResponse struct {
	RentedTools []model.RentedTool `json:"rented_tools"`
}

type GetRentedOutToolsResponse struct {
	RentedOutTools []model.RentedTool `json:"rented_out_tools"`
}

type UpdateCredentialsRequest struct {
	RentedToolID int64  `json:"rented_tool_id" validate:"required,gt=0"`
	Login        string `json:"login" validate:"max=255"`
	Password     string `json:"password" validate:"max=255"`
}

type UpdateCredentialsResponse struct {
	Message      string `json:"message"`
	RentedToolID int64  `json:"rented_tool_id"`
	Login        string `json:"login"`
	Password     string `json:"password"`
}

type GetUserStripeAccountRequest struct {
	UserID int64 `json:"userId,omitempty"`
}

type GetUserStripeAccountResponse struct {
	StripeConnectAccountID *string             `json:"stripe_connect_account_id"`
	ConnectStatus          model.ConnectStatus `json:"connect_status"`
}

type ValidateConnectAccountRequest struct {
	ConnectID string `json:"connect_id" validate:"required,startswith=acct_"`
}

type ValidateConnectAccountResponse struct {
	Message                string `json:"message"`
	StripeConnectAccountID string `json:"stripe_connect_account_id"`
}

type CreateConnectAccountResponse struct {
	AccountID   string `json:"account_id"`
	AccountLink string `json:"account_link"`
}

// ListingRef identifies the listing a renter wants to pay for.
type ListingRef struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

type ProcessRentPaymentRequest struct {
	Listing ListingRef `json:"listing"`
}

type ProcessRentPaymentResponse struct {
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SessionResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}
