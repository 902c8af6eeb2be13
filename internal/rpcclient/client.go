// Package rpcclient implements marketplace.Backend over the toolshub JSON
// RPC endpoints.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/toolshub/internal/marketplace"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/rpc"
)

var _ marketplace.Backend = (*Client)(nil)

// Client talks to a toolshub server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithToken authenticates every request with a session token.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned when the server answers with a non-200 status
// that carries no envelope the client can show.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
}

// call posts req to endpoint and decodes a successful reply into out. A
// success:false reply becomes *marketplace.BusinessError or
// *marketplace.DomainValidationError.
func (c *Client) call(ctx context.Context, endpoint string, req, out any) error {
	if req == nil {
		req = struct{}{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpc.PathPrefix+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var env rpc.Envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env)

	// Server faults are never shown verbatim, envelope or not.
	if resp.StatusCode < 500 && !env.Success && decodeErr == nil && len(env.Data) > 0 {
		var f rpc.Failure
		if err := json.Unmarshal(env.Data, &f); err == nil && f.Message != "" {
			if f.Error == rpc.ErrorValidation {
				return &marketplace.DomainValidationError{Message: f.Message, MissingFields: f.MissingFields}
			}
			return &marketplace.BusinessError{Message: f.Message}
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Endpoint: endpoint, Status: resp.StatusCode}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, decodeErr)
	}
	if !env.Success {
		return fmt.Errorf("%s: unsuccessful reply without message", endpoint)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", endpoint, err)
	}
	return nil
}

func (c *Client) GetRentListings(ctx context.Context, filter *model.ListingFilter) (rpc.GetRentListingsResponse, error) {
	var out rpc.GetRentListingsResponse
	err := c.call(ctx, rpc.GetRentListings, rpc.GetRentListingsRequest{Filters: filter}, &out)
	return out, err
}

func (c *Client) GetTools(ctx context.Context) ([]model.Tool, error) {
	var out rpc.GetToolsResponse
	err := c.call(ctx, rpc.GetTools, nil, &out)
	return out.Tools, err
}

func (c *Client) CreateRentListing(ctx context.Context, req rpc.CreateRentListingRequest) (rpc.CreateRentListingResponse, error) {
	var out rpc.CreateRentListingResponse
	err := c.call(ctx, rpc.CreateRentListing, req, &out)
	return out, err
}

func (c *Client) ToggleListingActive(ctx context.Context, listingID int64) (rpc.ToggleListingActiveResponse, error) {
	var out rpc.ToggleListingActiveResponse
	err := c.call(ctx, rpc.ToggleListingActive, rpc.ToggleListingActiveRequest{ListingID: listingID}, &out)
	return out, err
}

func (c *Client) GetRentedTools(ctx context.Context, filter *model.RentedFilter) ([]model.RentedTool, error) {
	var out rpc.GetRentedToolsResponse
	err := c.call(ctx, rpc.GetRentedTools, rpc.GetRentedToolsRequest{Filters: filter}, &out)
	return out.RentedTools, err
}

func (c *Client) GetRentedOutTools(ctx context.Context) ([]model.RentedTool, error) {
	var out rpc.GetRentedOutToolsResponse
	err := c.call(ctx, rpc.GetRentedOutTools, nil, &out)
	return out.RentedOutTools, err
}

func (c *Client) UpdateRentedToolCredentials(ctx context.Context, req rpc.UpdateCredentialsRequest) (rpc.UpdateCredentialsResponse, error) {
	var out rpc.UpdateCredentialsResponse
	err := c.call(ctx, rpc.UpdateRentedToolCredentials, req, &out)
	return out, err
}

func (c *Client) GetUserStripeAccount(ctx context.Context, userID int64) (rpc.GetUserStripeAccountResponse, error) {
	var out rpc.GetUserStripeAccountResponse
	err := c.call(ctx, rpc.GetUserStripeAccount, rpc.GetUserStripeAccountRequest{UserID: userID}, &out)
	return out, err
}

func (c *Client) ValidateConnectAccount(ctx context.Context, connectID string) (rpc.ValidateConnectAccountResponse, error) {
	var out rpc.ValidateConnectAccountResponse
	err := c.call(ctx, rpc.ValidateConnectAccount, rpc.ValidateConnectAccountRequest{ConnectID: connectID}, &out)
	return out, err
}

func (c *Client) CreateConnectAccount(ctx context.Context) (rpc.CreateConnectAccountResponse, error) {
	var out rpc.CreateConnectAccountResponse
	err := c.call(ctx, rpc.CreateConnectAccount, nil, &out)
	return out, err
}

func (c *Client) ProcessRentPayment(ctx context.Context, listingID int64) (rpc.ProcessRentPaymentResponse, error) {
	var out rpc.ProcessRentPaymentResponse
	err := c.call(ctx, rpc.ProcessRentPayment, rpc.ProcessRentPaymentRequest{Listing: rpc.ListingRef{ID: listingID}}, &out)
	return out, err
}

// Login exchanges email and password for a session token and keeps the
// token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (rpc.SessionResponse, error) {
	var out rpc.SessionResponse
	if err := c.call(ctx, rpc.Login, rpc.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return out, err
	}
	c.setToken(out.Token)
	return out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, rpc.Logout, nil, nil); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

// Me returns the user the session token belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.call(ctx, rpc.Me, nil, &out)
	return out, err
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}
