package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/database"
	"github.com/dukerupert/toolshub/internal/email"
	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/payment"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
	"github.com/dukerupert/toolshub/internal/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type prefixSealer struct{}

func (prefixSealer) Seal(p string) (string, error) { return "sealed:" + p, nil }

func (prefixSealer) Open(c string) (string, error) {
	if !strings.HasPrefix(c, "sealed:") {
		return "", errors.New("not sealed")
	}
	return strings.TrimPrefix(c, "sealed:"), nil
}

// fakeProcessor stands in for Stripe.
type fakeProcessor struct {
	mu       sync.Mutex
	accounts map[string]payment.AccountStatus
	created  []string
	checkout []payment.CheckoutRequest
	refunds  []string
	event    stripe.Event
	sigErr   error
	err      error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{accounts: map[string]payment.AccountStatus{}}
}

func (p *fakeProcessor) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	id := "acct_new" + string(rune('0'+len(p.created)))
	p.created = append(p.created, email)
	return id, nil
}

func (p *fakeProcessor) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	return "https://connect.stripe.test/setup/" + accountID, nil
}

func (p *fakeProcessor) GetAccount(ctx context.Context, accountID string) (payment.AccountStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.accounts[accountID]
	if !ok {
		return payment.AccountStatus{}, payment.ErrAccountNotFound
	}
	return st, nil
}

func (p *fakeProcessor) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return payment.CheckoutSession{}, p.err
	}
	p.checkout = append(p.checkout, req)
	id := "cs_test_" + req.Reference
	return payment.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (p *fakeProcessor) Refund(ctx context.Context, paymentIntentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds = append(p.refunds, paymentIntentID)
	return nil
}

func (p *fakeProcessor) ConstructWebhookEvent(payload []byte, sig string) (stripe.Event, error) {
	if p.sigErr != nil {
		return stripe.Event{}, p.sigErr
	}
	return p.event, nil
}

type sentMail struct {
	kind string
	to   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Configured() bool { return true }

func (m *fakeMailer) record(kind, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind, to})
	return nil
}

func (m *fakeMailer) SendRentalConfirmation(ctx context.Context, r email.Rental) error {
	return m.record("confirmation", r.RenterEmail)
}

func (m *fakeMailer) SendNewRenterNotice(ctx context.Context, r email.Rental) error {
	return m.record("new_renter", r.OwnerEmail)
}

func (m *fakeMailer) SendRefundNotice(ctx context.Context, r email.Rental) error {
	return m.record("refund", r.RenterEmail)
}

type testEnv struct {
	users     *store.UserStore
	sessions  *store.SessionStore
	tools     *store.ToolStore
	listings  *store.ListingStore
	rentals   *store.RentalStore
	checkouts *store.CheckoutStore
	processor *fakeProcessor
	mailer    *fakeMailer
	hub       *websocket.Hub

	auth     *AuthHandler
	listing  *ListingHandler
	rental   *RentalHandler
	connect  *ConnectHandler
	checkout *CheckoutHandler
	webhook  *WebhookHandler

	owner  *model.User
	renter *model.User
	tool   model.Tool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	e := &testEnv{
		users:     store.NewUserStore(db),
		sessions:  store.NewSessionStore(db),
		tools:     store.NewToolStore(db),
		listings:  store.NewListingStore(db),
		rentals:   store.NewRentalStore(db, prefixSealer{}),
		checkouts: store.NewCheckoutStore(db),
		processor: newFakeProcessor(),
		mailer:    &fakeMailer{},
		hub:       websocket.NewHub(logger),
	}
	e.auth = NewAuthHandler(e.users, e.sessions, "http://localhost:8080", logger)
	e.listing = NewListingHandler(e.listings, e.tools, e.users, e.hub, logger)
	e.rental = NewRentalHandler(e.rentals, e.hub, logger)
	e.connect = NewConnectHandler(e.users, e.processor, logger)
	e.checkout = NewCheckoutHandler(e.listings, e.users, e.checkouts, e.processor, 15, logger)
	e.webhook = NewWebhookHandler(e.processor, e.checkouts, e.rentals, e.listings, e.users, e.mailer, e.hub, logger)

	e.owner, err = e.users.Create("owner@example.com", "Olive", "x")
	require.NoError(t, err)
	e.renter, err = e.users.Create("renter@example.com", "Ray", "x")
	require.NoError(t, err)

	tools, err := e.tools.List()
	require.NoError(t, err)
	require.NotEmpty(t, tools)
	e.tool = tools[0]
	require.NotEmpty(t, e.tool.Plans)
	return e
}

// validateOwner links and validates the owner's Stripe account.
func (e *testEnv) validateOwner(t *testing.T) {
	t.Helper()
	_, err := e.users.SetConnectAccount(e.owner.ID, "acct_owner", model.ConnectStatusValidated)
	require.NoError(t, err)
}

func (e *testEnv) createListing(t *testing.T, total int) *model.Listing {
	t.Helper()
	l, err := e.listings.Create(e.owner.ID, model.NewListing{
		ToolID:     e.tool.ID,
		PlanID:     e.tool.Plans[0].ID,
		Price:      20,
		TotalUsers: total,
	})
	require.NoError(t, err)
	return l
}

// call invokes h as userID (zero for anonymous) and decodes the envelope.
func call(t *testing.T, h http.HandlerFunc, userID int64, body any) (int, rpc.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, "/toolshub/api/test", &buf)
	if userID != 0 {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	h(rec, req)

	var env rpc.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func data[T any](t *testing.T, env rpc.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
