package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/toolshub/internal/credential"
	"github.com/dukerupert/toolshub/internal/database"
	"github.com/dukerupert/toolshub/internal/email"
	"github.com/dukerupert/toolshub/internal/payment"
	"github.com/dukerupert/toolshub/internal/rpc"
)

type nopProcessor struct{}

func (nopProcessor) CreateConnectAccount(context.Context, string) (string, error) {
	return "", errors.New("not wired")
}

func (nopProcessor) CreateAccountLink(context.Context, string) (string, error) {
	return "", errors.New("not wired")
}

func (nopProcessor) GetAccount(context.Context, string) (payment.AccountStatus, error) {
	return payment.AccountStatus{}, payment.ErrAccountNotFound
}

func (nopProcessor) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (payment.CheckoutSession, error) {
	return payment.CheckoutSession{}, errors.New("not wired")
}

func (nopProcessor) Refund(context.Context, string) error { return nil }

func (nopProcessor) ConstructWebhookEvent([]byte, string) (stripe.Event, error) {
	return stripe.Event{}, errors.New("bad signature")
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vault, err := credential.NewVault("test-secret")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Config{
		BaseURL:            "http://localhost:8080",
		PlatformFeePercent: 15,
		Processor:          nopProcessor{},
		Mailer:             email.NewClient("", "", "http://localhost:8080"),
		Sealer:             vault,
	}, logger)
	return srv.Router()
}

func post(t *testing.T, h http.Handler, path, token, body string) (*httptest.ResponseRecorder, rpc.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env rpc.Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRPCRequiresSession(t *testing.T) {
	h := newTestServer(t)

	rec, env := post(t, h, rpc.PathPrefix+rpc.GetTools, "", "{}")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestSignupThenCallRPC(t *testing.T) {
	h := newTestServer(t)

	rec, env := post(t, h, rpc.PathPrefix+rpc.Signup, "",
		`{"email":"kim@example.com","name":"Kim","password":"long enough"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var sess rpc.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &sess))

	rec, env = post(t, h, rpc.PathPrefix+rpc.GetTools, sess.Token, "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var tools rpc.GetToolsResponse
	require.NoError(t, json.Unmarshal(env.Data, &tools))
	assert.NotEmpty(t, tools.Tools)
}

func TestUnknownEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec, env := post(t, h, rpc.PathPrefix+rpc.Signup, "",
		`{"email":"lee@example.com","name":"Lee","password":"long enough"}`)
	require.True(t, env.Success)
	var sess rpc.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &sess))

	rec, _ = post(t, h, rpc.PathPrefix+"doesNotExist", sess.Token, "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newTestServer(t)

	body := `{"email":"nobody@example.com","password":"whatever"}`
	for i := 0; i < authLimit.Requests; i++ {
		rec, _ := post(t, h, rpc.PathPrefix+rpc.Login, "", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := post(t, h, rpc.PathPrefix+rpc.Login, "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLandingRedirectsMarkers(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/toolshub?connectAccountStatus=success", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/toolshub", rec.Header().Get("Location"))
}
