package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, status int, received *postmarkEmail, token *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != nil {
			*token = r.Header.Get("X-Postmark-Server-Token")
		}
		if received != nil {
			if err := json.NewDecoder(r.Body).Decode(received); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

var rental = Rental{
	ToolName:    "Figma",
	PlanName:    "Professional",
	Price:       15,
	RenterEmail: "renter@example.com",
	OwnerEmail:  "owner@example.com",
}

func TestSendRentalConfirmation(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	server := newTestServer(t, http.StatusOK, &received, &gotToken)

	client := NewClient("test-token", "noreply@toolshub.test", "https://toolshub.test", WithEndpoint(server.URL))
	if err := client.SendRentalConfirmation(context.Background(), rental); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "renter@example.com" {
		t.Errorf("To = %q, want %q", received.To, "renter@example.com")
	}
	if received.From != "noreply@toolshub.test" {
		t.Errorf("From = %q, want %q", received.From, "noreply@toolshub.test")
	}
	if received.Subject != "You're renting Figma" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "$15.00") {
		t.Errorf("TextBody missing price: %q", received.TextBody)
	}
}

func TestSendNewRenterNotice(t *testing.T) {
	var received postmarkEmail
	server := newTestServer(t, http.StatusOK, &received, nil)

	client := NewClient("test-token", "noreply@toolshub.test", "https://toolshub.test", WithEndpoint(server.URL))
	if err := client.SendNewRenterNotice(context.Background(), rental); err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.To != "owner@example.com" {
		t.Errorf("To = %q, want %q", received.To, "owner@example.com")
	}
	if !strings.Contains(received.HtmlBody, "https://toolshub.test/toolshub?view=rented-out") {
		t.Errorf("HtmlBody missing link: %q", received.HtmlBody)
	}
}

func TestSendEscapesHTML(t *testing.T) {
	var received postmarkEmail
	server := newTestServer(t, http.StatusOK, &received, nil)

	client := NewClient("test-token", "noreply@toolshub.test", "https://toolshub.test", WithEndpoint(server.URL))
	r := rental
	r.ToolName = "<script>"
	if err := client.SendRefundNotice(context.Background(), r); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(received.HtmlBody, "<script>") {
		t.Errorf("HtmlBody not escaped: %q", received.HtmlBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@toolshub.test", "https://toolshub.test")
	if err := client.SendRentalConfirmation(context.Background(), rental); err == nil {
		t.Error("expected error when not configured")
	}
	if client.Configured() {
		t.Error("expected Configured() = false")
	}
}

func TestSendAPIError(t *testing.T) {
	server := newTestServer(t, http.StatusUnprocessableEntity, nil, nil)

	client := NewClient("test-token", "noreply@toolshub.test", "https://toolshub.test", WithEndpoint(server.URL))
	err := client.SendRentalConfirmation(context.Background(), rental)
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Errorf("err = %v, want status 422", err)
	}
}
