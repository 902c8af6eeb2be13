package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	endpoint    string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithEndpoint overrides the Postmark API URL.
func WithEndpoint(url string) Option {
	return func(cl *Client) {
		cl.endpoint = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		endpoint:    defaultEndpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

// Rental describes a completed rental for notification emails.
type Rental struct {
	ToolName    string
	PlanName    string
	Price       float64
	RenterEmail string
	OwnerEmail  string
}

// SendRentalConfirmation tells the renter their payment went through.
func (c *Client) SendRentalConfirmation(ctx context.Context, r Rental) error {
	link := c.baseURL + "/toolshub?view=rented-by-me"
	subject := fmt.Sprintf("You're renting %s", r.ToolName)
	text := fmt.Sprintf(
		"Your payment of $%.2f for %s (%s) was received.\n\nThe owner will share access credentials shortly. You can view them here:\n\n%s",
		r.Price, r.ToolName, r.PlanName, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Your payment of $%.2f for <strong>%s</strong> (%s) was received.</p><p>The owner will share access credentials shortly.</p><p><a href="%s">View your rentals</a></p>`,
		r.Price, html.EscapeString(r.ToolName), html.EscapeString(r.PlanName), link,
	)
	return c.send(ctx, r.RenterEmail, subject, text, htmlBody)
}

// SendNewRenterNotice asks the owner to issue credentials for a new renter.
func (c *Client) SendNewRenterNotice(ctx context.Context, r Rental) error {
	link := c.baseURL + "/toolshub?view=rented-out"
	subject := fmt.Sprintf("New renter for %s", r.ToolName)
	text := fmt.Sprintf(
		"%s just rented your %s (%s) listing.\n\nSet their login and password here:\n\n%s",
		r.RenterEmail, r.ToolName, r.PlanName, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>%s just rented your <strong>%s</strong> (%s) listing.</p><p><a href="%s">Set their login and password</a></p>`,
		html.EscapeString(r.RenterEmail), html.EscapeString(r.ToolName), html.EscapeString(r.PlanName), link,
	)
	return c.send(ctx, r.OwnerEmail, subject, text, htmlBody)
}

// SendRefundNotice tells the renter the listing filled up before their
// payment settled and that they were refunded.
func (c *Client) SendRefundNotice(ctx context.Context, r Rental) error {
	subject := fmt.Sprintf("Your %s rental was refunded", r.ToolName)
	text := fmt.Sprintf(
		"The %s listing filled up before your payment completed, so your payment of $%.2f has been refunded in full.",
		r.ToolName, r.Price,
	)
	htmlBody := fmt.Sprintf(
		`<p>The <strong>%s</strong> listing filled up before your payment completed, so your payment of $%.2f has been refunded in full.</p>`,
		html.EscapeString(r.ToolName), r.Price,
	)
	return c.send(ctx, r.RenterEmail, subject, text, htmlBody)
}

func (c *Client) send(ctx context.Context, to, subject, text, htmlBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(postmarkEmail{
		From:          c.fromEmail,
		To:            to,
		Subject:       subject,
		HtmlBody:      htmlBody,
		TextBody:      text,
		MessageStream: "outbound",
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("postmark API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
