// Package mailer delivers transactional email through the Resend API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kosmicapps.com/internal/catalog"
)

// Sender is the outbound mail surface used by the HTTP handlers.
type Sender interface {
	SendAccessKey(ctx context.Context, to, username, key string) error
	SendPreBetaWelcome(ctx context.Context, to, name string, app catalog.App) error
	SendSignupNotification(ctx context.Context, name, email, social, appName, comments string) error
	SendInvite(ctx context.Context, to, name, appName, inviteLink string) error
	SendContactNotification(ctx context.Context, fromName, fromEmail, subject, message string) error
}

const (
	defaultBaseURL = "https://api.resend.com"
	defaultTimeout = 30 * time.Second

	fromAddress  = "Kosmic Apps <hello@kosmicapps.com>"
	adminAddress = "kosmicapps@gmail.com"
)

// ErrSendFailed wraps every delivery failure.
var ErrSendFailed = errors.New("email send failed")

// Resend sends mail through the Resend REST API.
type Resend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// ResendOption configures the client.
type ResendOption func(*Resend)

// WithBaseURL points the client at a different endpoint. Used by tests.
func WithBaseURL(url string) ResendOption {
	return func(r *Resend) { r.baseURL = url }
}

// NewResend builds a Resend client.
func NewResend(apiKey string, opts ...ResendOption) (*Resend, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key required")
	}
	r := &Resend{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID    string `json:"id"`
	Error string `json:"message,omitempty"`
}

func (r *Resend) send(ctx context.Context, req sendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrSendFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrSendFailed, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrSendFailed, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: resend api error (%d): %s", ErrSendFailed, resp.StatusCode, decoded.Error)
	}
	return nil
}

// SendAccessKey mails the one-time dashboard key to the admin.
func (r *Resend) SendAccessKey(ctx context.Context, to, username, key string) error {
	html := fmt.Sprintf(`<h1>Admin Access Key</h1>
<p>Hello %s,</p>
<p>You requested access to the Kosmic Apps admin dashboard. Use this key to log in:</p>
<p style="font-family:monospace;font-size:24px;letter-spacing:2px"><strong>%s</strong></p>
<p><strong>This key expires in 2 minutes.</strong></p>
<p>If you did not request this access, ignore this email.</p>`, username, key)
	return r.send(ctx, sendRequest{
		From:    "Kosmic Apps Admin <hello@kosmicapps.com>",
		To:      []string{to},
		Subject: "Admin Access Key - Kosmic Apps Dashboard",
		HTML:    html,
	})
}

// SendPreBetaWelcome confirms a pre-beta signup to the subscriber.
func (r *Resend) SendPreBetaWelcome(ctx context.Context, to, name string, app catalog.App) error {
	appName := app.Name
	if appName == "" {
		appName = "Pre-Beta"
	}
	html := fmt.Sprintf(`<h1>Welcome to the Future!</h1>
<p>Hi %s,</p>
<p>Welcome to the Kosmic Apps pre-beta program! We're thrilled to have you join our community of early adopters.</p>
<h2>%s</h2>
<p>%s</p>
<p>We'll email you when %s is ready for beta testing.</p>
<p><a href="https://kosmicapps.com/apps">Explore Our Apps</a></p>`, name, appName, app.Hook, appName)
	return r.send(ctx, sendRequest{
		From:    fromAddress,
		To:      []string{to},
		Subject: fmt.Sprintf("Welcome to %s - You're In!", appName),
		HTML:    html,
	})
}

// SendSignupNotification tells the studio inbox about a new signup.
func (r *Resend) SendSignupNotification(ctx context.Context, name, email, social, appName, comments string) error {
	if social == "" {
		social = "Not provided"
	}
	if comments == "" {
		comments = "None"
	}
	if appName == "" {
		appName = "Unknown"
	}
	html := fmt.Sprintf(`<h2>New Pre-Beta Signup</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Social Media:</strong> %s</p>
<p><strong>Selected App:</strong> %s</p>
<p><strong>Comments:</strong> %s</p>
<p><strong>Timestamp:</strong> %s</p>`,
		name, email, social, appName, comments, time.Now().UTC().Format(time.RFC3339))
	return r.send(ctx, sendRequest{
		From:    fromAddress,
		To:      []string{adminAddress},
		Subject: fmt.Sprintf("New Pre-Beta Signup: %s - %s", name, appName),
		HTML:    html,
	})
}

// SendInvite mails a beta invitation to a confirmed signup.
func (r *Resend) SendInvite(ctx context.Context, to, name, appName, inviteLink string) error {
	html := fmt.Sprintf(`<h1>You're Invited!</h1>
<p>Hi %s,</p>
<p>Great news! You've been selected to participate in the beta testing of %s.
Your feedback will be invaluable in helping us create the best possible experience.</p>
<p><a href="%s">Access Beta Now</a></p>
<p>If you have any questions, reach out at hello@kosmicapps.com.</p>`,
		name, appName, inviteLink)
	return r.send(ctx, sendRequest{
		From:    fromAddress,
		To:      []string{to},
		Subject: fmt.Sprintf("You're Invited to %s Beta!", appName),
		HTML:    html,
	})
}

// SendContactNotification forwards a contact-form message to the studio inbox.
func (r *Resend) SendContactNotification(ctx context.Context, fromName, fromEmail, subject, message string) error {
	html := fmt.Sprintf(`<h2>New Contact Message</h2>
<p><strong>From:</strong> %s (%s)</p>
<p><strong>Subject:</strong> %s</p>
<p>%s</p>`, fromName, fromEmail, subject, message)
	return r.send(ctx, sendRequest{
		From:    fromAddress,
		To:      []string{adminAddress},
		Subject: "Contact: " + subject,
		HTML:    html,
	})
}
