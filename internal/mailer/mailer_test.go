package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kosmicapps.com/internal/catalog"
)

type capturedRequest struct {
	auth        string
	contentType string
	body        sendRequest
}

func newTestResend(t *testing.T, status int, reply string) (*Resend, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		captured.auth = r.Header.Get("Authorization")
		captured.contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	r, err := NewResend("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewResend: %v", err)
	}
	return r, captured
}

func TestNewResendRequiresKey(t *testing.T) {
	if _, err := NewResend(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestSendAccessKey(t *testing.T) {
	r, captured := newTestResend(t, http.StatusOK, `{"id":"msg_1"}`)

	if err := r.SendAccessKey(context.Background(), "admin@example.com", "admin", "Abc123def456"); err != nil {
		t.Fatalf("SendAccessKey: %v", err)
	}
	if captured.auth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", captured.auth)
	}
	if captured.contentType != "application/json" {
		t.Fatalf("unexpected content type %q", captured.contentType)
	}
	if len(captured.body.To) != 1 || captured.body.To[0] != "admin@example.com" {
		t.Fatalf("unexpected recipients %v", captured.body.To)
	}
	if !strings.Contains(captured.body.HTML, "Abc123def456") {
		t.Fatal("key missing from body")
	}
	if !strings.Contains(captured.body.HTML, "expires in 2 minutes") {
		t.Fatal("expiry warning missing from body")
	}
}

func TestSendPreBetaWelcome(t *testing.T) {
	r, captured := newTestResend(t, http.StatusOK, `{"id":"msg_2"}`)

	app, _ := catalog.Find("taskume")
	if err := r.SendPreBetaWelcome(context.Background(), "fan@example.com", "Jordan", app); err != nil {
		t.Fatalf("SendPreBetaWelcome: %v", err)
	}
	if captured.body.Subject != "Welcome to Taskume - You're In!" {
		t.Fatalf("unexpected subject %q", captured.body.Subject)
	}
	if !strings.Contains(captured.body.HTML, app.Hook) {
		t.Fatal("app hook missing from body")
	}
}

func TestSendSignupNotificationTargetsStudioInbox(t *testing.T) {
	r, captured := newTestResend(t, http.StatusOK, `{"id":"msg_3"}`)

	err := r.SendSignupNotification(context.Background(), "Jordan", "fan@example.com", "", "Taskume", "")
	if err != nil {
		t.Fatalf("SendSignupNotification: %v", err)
	}
	if len(captured.body.To) != 1 || captured.body.To[0] != adminAddress {
		t.Fatalf("notification should go to the studio inbox, got %v", captured.body.To)
	}
	if !strings.Contains(captured.body.HTML, "Not provided") {
		t.Fatal("empty social handle should render as Not provided")
	}
}

func TestSendInvite(t *testing.T) {
	r, captured := newTestResend(t, http.StatusOK, `{"id":"msg_5"}`)

	err := r.SendInvite(context.Background(), "fan@example.com", "Jordan", "Taskume", "https://kosmicapps.com/beta/taskume")
	if err != nil {
		t.Fatalf("SendInvite: %v", err)
	}
	if captured.body.Subject != "You're Invited to Taskume Beta!" {
		t.Fatalf("unexpected subject %q", captured.body.Subject)
	}
	if !strings.Contains(captured.body.HTML, "https://kosmicapps.com/beta/taskume") {
		t.Fatal("invite link missing from body")
	}
}

func TestSendSurfacesAPIError(t *testing.T) {
	r, _ := newTestResend(t, http.StatusUnprocessableEntity, `{"message":"invalid to address"}`)

	err := r.SendAccessKey(context.Background(), "bad", "admin", "key")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid to address") {
		t.Fatalf("api message missing from error: %v", err)
	}
}

func TestSendHonorsContext(t *testing.T) {
	r, _ := newTestResend(t, http.StatusOK, `{"id":"msg_4"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.SendAccessKey(ctx, "admin@example.com", "admin", "key"); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected wrapped context error, got %v", err)
	}
}
