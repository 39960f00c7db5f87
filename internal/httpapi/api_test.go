package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kosmicapps.com/internal/adminauth"
	"kosmicapps.com/internal/catalog"
	"kosmicapps.com/internal/site"
)

// mailCapture records every dispatch so tests can read the minted access key
// and assert on invite traffic.
type mailCapture struct {
	mu          sync.Mutex
	accessKey   string
	welcomes    []string
	notified    int
	invites     []string
	contacts    int
	failInvites map[string]bool
}

func (m *mailCapture) SendAccessKey(_ context.Context, to, username, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessKey = key
	return nil
}

func (m *mailCapture) SendPreBetaWelcome(_ context.Context, to, name string, app catalog.App) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, to)
	return nil
}

func (m *mailCapture) SendSignupNotification(_ context.Context, name, email, social, appName, comments string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified++
	return nil
}

func (m *mailCapture) SendInvite(_ context.Context, to, name, appName, inviteLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInvites[to] {
		return errors.New("dispatch failed")
	}
	m.invites = append(m.invites, to)
	return nil
}

func (m *mailCapture) SendContactNotification(_ context.Context, fromName, fromEmail, subject, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts++
	return nil
}

func (m *mailCapture) lastAccessKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessKey
}

type apiHarness struct {
	api   *API
	h     http.Handler
	mail  *mailCapture
	store *site.MemoryStore
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	return newAPIHarnessCfg(t, adminauth.Config{
		AdminUsername: "kosmic",
		AdminEmail:    "admin@kosmicapps.com",
	})
}

func newAPIHarnessCfg(t *testing.T, cfg adminauth.Config) *apiHarness {
	t.Helper()
	t.Setenv("KOSMIC_SESSION_SECRET", "test-secret")
	adminauth.ResetSessionSecretForTests()
	t.Cleanup(adminauth.ResetSessionSecretForTests)

	keys := adminauth.NewMemoryKeyStore()
	t.Cleanup(keys.Close)
	limiter := adminauth.NewMemoryRateLimiter()
	t.Cleanup(limiter.Close)

	mail := &mailCapture{failInvites: make(map[string]bool)}
	auth := adminauth.NewService(cfg, keys, limiter, mail)
	store := site.NewMemoryStore()

	api := New(Config{
		Auth:    auth,
		Store:   store,
		Mail:    mail,
		Version: "test",
	})
	return &apiHarness{api: api, h: api.Handler(), mail: mail, store: store}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("User-Agent", "harness/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookieName)
	return nil
}

func TestAdminAuthFlow(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "kosmic",
		"email":    "admin@kosmicapps.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("send-access-key status = %d, body %s", rec.Code, rec.Body.String())
	}
	key := h.mail.lastAccessKey()
	if len(key) != adminauth.KeyLength {
		t.Fatalf("captured key %q, want length %d", key, adminauth.KeyLength)
	}

	// A wrong key counts as a failed attempt.
	rec = h.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username":  "kosmic",
		"email":     "admin@kosmicapps.com",
		"accessKey": "wrongwrong12",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	info, ok := body["rateLimitInfo"].(map[string]any)
	if !ok {
		t.Fatalf("missing rateLimitInfo in %v", body)
	}
	if got := info["attempts"].(float64); got != 1 {
		t.Fatalf("attempts = %v, want 1", got)
	}

	rec = h.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username":  "kosmic",
		"email":     "admin@kosmicapps.com",
		"accessKey": key,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie flags: HttpOnly=%v SameSite=%v", cookie.HttpOnly, cookie.SameSite)
	}

	rec = h.do(t, http.MethodGet, "/api/admin/check-auth", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-auth status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	user, _ := body["user"].(map[string]any)
	if user["username"] != "kosmic" || user["email"] != "admin@kosmicapps.com" {
		t.Fatalf("check-auth user = %v", user)
	}

	// Guarded endpoint requires the cookie.
	rec = h.do(t, http.MethodGet, "/api/admin/signups", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated signups status = %d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, "/api/admin/signups", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("signups status = %d", rec.Code)
	}

	// A key is single use.
	rec = h.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username":  "kosmic",
		"email":     "admin@kosmicapps.com",
		"accessKey": key,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed key status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Invalid access key. Please request a new one." {
		t.Fatalf("replayed key error = %v", got)
	}

	rec = h.do(t, http.MethodPost, "/api/admin/clear-session", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear-session status = %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("clear-session did not expire the cookie")
	}
}

func TestSendAccessKeyRejectsUnknownIdentity(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "kosmic",
		"email":    "intruder@example.com",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong email status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "intruder",
		"email":    "admin@kosmicapps.com",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong username status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Unauthorized username" {
		t.Fatalf("error = %v", got)
	}

	// Rejections are not failed attempts.
	rec = h.do(t, http.MethodGet, "/api/admin/rate-limit-status", nil)
	body := decodeBody(t, rec)
	if got := body["attempts"].(float64); got != 0 {
		t.Fatalf("attempts after rejections = %v, want 0", got)
	}
}

func TestSendAccessKeyValidation(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "kosmic",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "kosmic",
		"email":    "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid email status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Invalid email format" {
		t.Fatalf("error = %v", got)
	}
}

func TestLoginLockoutThroughAPI(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "kosmic",
		"email":    "admin@kosmicapps.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("send-access-key status = %d", rec.Code)
	}

	bad := map[string]string{
		"username":  "kosmic",
		"email":     "admin@kosmicapps.com",
		"accessKey": "wrongwrong12",
	}
	var last map[string]any
	for i := 0; i < adminauth.LockoutThreshold; i++ {
		rec = h.do(t, http.MethodPost, "/api/admin/login", bad)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i+1, rec.Code)
		}
		last = decodeBody(t, rec)
	}
	info := last["rateLimitInfo"].(map[string]any)
	if info["attempts"].(float64) != float64(adminauth.LockoutThreshold) || info["isBlocked"] != true {
		t.Fatalf("fourth failure info = %v", info)
	}

	// Block engages on the next attempt, even with the right key.
	rec = h.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"username":  "kosmic",
		"email":     "admin@kosmicapps.com",
		"accessKey": h.mail.lastAccessKey(),
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("blocked login status = %d", rec.Code)
	}
	info = decodeBody(t, rec)["rateLimitInfo"].(map[string]any)
	if info["isBlocked"] != true {
		t.Fatalf("blocked info = %v", info)
	}
	remaining := info["timeRemaining"].(float64)
	if remaining <= 0 || remaining > float64(adminauth.LockoutDuration/time.Second) {
		t.Fatalf("timeRemaining = %v", remaining)
	}

	// Status endpoint reports the block without extending it.
	rec = h.do(t, http.MethodGet, "/api/admin/rate-limit-status", nil)
	body := decodeBody(t, rec)
	if body["isBlocked"] != true {
		t.Fatalf("rate-limit-status = %v", body)
	}
}

func TestCheckAuthRejectsTamperedToken(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/admin/check-auth", nil, &http.Cookie{
		Name:  sessionCookieName,
		Value: "not-a-jwt",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["authenticated"]; got != false {
		t.Fatalf("authenticated = %v", got)
	}
}

func TestPreBetaSignup(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/pre-beta", map[string]string{
		"name":         "Riley",
		"email":        "riley@example.com",
		"socialMedia":  "@riley",
		"appSelection": "taskume",
		"comments":     "excited to try it",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	signups, err := h.store.ListSignups(context.Background())
	if err != nil {
		t.Fatalf("ListSignups: %v", err)
	}
	if len(signups) != 1 || signups[0].Email != "riley@example.com" {
		t.Fatalf("signups = %v", signups)
	}
	if len(h.mail.welcomes) != 1 || h.mail.welcomes[0] != "riley@example.com" {
		t.Fatalf("welcomes = %v", h.mail.welcomes)
	}
	if h.mail.notified != 1 {
		t.Fatalf("notified = %d", h.mail.notified)
	}
}

func TestPreBetaValidation(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/pre-beta", map[string]string{
		"name":  "Riley",
		"email": "riley@example.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing appSelection status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/pre-beta", map[string]string{
		"name":         "Riley",
		"email":        "riley@example.com",
		"appSelection": "no-such-app",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown app status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/pre-beta", map[string]string{
		"name":         "<script>alert(1)</script>",
		"email":        "riley@example.com",
		"appSelection": "taskume",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("script payload status = %d", rec.Code)
	}
	if signups, _ := h.store.ListSignups(context.Background()); len(signups) != 0 {
		t.Fatalf("rejected signup was stored: %v", signups)
	}
}

func TestTrackFormAndAnalytics(t *testing.T) {
	h := newAPIHarness(t)

	events := []map[string]string{
		{"sessionId": "s1", "eventType": site.EventPageVisit},
		{"sessionId": "s1", "eventType": site.EventFieldFocus, "fieldName": "name"},
		{"sessionId": "s1", "eventType": site.EventFormSubmit, "appSelection": "taskume"},
		{"sessionId": "s2", "eventType": site.EventPageVisit},
	}
	for _, ev := range events {
		rec := h.do(t, http.MethodPost, "/api/track-form", ev)
		if rec.Code != http.StatusOK {
			t.Fatalf("track-form %v status = %d", ev, rec.Code)
		}
	}

	rec := h.do(t, http.MethodPost, "/api/track-form", map[string]string{"eventType": site.EventPageVisit})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing sessionId status = %d", rec.Code)
	}

	token, err := adminauth.NewSessionToken("kosmic", "admin@kosmicapps.com", "fp", time.Now())
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	cookie := &http.Cookie{Name: sessionCookieName, Value: token}

	rec = h.do(t, http.MethodGet, "/api/admin/form-analytics", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("form-analytics status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if got := body["totalPageVisits"].(float64); got != 2 {
		t.Fatalf("totalPageVisits = %v, want 2", got)
	}
	if got := body["totalFormSubmits"].(float64); got != 1 {
		t.Fatalf("totalFormSubmits = %v, want 1", got)
	}
}

func TestContactForm(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/api/contact", map[string]string{
		"name":    "Jordan",
		"email":   "jordan@example.com",
		"outlet":  "Indie Games Weekly",
		"message": "Interested in covering your launch.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["ok"]; got != true {
		t.Fatalf("ok = %v", got)
	}
	if h.mail.contacts != 1 {
		t.Fatalf("contacts = %d", h.mail.contacts)
	}

	rec = h.do(t, http.MethodPost, "/api/contact", map[string]string{
		"name":  "Jordan",
		"email": "jordan@example.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["ok"]; got != false {
		t.Fatalf("ok = %v", got)
	}
}

func TestSendInvites(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	for _, s := range []site.Signup{
		{Name: "Riley", Email: "riley@example.com", AppSelection: "taskume"},
		{Name: "Sam", Email: "sam@example.com", AppSelection: "taskume"},
	} {
		s := s
		if err := h.store.InsertSignup(ctx, &s); err != nil {
			t.Fatalf("InsertSignup: %v", err)
		}
	}
	h.mail.failInvites["sam@example.com"] = true

	token, err := adminauth.NewSessionToken("kosmic", "admin@kosmicapps.com", "fp", time.Now())
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	cookie := &http.Cookie{Name: sessionCookieName, Value: token}

	rec := h.do(t, http.MethodPost, "/api/admin/send-invites", map[string]any{
		"app":        "Taskume",
		"inviteLink": "https://testflight.apple.com/join/abc123",
		"emails":     []string{"riley@example.com", "sam@example.com"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("success = %v with one failure", body["success"])
	}
	if got := body["emailsSent"].(float64); got != 1 {
		t.Fatalf("emailsSent = %v", got)
	}
	failed := body["failedEmails"].([]any)
	if len(failed) != 1 || failed[0] != "sam@example.com" {
		t.Fatalf("failedEmails = %v", failed)
	}

	signups, err := h.store.FindSignupsByEmail(ctx, "riley@example.com")
	if err != nil || len(signups) != 1 {
		t.Fatalf("FindSignupsByEmail: %v %v", signups, err)
	}
	if !signups[0].EmailSent || signups[0].EmailSentAt == nil {
		t.Fatalf("invite not marked sent: %+v", signups[0])
	}
}

func TestHealthAndReady(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["version"]; got != "test" {
		t.Fatalf("version = %v", got)
	}

	rec = h.do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", rec.Code)
	}
}

func TestAppsEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/apps", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	apps := body["apps"].([]any)
	if len(apps) != len(catalog.Apps()) {
		t.Fatalf("apps = %d, want %d", len(apps), len(catalog.Apps()))
	}

	rec = h.do(t, http.MethodGet, "/api/apps?category=Organization", nil)
	body = decodeBody(t, rec)
	filtered := body["apps"].([]any)
	if len(filtered) == 0 {
		t.Fatal("no apps in Organization category")
	}
	for _, raw := range filtered {
		app := raw.(map[string]any)
		if app["category"] != "Organization" {
			t.Fatalf("unexpected category in %v", app)
		}
	}
}

func TestAdminPageGuard(t *testing.T) {
	h := newAPIHarness(t)

	assertRedirectedToLogin := func(rec *httptest.ResponseRecorder, label string) {
		t.Helper()
		if rec.Code != http.StatusFound {
			t.Fatalf("%s status = %d, want 302", label, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/admin/login" {
			t.Fatalf("%s Location = %q", label, loc)
		}
		cleared := false
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Fatalf("%s did not clear the session cookie", label)
		}
	}

	assertRedirectedToLogin(h.do(t, http.MethodGet, "/admin/dashboard", nil), "no cookie")
	assertRedirectedToLogin(h.do(t, http.MethodGet, "/admin/dashboard", nil, &http.Cookie{
		Name:  sessionCookieName,
		Value: "not-a-jwt",
	}), "tampered cookie")

	// The login page stays reachable without a session.
	rec := h.do(t, http.MethodGet, "/admin/login", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login page status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("login page Content-Type = %q", ct)
	}
	if strings.Contains(rec.Body.String(), "/static/") {
		t.Fatal("login page references assets no route serves")
	}

	token, err := adminauth.NewSessionToken("kosmic", "admin@kosmicapps.com", "fp", time.Now())
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	cookie := &http.Cookie{Name: sessionCookieName, Value: token}

	rec = h.do(t, http.MethodGet, "/admin/dashboard", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated dashboard status = %d", rec.Code)
	}

	// An authenticated admin skips the login form.
	rec = h.do(t, http.MethodGet, "/admin/login", nil, cookie)
	if rec.Code != http.StatusFound {
		t.Fatalf("authenticated login page status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/" {
		t.Fatalf("authenticated login redirect = %q", loc)
	}
}

func TestUnconfiguredAdminIdentity(t *testing.T) {
	h := newAPIHarnessCfg(t, adminauth.Config{})

	rec := h.do(t, http.MethodPost, "/api/admin/send-access-key", map[string]string{
		"username": "kosmic",
		"email":    "admin@kosmicapps.com",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("send-access-key status = %d, want 500", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Server configuration error" {
		t.Fatalf("error = %v", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/admin/login", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("Allow = %q", got)
	}
}
