// Package httpapi is the HTTP surface of the Kosmic Apps site: the public
// form endpoints, the admin auth flow and the admin dashboard pages.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"kosmicapps.com/internal/adminauth"
	"kosmicapps.com/internal/mailer"
	"kosmicapps.com/internal/obs"
	"kosmicapps.com/internal/site"
)

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the API dependencies.
type Config struct {
	Auth    *adminauth.Service
	Store   site.Store
	Mail    mailer.Sender
	Ready   ReadyProbe
	Version string

	// SecureCookies marks the session cookie Secure. Off for local dev.
	SecureCookies bool
}

// API is the HTTP layer.
type API struct {
	mux           *http.ServeMux
	auth          *adminauth.Service
	store         site.Store
	mail          mailer.Sender
	readyProbe    ReadyProbe
	version       string
	secureCookies bool
}

func New(cfg Config) *API {
	a := &API{
		mux:           http.NewServeMux(),
		auth:          cfg.Auth,
		store:         cfg.Store,
		mail:          cfg.Mail,
		readyProbe:    cfg.Ready,
		version:       cfg.Version,
		secureCookies: cfg.SecureCookies,
	}

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// public site endpoints
	a.mux.HandleFunc("/api/apps", a.handleApps)
	a.mux.HandleFunc("/api/pre-beta", a.handlePreBeta)
	a.mux.HandleFunc("/api/track-form", a.handleTrackForm)
	a.mux.HandleFunc("/api/contact", a.handleContact)

	// admin auth flow
	a.mux.HandleFunc("/api/admin/send-access-key", a.handleSendAccessKey)
	a.mux.HandleFunc("/api/admin/login", a.handleLogin)
	a.mux.HandleFunc("/api/admin/check-auth", a.handleCheckAuth)
	a.mux.HandleFunc("/api/admin/rate-limit-status", a.handleRateLimitStatus)
	a.mux.HandleFunc("/api/admin/clear-session", a.handleClearSession)

	// admin data, session-guarded
	a.mux.HandleFunc("/api/admin/signups", a.requireSession(a.handleSignups))
	a.mux.HandleFunc("/api/admin/send-invites", a.requireSession(a.handleSendInvites))
	a.mux.HandleFunc("/api/admin/form-analytics", a.requireSession(a.handleFormAnalytics))

	// admin pages
	a.mux.HandleFunc("/admin/login", a.handleLoginPage)
	a.mux.HandleFunc("/admin/", a.requirePage(a.handleAdminPage))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kosmic-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// fingerprint derives the caller's rate-limit identity from its user agent
// and client address.
func fingerprint(r *http.Request) string {
	return adminauth.Fingerprint(r.UserAgent(), clientIP(r))
}

const sessionCookieName = "admin-session"

func (a *API) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(adminauth.SessionLifetime / time.Second),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionFromRequest validates the session cookie and returns the session.
func sessionFromRequest(r *http.Request) (adminauth.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return adminauth.Session{}, adminauth.ErrInvalidSession
	}
	return adminauth.ValidateSessionToken(cookie.Value, time.Now())
}
