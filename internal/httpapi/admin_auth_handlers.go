package httpapi

import (
	"errors"
	"net/http"

	"kosmicapps.com/internal/adminauth"
	"kosmicapps.com/internal/audit"
	"kosmicapps.com/internal/inputguard"
	"kosmicapps.com/internal/obs"
)

type sendAccessKeyRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	AccessKey string `json:"accessKey"`
}

// rateLimitInfo is the lockout state echoed on auth failures so the login
// page can render "N attempts remaining" and the countdown.
type rateLimitInfo struct {
	Attempts      int  `json:"attempts"`
	IsBlocked     bool `json:"isBlocked"`
	TimeRemaining int  `json:"timeRemaining"`
}

func infoFromStatus(st adminauth.Status) rateLimitInfo {
	return rateLimitInfo{
		Attempts:      st.Attempts,
		IsBlocked:     st.IsBlocked,
		TimeRemaining: st.TimeRemaining,
	}
}

// screenFields rejects submissions carrying injection payloads. Returns
// false after writing the response when the request must not proceed.
func screenFields(w http.ResponseWriter, r *http.Request, fields map[string]string) bool {
	report := inputguard.ScanFields(fields)
	if report.Clean() {
		return true
	}
	_ = audit.LogEvent(r.Context(), "security.threat_detected", map[string]any{
		"ip":    clientIP(r),
		"kinds": report.Kinds(),
		"path":  r.URL.Path,
	})
	if report.Ban() {
		writeError(w, r, http.StatusForbidden, "Security violation detected. Access denied.")
		return false
	}
	writeError(w, r, http.StatusBadRequest, "Invalid input detected. Please check your input and try again.")
	return false
}

func (a *API) handleSendAccessKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sendAccessKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" {
		writeError(w, r, http.StatusBadRequest, "Username and email are required")
		return
	}
	if !screenFields(w, r, map[string]string{"username": req.Username, "email": req.Email}) {
		return
	}

	fp := fingerprint(r)
	st, err := a.auth.IssueKey(r.Context(), adminauth.IssueRequest{
		Username:    inputguard.SanitizeUsername(req.Username),
		Email:       inputguard.Sanitize(req.Email),
		Fingerprint: fp,
	})
	if err != nil {
		a.writeIssueError(w, r, err, st, fp)
		return
	}

	obs.AccessKeysIssued.Inc()
	_ = audit.LogEvent(r.Context(), "adminauth.key.issued", map[string]any{
		"fingerprint": fp,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Access key sent successfully",
	})
}

func (a *API) writeIssueError(w http.ResponseWriter, r *http.Request, err error, st adminauth.Status, fp string) {
	switch {
	case errors.Is(err, adminauth.ErrMissingFields):
		writeError(w, r, http.StatusBadRequest, "Username and email are required")
	case errors.Is(err, adminauth.ErrInvalidEmail):
		writeError(w, r, http.StatusBadRequest, "Invalid email format")
	case errors.Is(err, adminauth.ErrNotConfigured):
		writeError(w, r, http.StatusInternalServerError, "Server configuration error")
	case errors.Is(err, adminauth.ErrUnauthorizedEmail):
		writeError(w, r, http.StatusForbidden, "Unauthorized email address")
	case errors.Is(err, adminauth.ErrUnauthorizedUsername):
		writeError(w, r, http.StatusForbidden, "Unauthorized username")
	case errors.Is(err, adminauth.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":         "Too many attempts. Please try again later.",
			"rateLimitInfo": infoFromStatus(st),
		})
	case errors.Is(err, adminauth.ErrEmailDispatch):
		_ = audit.LogEvent(r.Context(), "adminauth.key.dispatch_failed", map[string]any{
			"fingerprint": fp,
		})
		writeError(w, r, http.StatusInternalServerError, "Failed to send access key email")
	default:
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.AccessKey == "" {
		writeError(w, r, http.StatusBadRequest, "All fields are required")
		return
	}
	if !screenFields(w, r, map[string]string{
		"username":  req.Username,
		"email":     req.Email,
		"accessKey": req.AccessKey,
	}) {
		return
	}

	fp := fingerprint(r)
	token, st, err := a.auth.Login(r.Context(), adminauth.LoginRequest{
		Username:    inputguard.SanitizeUsername(req.Username),
		Email:       inputguard.Sanitize(req.Email),
		AccessKey:   inputguard.Sanitize(req.AccessKey),
		Fingerprint: fp,
	})
	if err != nil {
		a.writeLoginError(w, r, err, st, fp)
		return
	}

	obs.LoginSuccesses.Inc()
	_ = audit.LogEvent(r.Context(), "adminauth.login.success", map[string]any{
		"fingerprint": fp,
	})
	a.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
	})
}

func (a *API) writeLoginError(w http.ResponseWriter, r *http.Request, err error, st adminauth.Status, fp string) {
	var (
		code   int
		msg    string
		reason string
	)
	switch {
	case errors.Is(err, adminauth.ErrMissingFields):
		writeError(w, r, http.StatusBadRequest, "All fields are required")
		return
	case errors.Is(err, adminauth.ErrNotConfigured):
		writeError(w, r, http.StatusInternalServerError, "Server configuration error")
		return
	case errors.Is(err, adminauth.ErrRateLimited):
		code, msg, reason = http.StatusTooManyRequests,
			"Too many failed attempts. Access temporarily blocked.", "rate_limited"
	case errors.Is(err, adminauth.ErrInvalidKey):
		code, msg, reason = http.StatusUnauthorized,
			"Invalid access key. Please request a new one.", "invalid_key"
	case errors.Is(err, adminauth.ErrKeyExpired):
		code, msg, reason = http.StatusUnauthorized,
			"Access key has expired. Please request a new one.", "key_expired"
	case errors.Is(err, adminauth.ErrInvalidCredentials):
		code, msg, reason = http.StatusUnauthorized,
			"Invalid credentials. Please check your username, email, and access key.", "invalid_credentials"
	case errors.Is(err, adminauth.ErrUnauthorizedUsername):
		code, msg, reason = http.StatusForbidden, "Unauthorized username", "unauthorized_username"
	default:
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	obs.LoginFailures.WithLabelValues(reason).Inc()
	_ = audit.LogEvent(r.Context(), "adminauth.login.failed", map[string]any{
		"fingerprint": fp,
		"reason":      reason,
	})
	if st.IsBlocked && st.Attempts == adminauth.LockoutThreshold {
		obs.Lockouts.Inc()
		_ = audit.LogEvent(r.Context(), "adminauth.lockout", map[string]any{
			"fingerprint": fp,
		})
	}
	writeJSON(w, code, map[string]any{
		"error":         msg,
		"rateLimitInfo": infoFromStatus(st),
	})
}

func (a *API) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, err := sessionFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]string{
			"username": sess.Username,
			"email":    sess.Email,
		},
	})
}

func (a *API) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	st, err := a.auth.RateLimitStatus(r.Context(), fingerprint(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempts":      st.Attempts,
		"isBlocked":     !st.Allowed,
		"timeRemaining": st.TimeRemaining,
	})
}

func (a *API) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session cleared successfully",
	})
}

// requireSession guards the admin JSON endpoints.
func (a *API) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := sessionFromRequest(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
			return
		}
		next(w, r)
	}
}

// requirePage guards the admin HTML pages: invalid or missing sessions are
// bounced to the login page with the stale cookie cleared.
func (a *API) requirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := sessionFromRequest(r); err != nil {
			a.clearSessionCookie(w)
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}
