package httpapi

import (
	"net/http"
	"strings"

	"kosmicapps.com/internal/adminauth"
	"kosmicapps.com/internal/audit"
	"kosmicapps.com/internal/catalog"
	"kosmicapps.com/internal/inputguard"
	"kosmicapps.com/internal/site"
)

func (a *API) handleApps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	category := r.URL.Query().Get("category")
	apps := catalog.Apps()
	if category != "" {
		apps = catalog.ByCategory(category)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"apps":       apps,
		"categories": catalog.Categories(),
	})
}

type preBetaRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	SocialMedia  string `json:"socialMedia"`
	AppSelection string `json:"appSelection"`
	Comments     string `json:"comments"`
}

func (a *API) handlePreBeta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req preBetaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Email == "" || req.AppSelection == "" {
		writeError(w, r, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !screenFields(w, r, map[string]string{
		"name":         req.Name,
		"email":        req.Email,
		"socialMedia":  req.SocialMedia,
		"appSelection": req.AppSelection,
		"comments":     req.Comments,
	}) {
		return
	}
	if !adminauth.ValidEmail(req.Email) {
		writeError(w, r, http.StatusBadRequest, "Invalid email format")
		return
	}
	app, ok := catalog.Find(req.AppSelection)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "Invalid app selection")
		return
	}

	signup := site.Signup{
		Name:         inputguard.Sanitize(req.Name),
		Email:        inputguard.Sanitize(req.Email),
		SocialMedia:  inputguard.Sanitize(req.SocialMedia),
		AppSelection: app.Slug,
		Comments:     inputguard.Sanitize(req.Comments),
	}
	if err := a.store.InsertSignup(r.Context(), &signup); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to save signup")
		return
	}

	// Email dispatch is best effort: the signup is already recorded, a lost
	// welcome mail must not fail the request.
	if err := a.mail.SendPreBetaWelcome(r.Context(), signup.Email, signup.Name, app); err != nil {
		_ = audit.LogEvent(r.Context(), "prebeta.welcome_failed", map[string]any{
			"email": signup.Email,
			"error": err.Error(),
		})
	}
	if err := a.mail.SendSignupNotification(r.Context(), signup.Name, signup.Email,
		signup.SocialMedia, app.Name, signup.Comments); err != nil {
		_ = audit.LogEvent(r.Context(), "prebeta.notification_failed", map[string]any{
			"email": signup.Email,
			"error": err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type trackFormRequest struct {
	SessionID    string `json:"sessionId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	EventType    string `json:"eventType"`
	FieldName    string `json:"fieldName"`
	AppSelection string `json:"appSelection"`
	Referrer     string `json:"referrer"`
}

func (a *API) handleTrackForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req trackFormRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" || req.EventType == "" {
		writeError(w, r, http.StatusBadRequest, "Missing required fields: sessionId and eventType")
		return
	}

	referrer := req.Referrer
	if referrer == "" {
		referrer = r.Referer()
	}
	fi := site.FormInteraction{
		SessionID:    inputguard.Sanitize(req.SessionID),
		Email:        inputguard.Sanitize(req.Email),
		Name:         inputguard.Sanitize(req.Name),
		EventType:    inputguard.Sanitize(req.EventType),
		FieldName:    inputguard.Sanitize(req.FieldName),
		AppSelection: inputguard.Sanitize(req.AppSelection),
		UserAgent:    r.UserAgent(),
		Referrer:     referrer,
	}
	if err := a.store.InsertInteraction(r.Context(), &fi); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to track form interaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Form interaction tracked successfully",
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Outlet  string `json:"outlet"`
	Message string `json:"message"`
}

func (a *API) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": "Name, email and message are required",
		})
		return
	}
	if !adminauth.ValidEmail(req.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": "Invalid email format",
		})
		return
	}
	if report := inputguard.ScanFields(map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"outlet":  req.Outlet,
		"message": req.Message,
	}); !report.Clean() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": "Invalid input detected. Please check your input and try again.",
		})
		return
	}

	subject := inputguard.Sanitize(req.Outlet)
	if subject == "" {
		subject = "Website contact"
	}
	if err := a.mail.SendContactNotification(r.Context(),
		inputguard.Sanitize(req.Name), inputguard.Sanitize(req.Email),
		subject, inputguard.Sanitize(req.Message)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": "Failed to send message",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
