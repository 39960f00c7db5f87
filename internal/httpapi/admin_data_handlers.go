package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"kosmicapps.com/internal/audit"
	"kosmicapps.com/internal/site"
)

func (a *API) handleSignups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	signups, err := a.store.ListSignups(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to load signups")
		return
	}
	if signups == nil {
		signups = []site.Signup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signups": signups,
		"total":   len(signups),
	})
}

type sendInvitesRequest struct {
	App        string   `json:"app"`
	InviteLink string   `json:"inviteLink"`
	Emails     []string `json:"emails"`
}

func (a *API) handleSendInvites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sendInvitesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.App == "" || req.InviteLink == "" || len(req.Emails) == 0 {
		writeError(w, r, http.StatusBadRequest, "Missing required fields: app, inviteLink, and emails")
		return
	}

	sent := 0
	var failed []string
	for _, email := range req.Emails {
		name := ""
		if matches, err := a.store.FindSignupsByEmail(r.Context(), email); err == nil && len(matches) > 0 {
			name = matches[0].Name
		}
		if err := a.mail.SendInvite(r.Context(), email, name, req.App, req.InviteLink); err != nil {
			failed = append(failed, email)
			continue
		}
		if err := a.store.MarkInviteSent(r.Context(), email, time.Now()); err != nil {
			_ = audit.LogEvent(r.Context(), "invites.mark_failed", map[string]any{
				"email": email,
				"error": err.Error(),
			})
		}
		sent++
	}

	msg := fmt.Sprintf("Successfully sent %d invite(s)", sent)
	if len(failed) > 0 {
		msg = fmt.Sprintf("Sent %d invite(s), %d failed", sent, len(failed))
	}
	_ = audit.LogEvent(r.Context(), "invites.sent", map[string]any{
		"app":    req.App,
		"sent":   sent,
		"failed": len(failed),
	})
	if failed == nil {
		failed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      len(failed) == 0,
		"emailsSent":   sent,
		"failedEmails": failed,
		"message":      msg,
	})
}

func (a *API) handleFormAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	interactions, err := a.store.ListInteractions(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, site.Summarize(interactions))
}
