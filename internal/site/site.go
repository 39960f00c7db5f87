// Package site holds the marketing-site data model: pre-beta signups and
// form interaction events, plus the funnel summary computed from them.
package site

import (
	"context"
	"time"
)

// Form interaction event types.
const (
	EventPageVisit   = "page_visit"
	EventFieldFocus  = "field_focus"
	EventFieldBlur   = "field_blur"
	EventFormAbandon = "form_abandon"
	EventFormSubmit  = "form_submit"
)

// Signup is one pre-beta program signup.
type Signup struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	SocialMedia  string     `json:"social_media,omitempty"`
	AppSelection string     `json:"app_selection"`
	Comments     string     `json:"comments,omitempty"`
	EmailSent    bool       `json:"email_sent"`
	EmailSentAt  *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FormInteraction is one tracked event from the signup form.
type FormInteraction struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	EventType    string    `json:"event_type"`
	FieldName    string    `json:"field_name,omitempty"`
	AppSelection string    `json:"app_selection,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Referrer     string    `json:"referrer,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Store persists signups and form interactions. List methods return rows
// newest first.
type Store interface {
	InsertSignup(ctx context.Context, s *Signup) error
	ListSignups(ctx context.Context) ([]Signup, error)
	FindSignupsByEmail(ctx context.Context, email string) ([]Signup, error)
	MarkInviteSent(ctx context.Context, email string, at time.Time) error

	InsertInteraction(ctx context.Context, fi *FormInteraction) error
	ListInteractions(ctx context.Context) ([]FormInteraction, error)
}
