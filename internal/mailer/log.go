package mailer

import (
	"context"
	"log/slog"

	"kosmicapps.com/internal/catalog"
)

// LogSender writes outbound mail to the structured log instead of sending
// it. Used in development when no Resend API key is configured.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendAccessKey(_ context.Context, to, username, key string) error {
	s.log.Info("mail.access_key", "to", to, "username", username, "key", key)
	return nil
}

func (s *LogSender) SendPreBetaWelcome(_ context.Context, to, name string, app catalog.App) error {
	s.log.Info("mail.prebeta_welcome", "to", to, "name", name, "app", app.Slug)
	return nil
}

func (s *LogSender) SendSignupNotification(_ context.Context, name, email, social, appName, comments string) error {
	s.log.Info("mail.signup_notification", "name", name, "email", email, "app", appName)
	return nil
}

func (s *LogSender) SendInvite(_ context.Context, to, name, appName, inviteLink string) error {
	s.log.Info("mail.invite", "to", to, "name", name, "app", appName, "link", inviteLink)
	return nil
}

func (s *LogSender) SendContactNotification(_ context.Context, fromName, fromEmail, subject, _ string) error {
	s.log.Info("mail.contact", "from_name", fromName, "from_email", fromEmail, "subject", subject)
	return nil
}
