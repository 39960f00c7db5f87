package adminauth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// emailPattern is deliberately permissive: anything shaped user@host.tld.
// The real gate is the equality check against the configured admin email.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address satisfies the accepted syntax.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Config names the single authorized admin identity. Both values come from
// server configuration; an empty value is a server configuration error
// surfaced at request time, never as "wrong credentials".
type Config struct {
	AdminUsername string
	AdminEmail    string
}

// Mailer dispatches the minted access key to the admin's inbox.
type Mailer interface {
	SendAccessKey(ctx context.Context, to, username, key string) error
}

// Service implements the key issuance and login flows over a KeyStore,
// a RateLimiter and a Mailer.
type Service struct {
	cfg     Config
	keys    KeyStore
	limiter RateLimiter
	mailer  Mailer
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock. Only intended for test use.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a Service.
func NewService(cfg Config, keys KeyStore, limiter RateLimiter, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		keys:    keys,
		limiter: limiter,
		mailer:  mailer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest carries a sanitized key-issuance submission.
type IssueRequest struct {
	Username    string
	Email       string
	Fingerprint string
}

// IssueKey validates the requested identity against the configured admin,
// applies the rate limit, then mints, stores and emails a fresh access key.
// A new key silently replaces any outstanding unused one for the email.
//
// Authorization rejections (wrong email or username) are not recorded as
// failed attempts; only the login flow counts toward lockout.
func (s *Service) IssueKey(ctx context.Context, req IssueRequest) (Status, error) {
	if req.Username == "" || req.Email == "" {
		return Status{}, ErrMissingFields
	}
	if !ValidEmail(req.Email) {
		return Status{}, ErrInvalidEmail
	}
	if s.cfg.AdminEmail == "" {
		return Status{}, ErrNotConfigured
	}
	if !strings.EqualFold(req.Email, s.cfg.AdminEmail) {
		return Status{}, ErrUnauthorizedEmail
	}
	if s.cfg.AdminUsername == "" {
		return Status{}, ErrNotConfigured
	}
	if !strings.EqualFold(req.Username, s.cfg.AdminUsername) {
		return Status{}, ErrUnauthorizedUsername
	}

	rl, err := s.limiter.Check(ctx, req.Fingerprint)
	if err != nil {
		return Status{}, err
	}
	if !rl.Allowed {
		return rl, ErrRateLimited
	}

	key, err := GenerateAccessKey()
	if err != nil {
		return rl, err
	}
	record := AccessKey{
		Key:       key,
		Email:     req.Email,
		Username:  req.Username,
		CreatedAt: s.now(),
	}
	if err := s.keys.Set(ctx, req.Email, record); err != nil {
		return rl, err
	}

	// The key stays stored even when dispatch fails; a retried issuance
	// simply overwrites it.
	if err := s.mailer.SendAccessKey(ctx, req.Email, req.Username, key); err != nil {
		return rl, fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}
	return rl, nil
}

// LoginRequest carries a sanitized login submission.
type LoginRequest struct {
	Username    string
	Email       string
	AccessKey   string
	Fingerprint string
}

// Login validates the submission against the stored key and, on success,
// consumes the key, clears lockout state and mints a session token.
//
// Every credential rejection (missing key, expired key, mismatch,
// unauthorized username) records a failed attempt, and the returned Status
// reports the incremented count so the caller can render "N attempts
// remaining". Field, classifier and lockout rejections come first and are
// not counted.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, Status, error) {
	if req.Username == "" || req.Email == "" || req.AccessKey == "" {
		return "", Status{}, ErrMissingFields
	}

	rl, err := s.limiter.Check(ctx, req.Fingerprint)
	if err != nil {
		return "", Status{}, err
	}
	if !rl.Allowed {
		return "", rl, ErrRateLimited
	}

	stored, ok, err := s.keys.Get(ctx, req.Email)
	if err != nil {
		return "", rl, err
	}
	if !ok {
		st, ferr := s.fail(ctx, req.Fingerprint, rl)
		if ferr != nil {
			return "", rl, ferr
		}
		return "", st, ErrInvalidKey
	}

	if stored.Expired(s.now()) {
		if _, err := s.keys.Delete(ctx, req.Email); err != nil {
			return "", rl, err
		}
		st, ferr := s.fail(ctx, req.Fingerprint, rl)
		if ferr != nil {
			return "", rl, ferr
		}
		return "", st, ErrKeyExpired
	}

	if stored.Username != req.Username || stored.Email != req.Email || stored.Key != req.AccessKey {
		st, ferr := s.fail(ctx, req.Fingerprint, rl)
		if ferr != nil {
			return "", rl, ferr
		}
		return "", st, ErrInvalidCredentials
	}

	// Defense in depth: the stored record should only ever hold the
	// configured username, but re-check against configuration anyway.
	if s.cfg.AdminUsername == "" {
		return "", rl, ErrNotConfigured
	}
	if !strings.EqualFold(req.Username, s.cfg.AdminUsername) {
		st, ferr := s.fail(ctx, req.Fingerprint, rl)
		if ferr != nil {
			return "", rl, ferr
		}
		return "", st, ErrUnauthorizedUsername
	}

	if err := s.limiter.Clear(ctx, req.Fingerprint); err != nil {
		return "", rl, err
	}
	if _, err := s.keys.Delete(ctx, req.Email); err != nil {
		return "", rl, err
	}
	token, err := NewSessionToken(req.Username, req.Email, req.Fingerprint, s.now())
	if err != nil {
		return "", rl, err
	}
	return token, Status{Allowed: true}, nil
}

// RateLimitStatus reports the caller's current standing without mutating it.
func (s *Service) RateLimitStatus(ctx context.Context, fingerprint string) (Status, error) {
	return s.limiter.Peek(ctx, fingerprint)
}

// fail records a failed attempt and reports the caller's updated standing.
func (s *Service) fail(ctx context.Context, fingerprint string, prior Status) (Status, error) {
	if err := s.limiter.RecordFailure(ctx, fingerprint); err != nil {
		return Status{}, err
	}
	attempts := prior.Attempts + 1
	return Status{
		Attempts:  attempts,
		IsBlocked: attempts >= LockoutThreshold,
	}, nil
}
