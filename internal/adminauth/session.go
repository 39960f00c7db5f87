package adminauth

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionLifetime is the fixed maximum age of a session. Sessions are never
// refreshed; expiry forces a fresh login.
const SessionLifetime = 24 * time.Hour

const (
	sessionIssuer     = "kosmicapps"
	secretEnvVariable = "KOSMIC_SESSION_SECRET"
)

var (
	errMissingSecret = errors.New("session secret is not configured")

	secretMu sync.Mutex
	secret   cachedSecret
)

type cachedSecret struct {
	value []byte
	err   error
	ready bool
}

// Session is the authenticated identity carried by a validated token.
type Session struct {
	Username    string
	Email       string
	Fingerprint string
	LoginTime   time.Time
}

type sessionClaims struct {
	Email       string `json:"email"`
	Fingerprint string `json:"fingerprint"`
	jwt.RegisteredClaims
}

// NewSessionToken signs an HS256 session token for a successful login.
// The login time rides in the issued-at claim.
func NewSessionToken(username, email, fingerprint string, loginTime time.Time) (string, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" {
		return "", errors.New("username and email are required")
	}
	secretBytes, err := loadSecret()
	if err != nil {
		return "", err
	}

	loginTime = loginTime.UTC()
	claims := sessionClaims{
		Email:       email,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(loginTime),
			ExpiresAt: jwt.NewNumericDate(loginTime.Add(SessionLifetime)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretBytes)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateSessionToken verifies the token signature and age. Every failure
// collapses to ErrInvalidSession: the caller learns "not authenticated" and
// nothing else.
func ValidateSessionToken(token string, now time.Time) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrInvalidSession
	}
	secretBytes, err := loadSecret()
	if err != nil {
		return Session{}, err
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSession
		}
		return secretBytes, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return Session{}, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return Session{}, ErrInvalidSession
	}
	if claims.Issuer != sessionIssuer {
		return Session{}, ErrInvalidSession
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Email) == "" {
		return Session{}, ErrInvalidSession
	}
	if claims.IssuedAt == nil || now.Sub(claims.IssuedAt.Time) > SessionLifetime {
		return Session{}, ErrInvalidSession
	}
	return Session{
		Username:    claims.Subject,
		Email:       claims.Email,
		Fingerprint: claims.Fingerprint,
		LoginTime:   claims.IssuedAt.Time,
	}, nil
}

func loadSecret() ([]byte, error) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret.ready {
		return secret.value, secret.err
	}
	raw := strings.TrimSpace(os.Getenv(secretEnvVariable))
	if raw == "" {
		secret.err = errMissingSecret
		secret.ready = true
		return nil, secret.err
	}
	secret.value = []byte(raw)
	secret.err = nil
	secret.ready = true
	return secret.value, nil
}

// ResetSessionSecretForTests clears the cached secret value. Only intended
// for test use.
func ResetSessionSecretForTests() {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = cachedSecret{}
}
