// Package sessionx carries the resource owner's login between the login form
// and the authorization endpoint as an HS256 signed cookie. The cookie holds
// only the user id and expiry; no server side session table exists.
package sessionx

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultCookieName = "pesu_oauth2_session"
	DefaultTTL        = 12 * time.Hour

	audience = "pesu-oauth2/session"
)

var (
	ErrNoSession      = errors.New("sessionx: no session")
	ErrInvalidSession = errors.New("sessionx: invalid session")
	ErrWeakKey        = errors.New("sessionx: signing key must be at least 32 bytes")
)

type Manager struct {
	key        []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

type Option func(*Manager)

func WithCookieName(name string) Option { return func(m *Manager) { m.cookieName = name } }
func WithTTL(ttl time.Duration) Option  { return func(m *Manager) { m.ttl = ttl } }
func WithSecure(secure bool) Option     { return func(m *Manager) { m.secure = secure } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(key []byte, opts ...Option) (*Manager, error) {
	if len(key) < 32 {
		return nil, ErrWeakKey
	}
	m := &Manager{
		key:        key,
		cookieName: DefaultCookieName,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	return m, nil
}

// Issue signs a session for userID and sets it on w.
func (m *Manager) Issue(w http.ResponseWriter, userID string) error {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// UserID returns the subject of a valid session cookie on r.
func (m *Manager) UserID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims,
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
