// Package theme carries the visitor's light/dark preference through a request.
package theme

import (
	"context"
	"net/http"
	"time"
)

// Theme is a color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	// CookieName stores the persisted preference.
	CookieName = "melodora-theme"

	cookieTTL = 365 * 24 * time.Hour
)

// Parse returns the theme named s and whether it is valid.
func Parse(s string) (Theme, bool) {
	switch Theme(s) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	default:
		return "", false
	}
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Light {
		return Dark
	}
	return Light
}

func (t Theme) String() string {
	return string(t)
}

type contextKey struct{}

// WithTheme returns a context carrying t.
func WithTheme(ctx context.Context, t Theme) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the request theme, falling back to Dark.
func FromContext(ctx context.Context) Theme {
	if t, ok := ctx.Value(contextKey{}).(Theme); ok {
		return t
	}
	return Dark
}

// Manager reads, applies and persists the preference.
type Manager struct {
	fallback     Theme
	cookieSecure bool
}

// NewManager creates a manager. An invalid fallback is replaced by Dark.
func NewManager(fallback string, cookieSecure bool) *Manager {
	t, ok := Parse(fallback)
	if !ok {
		t = Dark
	}
	return &Manager{fallback: t, cookieSecure: cookieSecure}
}

// Resolve returns the persisted preference or the fallback.
func (m *Manager) Resolve(r *http.Request) Theme {
	if c, err := r.Cookie(CookieName); err == nil {
		if t, ok := Parse(c.Value); ok {
			return t
		}
	}
	return m.fallback
}

// Persist stores t in the preference cookie.
func (m *Manager) Persist(w http.ResponseWriter, t Theme) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    t.String(),
		Path:     "/",
		MaxAge:   int(cookieTTL.Seconds()),
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware applies the resolved theme to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithTheme(r.Context(), m.Resolve(r))))
	})
}
