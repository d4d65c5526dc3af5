package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"melodora/internal/core"
)

const (
	// LoginPath is where unauthenticated page requests are sent.
	LoginPath = "/login"

	userCacheSize = 1024
	userCacheTTL  = 30 * time.Second
)

var (
	publicPaths = map[string]struct{}{
		"/":        {},
		"/login":   {},
		"/signup":  {},
		"/error":   {},
		"/healthz": {},
		"/readyz":  {},
		"/metrics": {},
		"/theme":   {},
	}
	publicPrefixes = []string{"/auth/", "/static/"}
)

// IsPublicPath reports whether path is reachable without signing in.
func IsPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Authenticator is the part of Client the guard needs.
type Authenticator interface {
	Enabled() bool
	User(ctx context.Context, accessToken string) (*core.User, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Guard resolves the current user once per request and keeps anonymous
// visitors out of protected routes.
type Guard struct {
	auth         Authenticator
	cookieSecure bool
	logger       *zap.Logger
	users        *expirable.LRU[string, core.User]
	onReject     func(path string, api bool)
}

func NewGuard(auth Authenticator, cookieSecure bool, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		auth:         auth,
		cookieSecure: cookieSecure,
		logger:       logger,
		users:        expirable.NewLRU[string, core.User](userCacheSize, nil, userCacheTTL),
	}
}

// OnReject registers a callback invoked for every blocked request.
func (g *Guard) OnReject(fn func(path string, api bool)) {
	g.onReject = fn
}

// Forget drops a cached token, e.g. on sign-out.
func (g *Guard) Forget(accessToken string) {
	g.users.Remove(accessToken)
}

// Middleware injects the user into the request context and rejects
// anonymous requests to protected paths: pages redirect to /login and
// /api routes answer 401.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := g.resolve(w, r)
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}

		if user != nil || IsPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		api := strings.HasPrefix(r.URL.Path, "/api/")
		if g.onReject != nil {
			g.onReject(r.URL.Path, api)
		}
		if api {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}

func (g *Guard) resolve(w http.ResponseWriter, r *http.Request) *core.User {
	if g.auth == nil || !g.auth.Enabled() {
		return nil
	}

	accessToken, refreshToken := TokensFromRequest(r)
	if accessToken == "" && refreshToken == "" {
		return nil
	}

	if accessToken != "" {
		if cached, ok := g.users.Get(accessToken); ok {
			return &cached
		}
		user, err := g.auth.User(r.Context(), accessToken)
		if err == nil {
			g.users.Add(accessToken, *user)
			return user
		}
		if !errors.Is(err, ErrInvalidToken) {
			g.logger.Warn("Failed to resolve user", zap.Error(err))
			return nil
		}
	}

	if refreshToken == "" {
		return nil
	}
	session, err := g.auth.Refresh(r.Context(), refreshToken)
	if err != nil {
		g.logger.Debug("Session refresh failed", zap.Error(err))
		ClearSessionCookies(w, g.cookieSecure)
		return nil
	}
	SetSessionCookies(w, session, g.cookieSecure)
	if session.User.ID == "" {
		return nil
	}
	g.users.Add(session.AccessToken, session.User)
	user := session.User
	return &user
}
