package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"melodora/internal/core"
)

type fakeAuthenticator struct {
	enabled   bool
	users     map[string]core.User
	refreshed *Session
	lookups   int
}

func (f *fakeAuthenticator) Enabled() bool { return f.enabled }

func (f *fakeAuthenticator) User(_ context.Context, token string) (*core.User, error) {
	f.lookups++
	if user, ok := f.users[token]; ok {
		return &user, nil
	}
	return nil, ErrInvalidToken
}

func (f *fakeAuthenticator) Refresh(_ context.Context, _ string) (*Session, error) {
	if f.refreshed == nil {
		return nil, ErrInvalidToken
	}
	return f.refreshed, nil
}

func guardedHandler(g *Guard) http.Handler {
	return g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := UserFromContext(r.Context()); user != nil {
			_, _ = w.Write([]byte("hello " + user.Name))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	}))
}

func TestGuardRejectsAnonymous(t *testing.T) {
	var rejected []string
	guard := NewGuard(&fakeAuthenticator{enabled: true}, false, zap.NewNop())
	guard.OnReject(func(path string, _ bool) { rejected = append(rejected, path) })
	handler := guardedHandler(guard)

	tests := []struct {
		path     string
		status   int
		location string
	}{
		{"/", http.StatusOK, ""},
		{"/login", http.StatusOK, ""},
		{"/auth/callback", http.StatusOK, ""},
		{"/healthz", http.StatusOK, ""},
		{"/homepage", http.StatusSeeOther, "/login"},
		{"/history", http.StatusSeeOther, "/login"},
		{"/profile", http.StatusSeeOther, "/login"},
		{"/api/history", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
	assert.Equal(t, []string{"/homepage", "/history", "/profile", "/api/history"}, rejected)
}

func TestGuardInjectsUserAndCaches(t *testing.T) {
	auth := &fakeAuthenticator{
		enabled: true,
		users:   map[string]core.User{"good": core.NewUser("u-1", "jane@example.com", "")},
	}
	handler := guardedHandler(NewGuard(auth, false, zap.NewNop()))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/homepage", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello jane", rec.Body.String())
	}
	assert.Equal(t, 1, auth.lookups, "second request should hit the user cache")
}

func TestGuardRefreshesExpiredToken(t *testing.T) {
	auth := &fakeAuthenticator{
		enabled: true,
		refreshed: &Session{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    3600,
			User:         core.NewUser("u-1", "jane@example.com", "Jane"),
		},
	}
	handler := guardedHandler(NewGuard(auth, false, zap.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "expired"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello Jane", rec.Body.String())

	var names []string
	for _, c := range rec.Result().Cookies() {
		names = append(names, c.Name+"="+c.Value)
	}
	assert.Contains(t, names, AccessTokenCookie+"=new-access")
	assert.Contains(t, names, RefreshTokenCookie+"=new-refresh")
}

func TestGuardDisabledAlwaysRedirects(t *testing.T) {
	auth := &fakeAuthenticator{users: map[string]core.User{"good": core.NewUser("u-1", "", "")}}
	handler := guardedHandler(NewGuard(auth, false, nil))

	req := httptest.NewRequest(http.MethodGet, "/homepage", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, auth.lookups)
}

func TestIsPublicPath(t *testing.T) {
	assert.True(t, IsPublicPath("/"))
	assert.True(t, IsPublicPath("/signup"))
	assert.True(t, IsPublicPath("/error"))
	assert.True(t, IsPublicPath("/static/app.css"))
	assert.False(t, IsPublicPath("/homepage"))
	assert.False(t, IsPublicPath("/loginx"))
	assert.False(t, IsPublicPath("/api/compare"))
}
