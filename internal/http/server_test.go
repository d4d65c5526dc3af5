package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"melodora/internal/auth"
	"melodora/internal/compare"
	"melodora/internal/core"
	"melodora/pkg/musiclink"
)

const validToken = "valid-token"

type fakeAuth struct {
	signedOut []string
}

func (f *fakeAuth) Enabled() bool { return true }

func (f *fakeAuth) User(_ context.Context, token string) (*core.User, error) {
	if token != validToken {
		return nil, auth.ErrInvalidToken
	}
	user := core.NewUser("user-1", "jane@example.com", "Jane")
	return &user, nil
}

func (f *fakeAuth) Refresh(context.Context, string) (*auth.Session, error) {
	return nil, auth.ErrInvalidToken
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	if password != "password123" {
		return nil, &auth.Error{Status: http.StatusBadRequest, Code: "invalid_grant"}
	}
	return &auth.Session{
		AccessToken:  validToken,
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		User:         core.NewUser("user-1", email, ""),
	}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*auth.Session, error) {
	return &auth.Session{User: core.NewUser("user-2", email, "")}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeAuth) VerifyEmail(context.Context, string, string) (*auth.Session, error) {
	return nil, errors.New("not used")
}

type fakeComparer struct {
	mu     sync.Mutex
	calls  int
	result *core.ComparisonResult
	err    error
}

func (f *fakeComparer) Compare(context.Context, string, string) (*core.ComparisonResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type fakeHistory struct {
	items  []core.HistoryItem
	limits []int
}

func (f *fakeHistory) Load(_ context.Context, _ string, limit int) []core.HistoryItem {
	f.limits = append(f.limits, limit)
	return f.items
}

type fakeResolver struct{}

func (fakeResolver) Resolve(context.Context, string) (*musiclink.TrackInfo, error) {
	return &musiclink.TrackInfo{Title: "Preview Title", Artist: "Artist", Type: musiclink.LinkTypeYouTube}, nil
}

type testEnv struct {
	server   *Server
	auth     *fakeAuth
	comparer *fakeComparer
	history  *fakeHistory
}

func newTestEnv(t *testing.T, comparer core.Comparer) *testEnv {
	t.Helper()
	env := &testEnv{
		auth:    &fakeAuth{},
		history: &fakeHistory{},
	}
	if comparer == nil {
		env.comparer = &fakeComparer{result: &core.ComparisonResult{
			MatchedTitle: "Matched Song",
			MatchedURL:   "https://youtu.be/match",
			Similarity:   0.873,
		}}
		comparer = env.comparer
	}

	server, err := NewServer(core.DefaultConfig(), Dependencies{
		Auth:     env.auth,
		Comparer: comparer,
		History:  env.history,
		Resolver: fakeResolver{},
	}, zap.NewNop())
	require.NoError(t, err)
	env.server = server
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func signedIn() *http.Cookie {
	return &http.Cookie{Name: auth.AccessTokenCookie, Value: validToken}
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCreateHTTPServer(t *testing.T) {
	config := &core.ServerConfig{
		Host:         "0.0.0.0",
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	mux := http.NewServeMux()
	server := createHTTPServer(config, mux)

	assert.Equal(t, "0.0.0.0:9090", server.Addr)
	assert.Equal(t, config.ReadTimeout, server.ReadTimeout)
	assert.Equal(t, config.WriteTimeout, server.WriteTimeout)
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/melodora.css"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestReadyzReportsDependencyFailure(t *testing.T) {
	server, err := NewServer(core.DefaultConfig(), Dependencies{
		Auth:     &fakeAuth{},
		Comparer: &fakeComparer{},
		History:  &fakeHistory{},
		Ready:    func(context.Context) error { return errors.New("db down") },
	}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedRoutesRequireUser(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/homepage", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompareFormFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, postForm("/homepage", url.Values{"url": {"https://youtu.be/abc123"}}), signedIn())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/homepage", rec.Header().Get("Location"))

	session := findCookie(rec, sessionCookie)
	require.NotNil(t, session, "a session cookie must be issued")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/homepage", nil), signedIn(), session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "87.3%")
	assert.Contains(t, body, "Matched Song")
	assert.Equal(t, 1, env.comparer.calls)
	assert.NotEmpty(t, env.history.limits, "history is refreshed after success")
}

func TestCompareFormValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, postForm("/homepage", url.Values{"url": {"https://open.spotify.com/track/1"}}), signedIn())
	session := findCookie(rec, sessionCookie)
	require.NotNil(t, session)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/homepage", nil), signedIn(), session)
	assert.Contains(t, rec.Body.String(), "Please enter a valid YouTube URL")
	assert.Zero(t, env.comparer.calls)
}

func TestCompareAPIBackendErrors(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "boom"}`))
	}))
	defer backend.Close()

	env := newTestEnv(t, compare.NewClient(backend.URL, 0, zap.NewNop()))

	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(`{"youtube_url": "https://youtu.be/abc"}`))
	rec := env.do(t, req, signedIn())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "boom", body.Error)
}

func TestCompareAPISuccess(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(`{"youtube_url": "https://www.youtube.com/watch?v=abc"}`))
	rec := env.do(t, req, signedIn())

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Matched Song", body["matched_title"])
	assert.Equal(t, "87.3%", body["similarity_percent"])
}

func TestCompareAPIInvalidLink(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(`{"youtube_url": "   "}`))
	rec := env.do(t, req, signedIn())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a YouTube URL")
	assert.Zero(t, env.comparer.calls)
}

func TestClassifyAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		input    string
		linkType string
		accepted bool
	}{
		{"https://youtu.be/abc", "youtube", true},
		{"spotify:track:123", "spotify", false},
		{"abc", "none", false},
		{"https://example.com/song", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/links/classify?url="+url.QueryEscape(tt.input), nil)
			rec := env.do(t, req, signedIn())
			require.Equal(t, http.StatusOK, rec.Code)

			var body classifyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.linkType, body.Type)
			assert.Equal(t, tt.accepted, body.Accepted)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestPreviewAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/links/preview?url="+url.QueryEscape("https://youtu.be/abc"), nil)
	rec := env.do(t, req, signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Preview Title")

	req = httptest.NewRequest(http.MethodGet, "/api/links/preview?url=nope", nil)
	rec = env.do(t, req, signedIn())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHistoryPagesAndAPI(t *testing.T) {
	env := newTestEnv(t, nil)
	env.history.items = []core.HistoryItem{
		{ID: "1", FromTitle: "Upload", MatchedTitle: "Match A", Similarity: 0.9},
		{ID: "2", FromTitle: "Unknown Title", MatchedTitle: "Match B", Similarity: 0.5},
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Match A")
	assert.Contains(t, rec.Body.String(), "2 comparisons")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/profile", nil), signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "70.0%")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/history?limit=500", nil), signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	var body historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)
	assert.Equal(t, "90.0%", body.Items[0].SimilarityPercent)

	assert.Equal(t, []int{100, 50, 100}, env.history.limits)
}

func TestProfileWithoutHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/profile", nil), signedIn())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "--")
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, postForm("/login", url.Values{"email": {"not-an-email"}, "password": {"x"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a valid email address")

	rec = env.do(t, postForm("/login", url.Values{"email": {"jane@example.com"}, "password": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")

	rec = env.do(t, postForm("/login", url.Values{"email": {"jane@example.com"}, "password": {"password123"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/homepage", rec.Header().Get("Location"))
	token := findCookie(rec, auth.AccessTokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, validToken, token.Value)
	assert.True(t, token.HttpOnly)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), signedIn())
	assert.Equal(t, http.StatusSeeOther, rec.Code, "signed-in users skip the login page")
}

func TestSignupAwaitingConfirmation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, postForm("/signup", url.Values{"email": {"new@example.com"}, "password": {"short"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 8 characters")

	rec = env.do(t, postForm("/signup", url.Values{"email": {"new@example.com"}, "password": {"long-enough"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?message=check_email", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil), signedIn())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?signed_out=1", rec.Header().Get("Location"))
	assert.Equal(t, []string{validToken}, env.auth.signedOut)

	cleared := findCookie(rec, auth.AccessTokenCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestThemeToggle(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.Header.Set("Referer", "http://example.com/history")
	rec := env.do(t, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/history", rec.Header().Get("Location"))
	themeCookie := findCookie(rec, "melodora-theme")
	require.NotNil(t, themeCookie)
	assert.Equal(t, "light", themeCookie.Value, "default dark toggles to light")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), themeCookie)
	assert.Contains(t, rec.Body.String(), `class="light"`)
}

func TestLocalReferer(t *testing.T) {
	tests := []struct {
		referer  string
		expected string
	}{
		{"", "/"},
		{"http://example.com/profile?x=1", "/profile?x=1"},
		{"http://evil.com/profile", "/"},
		{"http://example.com//evil.com", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.referer, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/theme", nil)
			req.Header.Set("Referer", tt.referer)
			assert.Equal(t, tt.expected, localReferer(req))
		})
	}
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 20, parseLimit("", 20, 100))
	assert.Equal(t, 20, parseLimit("-3", 20, 100))
	assert.Equal(t, 5, parseLimit("5", 20, 100))
	assert.Equal(t, 100, parseLimit("500", 20, 100))
}
