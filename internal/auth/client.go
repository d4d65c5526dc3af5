// Package auth signs users in against Supabase Auth (GoTrue) and guards
// protected routes.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
	"go.uber.org/zap"

	"melodora/internal/core"
	"melodora/internal/i18n"
)

const (
	authPath       = "/auth/v1"
	requestTimeout = 10 * time.Second
)

// statusPattern matches the errors auth-go returns for non-success replies.
var statusPattern = regexp.MustCompile(`(?s)^response status code (\d+)(?::\s*(.*))?$`)

// Error is a failed GoTrue call.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("auth error %d (%s)", e.Status, e.Code)
}

// Localize maps credential failures to a fixed message and shows other
// messages as returned by the service.
func (e *Error) Localize(l *i18n.Localizer) string {
	switch {
	case e == ErrNotConfigured:
		return l.T("error.auth_unavailable")
	case e.Code == "invalid_grant" || e.Code == "invalid_credentials":
		return l.T("auth.invalid_password")
	case e.Message != "":
		return e.Message
	default:
		return l.T("error.generic")
	}
}

var (
	// ErrNotConfigured is returned by every call when no Supabase project is set.
	ErrNotConfigured = &Error{Status: http.StatusServiceUnavailable, Code: "not_configured"}
	// ErrInvalidToken is returned when an access token is missing, expired or revoked.
	ErrInvalidToken = errors.New("invalid or expired access token")
)

// Session is the result of a successful sign-in. AccessToken is empty after
// a sign-up that still awaits email confirmation.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	User         core.User
}

// Confirmed reports whether the session can be used immediately.
func (s *Session) Confirmed() bool {
	return s.AccessToken != ""
}

type wireError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// Client wraps the auth-go GoTrue client with the project's anon key.
type Client struct {
	api     gotrue.Client
	enabled bool
	logger  *zap.Logger
}

func NewClient(config core.SupabaseConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(config.URL), "/")
	anonKey := strings.TrimSpace(config.AnonKey)

	return &Client{
		api:     gotrue.New("", anonKey).WithCustomAuthURL(baseURL + authPath),
		enabled: baseURL != "" && anonKey != "",
		logger:  logger,
	}
}

// Enabled reports whether a Supabase project is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	api, err := c.withContext(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := api.Token(types.TokenRequest{GrantType: "password", Email: email, Password: password})
	if err != nil {
		return nil, translateError(err)
	}
	return toSession(resp.Session)
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	api, err := c.withContext(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := api.Token(types.TokenRequest{GrantType: "refresh_token", RefreshToken: refreshToken})
	if err != nil {
		return nil, translateError(err)
	}
	return toSession(resp.Session)
}

// SignUp registers a new account. Projects with email confirmation return
// the user without tokens.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	api, err := c.withContext(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := api.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		return nil, translateError(err)
	}

	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	if resp.ID != uuid.Nil {
		session.User = toUser(resp.User)
		return session, nil
	}
	if !session.Confirmed() {
		return nil, &Error{Status: http.StatusBadGateway, Code: "signup_without_user"}
	}

	// Auto-confirmed projects may answer with tokens only.
	user, err := c.User(ctx, session.AccessToken)
	if err != nil {
		return nil, err
	}
	session.User = *user
	return session, nil
}

// VerifyEmail redeems the token hash from a confirmation or magic link email.
// GoTrue treats a token sent without an email address as a token hash.
func (c *Client) VerifyEmail(ctx context.Context, tokenHash, verificationType string) (*Session, error) {
	if verificationType == "" {
		verificationType = "email"
	}
	api, err := c.withContext(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := api.VerifyForUser(types.VerifyForUserRequest{
		Type:  types.VerificationType(verificationType),
		Token: tokenHash,
	})
	if err != nil {
		return nil, translateError(err)
	}
	return toSession(resp.Session)
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	api, err := c.withContext(ctx)
	if err != nil {
		return err
	}
	if err := api.WithToken(accessToken).Logout(); err != nil {
		return translateError(err)
	}
	return nil
}

// User resolves the user owning accessToken.
func (c *Client) User(ctx context.Context, accessToken string) (*core.User, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	api, err := c.withContext(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := api.WithToken(accessToken).GetUser()
	if err != nil {
		err = translateError(err)
		var authErr *Error
		if errors.As(err, &authErr) && (authErr.Status == http.StatusUnauthorized || authErr.Status == http.StatusForbidden) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if resp.ID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	user := toUser(resp.User)
	return &user, nil
}

// withContext returns the API client bound to ctx for a single call.
func (c *Client) withContext(ctx context.Context) (gotrue.Client, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}
	return c.api.WithClient(http.Client{
		Timeout:   requestTimeout,
		Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
	}), nil
}

// contextTransport attaches the caller's context to requests built by auth-go.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}

// translateError turns auth-go's status errors into *Error. Transport
// failures are wrapped unchanged.
func translateError(err error) error {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	return parseError(status, []byte(m[2]))
}

func parseError(status int, body []byte) *Error {
	authErr := &Error{Status: status, Code: http.StatusText(status)}

	var we wireError
	if err := json.Unmarshal(body, &we); err != nil {
		return authErr
	}
	switch {
	case we.ErrorCode != "":
		authErr.Code = we.ErrorCode
	case we.Error != "":
		authErr.Code = we.Error
	}
	for _, msg := range []string{we.ErrorDescription, we.Msg, we.Message} {
		if msg != "" {
			authErr.Message = msg
			break
		}
	}
	return authErr
}

func toUser(u types.User) core.User {
	name := metadataString(u.UserMetadata, "name")
	if name == "" {
		name = metadataString(u.UserMetadata, "full_name")
	}
	return core.NewUser(u.ID.String(), u.Email, name)
}

func metadataString(metadata map[string]interface{}, key string) string {
	s, _ := metadata[key].(string)
	return s
}

func toSession(s types.Session) (*Session, error) {
	if s.AccessToken == "" {
		return nil, ErrInvalidToken
	}
	session := &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}
	if s.User.ID != uuid.Nil {
		session.User = toUser(s.User)
	}
	return session, nil
}
