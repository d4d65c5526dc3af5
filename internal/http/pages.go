package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"melodora/internal/auth"
	"melodora/internal/compare"
	"melodora/internal/core"
	"melodora/internal/history"
	"melodora/internal/i18n"
	"melodora/internal/theme"
	"melodora/pkg/musiclink"
)

const (
	homepagePath             = "/homepage"
	submittingRefreshSeconds = 2
)

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, pageLanding, http.StatusOK, nil)
}

func (s *Server) handleErrorPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, pageError, http.StatusOK, nil)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, homepagePath, http.StatusSeeOther)
		return
	}

	l := s.localizer(r)
	data := &pageData{L: l, Title: l.T("auth.sign_in")}
	switch {
	case r.URL.Query().Get("signed_out") != "":
		data.Message = l.T("auth.signed_out")
	case r.URL.Query().Get("message") == "check_email":
		data.Message = l.T("auth.check_email")
	}
	s.render(w, r, pageLogin, http.StatusOK, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	creds := auth.CredentialsFromRequest(r)
	data := &pageData{L: l, Title: l.T("auth.sign_in"), Email: creds.Email}

	if err := s.forms.Validate(creds); err != nil {
		s.RecordAuthAttempt("sign_in", "invalid")
		data.Error = core.Describe(err, l)
		s.render(w, r, pageLogin, http.StatusUnprocessableEntity, data)
		return
	}

	session, err := s.deps.Auth.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.RecordAuthAttempt("sign_in", "failed")
		s.logger.Info("Sign-in failed", zap.String("email", creds.Email), zap.Error(err))
		data.Error = core.Describe(err, l)
		s.render(w, r, pageLogin, http.StatusUnauthorized, data)
		return
	}

	s.RecordAuthAttempt("sign_in", "success")
	auth.SetSessionCookies(w, session, s.config.Server.CookieSecure)
	http.Redirect(w, r, homepagePath, http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, homepagePath, http.StatusSeeOther)
		return
	}
	l := s.localizer(r)
	s.render(w, r, pageSignup, http.StatusOK, &pageData{L: l, Title: l.T("auth.create_account")})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	form := auth.RegistrationFromRequest(r)
	data := &pageData{L: l, Title: l.T("auth.create_account"), Email: form.Email}

	if err := s.forms.Validate(form); err != nil {
		s.RecordAuthAttempt("sign_up", "invalid")
		data.Error = core.Describe(err, l)
		s.render(w, r, pageSignup, http.StatusUnprocessableEntity, data)
		return
	}

	session, err := s.deps.Auth.SignUp(r.Context(), form.Email, form.Password)
	if err != nil {
		s.RecordAuthAttempt("sign_up", "failed")
		s.logger.Info("Sign-up failed", zap.String("email", form.Email), zap.Error(err))
		data.Error = core.Describe(err, l)
		s.render(w, r, pageSignup, http.StatusBadRequest, data)
		return
	}

	s.RecordAuthAttempt("sign_up", "success")
	if !session.Confirmed() {
		http.Redirect(w, r, "/login?message=check_email", http.StatusSeeOther)
		return
	}
	auth.SetSessionCookies(w, session, s.config.Server.CookieSecure)
	http.Redirect(w, r, homepagePath, http.StatusSeeOther)
}

// handleConfirm finishes the email confirmation link flow.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	tokenHash := r.URL.Query().Get("token_hash")
	if tokenHash == "" {
		http.Redirect(w, r, "/error", http.StatusSeeOther)
		return
	}

	session, err := s.deps.Auth.VerifyEmail(r.Context(), tokenHash, r.URL.Query().Get("type"))
	if err != nil {
		s.logger.Info("Email confirmation failed", zap.Error(err))
		http.Redirect(w, r, "/error", http.StatusSeeOther)
		return
	}

	auth.SetSessionCookies(w, session, s.config.Server.CookieSecure)
	http.Redirect(w, r, homepagePath, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := auth.TokensFromRequest(r)
	if accessToken != "" {
		if err := s.deps.Auth.SignOut(r.Context(), accessToken); err != nil {
			s.logger.Debug("Sign-out request failed", zap.Error(err))
		}
		s.guard.Forget(accessToken)
	}

	auth.ClearSessionCookies(w, s.config.Server.CookieSecure)
	s.sessions.Remove(sessionIDFromContext(r.Context()))
	s.SetActiveSessions(s.sessions.Len())
	http.Redirect(w, r, "/login?signed_out=1", http.StatusSeeOther)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := theme.FromContext(r.Context()).Toggle()
	if requested, ok := theme.Parse(r.PostFormValue("theme")); ok {
		next = requested
	}
	s.themes.Persist(w, next)
	http.Redirect(w, r, localReferer(r), http.StatusSeeOther)
}

// localReferer returns the referring path on this host, or "/".
func localReferer(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || strings.HasPrefix(ref.Path, "//") || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func (s *Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	ctrl := s.controller(r)
	ctrl.EnsureHistory(r.Context())
	view := ctrl.Snapshot()

	data := &pageData{
		L:        l,
		Title:    l.T("compare.heading"),
		View:     view,
		LinkHint: linkHint(l, view.LinkType),
		Warning:  core.Describe(view.Warning, l),
		Failure:  core.Describe(view.Failure, l),
		Items:    view.History,
	}
	// Without scripting, poll until the pending comparison settles.
	if view.Submitting() {
		data.Refresh = submittingRefreshSeconds
	}
	s.render(w, r, pageHomepage, http.StatusOK, data)
}

// handleCompareForm runs the submission and redirects back to the homepage,
// which renders the stored outcome.
func (s *Server) handleCompareForm(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(r)
	ctrl.SetInput(r.PostFormValue("url"))
	_, _ = s.submit(r.Context(), ctrl)
	http.Redirect(w, r, homepagePath, http.StatusSeeOther)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	user := auth.UserFromContext(r.Context())
	items := s.deps.History.Load(r.Context(), user.ID, s.config.App.HistoryLimit)

	s.render(w, r, pageHistory, http.StatusOK, &pageData{
		L:     l,
		Title: l.T("history.heading"),
		Items: items,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	user := auth.UserFromContext(r.Context())
	items := s.deps.History.Load(r.Context(), user.ID, s.config.App.ProfileHistoryLimit)

	s.render(w, r, pageProfile, http.StatusOK, &pageData{
		L:     l,
		Title: l.T("profile.heading"),
		Items: items,
		Stats: history.Stats(items),
	})
}

// submit runs one comparison detached from the request's cancellation so an
// abandoned request still stores its outcome in the controller.
func (s *Server) submit(ctx context.Context, ctrl *core.Controller) (*core.ComparisonResult, error) {
	start := time.Now()
	result, err := ctrl.Submit(context.WithoutCancel(ctx))

	outcome := comparisonOutcome(err)
	var elapsed time.Duration
	switch outcome {
	case "success", "backend_error", "unreachable", "error", "discarded":
		elapsed = time.Since(start)
	}
	s.RecordComparison(outcome, elapsed)
	return result, err
}

func comparisonOutcome(err error) string {
	var backendErr *compare.BackendError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrNotAuthenticated), errors.Is(err, core.ErrEmptyLink), errors.Is(err, core.ErrInvalidLink):
		return "invalid"
	case errors.Is(err, core.ErrSubmissionPending):
		return "pending"
	case errors.Is(err, core.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, core.ErrUserChanged):
		return "discarded"
	case compare.IsUnreachable(err):
		return "unreachable"
	case errors.As(err, &backendErr):
		return "backend_error"
	default:
		return "error"
	}
}

func linkHint(l *i18n.Localizer, linkType musiclink.LinkType) string {
	switch linkType {
	case musiclink.LinkTypeYouTube:
		return l.T("link.youtube")
	case musiclink.LinkTypeSpotify:
		return l.T("link.spotify")
	case musiclink.LinkTypeUnknown:
		return l.T("link.unknown")
	default:
		return l.T("link.prompt")
	}
}
