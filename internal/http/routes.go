package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"melodora/internal/auth"
	"melodora/internal/core"
)

const (
	sessionCookie = "melodora-session"
	sessionTTL    = 30 * 24 * time.Hour
	corsMaxAge    = 300
)

type sessionKey struct{}

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if origins := s.config.Server.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		}))
	}
	r.Use(s.themes.Middleware)
	r.Use(s.guard.Middleware)
	r.Use(s.sessionMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Handle("/static/*", http.StripPrefix("/static/", staticFiles()))

	r.Get("/", s.handleLanding)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/signup", s.handleSignupPage)
	r.Post("/signup", s.handleSignup)
	r.Get("/auth/confirm", s.handleConfirm)
	r.Get("/error", s.handleErrorPage)
	r.Post("/theme", s.handleTheme)
	r.Post("/logout", s.handleLogout)

	r.Get("/homepage", s.handleHomepage)
	r.Post("/homepage", s.handleCompareForm)
	r.Get("/history", s.handleHistory)
	r.Get("/profile", s.handleProfile)

	r.Route("/api", func(r chi.Router) {
		r.Get("/links/classify", s.handleClassify)
		r.Get("/links/preview", s.handlePreview)
		r.Post("/compare", s.handleCompare)
		r.Get("/history", s.handleHistoryAPI)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// sessionMiddleware assigns every browser a session id; comparison state is
// kept per session.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if id, parseErr := uuid.Parse(c.Value); parseErr == nil {
				sessionID = id.String()
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(sessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   s.config.Server.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sessionID)))
	})
}

func sessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// controller returns the session's controller bound to the current user.
func (s *Server) controller(r *http.Request) *core.Controller {
	ctrl := s.sessions.Get(sessionIDFromContext(r.Context()))
	ctrl.SetUser(auth.UserFromContext(r.Context()))
	s.SetActiveSessions(s.sessions.Len())
	return ctrl
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "melodora"}, s.logger)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "unavailable", "service": "melodora"}, s.logger)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "melodora"}, s.logger)
}
