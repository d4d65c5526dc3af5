package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"melodora/internal/auth"
	"melodora/internal/core"
	"melodora/internal/theme"
	"melodora/pkg/musiclink"
)

const shutdownTimeout = 10 * time.Second

// AuthService is the Supabase auth surface used by the web tier.
type AuthService interface {
	auth.Authenticator
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignUp(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	VerifyEmail(ctx context.Context, tokenHash, verificationType string) (*auth.Session, error)
}

// LinkResolver looks up display metadata for a music link.
type LinkResolver interface {
	Resolve(ctx context.Context, url string) (*musiclink.TrackInfo, error)
}

// Dependencies are the collaborators the server routes requests to.
type Dependencies struct {
	Auth     AuthService
	Comparer core.Comparer
	History  core.HistoryLoader
	Resolver LinkResolver
	Limiter  core.SubmitLimiter
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func(ctx context.Context) error
	// LimiterUsers and TitleCacheSize back optional gauges.
	LimiterUsers   func() int
	TitleCacheSize func() int
	// Registerer and Gatherer default to a private registry when nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

type Server struct {
	config   *core.Config
	logger   *zap.Logger
	server   *http.Server
	metrics  *Metrics
	gatherer prometheus.Gatherer
	deps     Dependencies
	sessions *core.Registry
	guard    *auth.Guard
	themes   *theme.Manager
	forms    *auth.FormValidator
	pages    map[string]*template.Template
}

func NewServer(config *core.Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Comparer == nil || deps.History == nil || deps.Auth == nil {
		return nil, errors.New("http server requires auth, comparer and history dependencies")
	}

	registerer, gatherer := deps.Registerer, deps.Gatherer
	if registerer == nil || gatherer == nil {
		registry := prometheus.NewRegistry()
		registerer, gatherer = registry, registry
	}
	metrics, err := newMetrics(registerer, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	pages, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   config,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
		deps:     deps,
		themes:   theme.NewManager(config.App.DefaultTheme, config.Server.CookieSecure),
		forms:    auth.NewFormValidator(),
		pages:    pages,
	}

	s.guard = auth.NewGuard(deps.Auth, config.Server.CookieSecure, logger.Named("guard"))
	s.guard.OnReject(s.RecordAuthRejection)

	s.sessions, err = core.NewRegistry(config.App.SessionCacheSize, s.newController)
	if err != nil {
		return nil, err
	}

	s.server = createHTTPServer(&config.Server, s.setupRoutes())
	return s, nil
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
}

func (s *Server) newController() *core.Controller {
	return core.NewController(core.ControllerOptions{
		Comparer:     s.deps.Comparer,
		History:      s.deps.History,
		Limiter:      s.deps.Limiter,
		HistoryLimit: s.config.App.HomepageHistoryLimit,
		Logger:       s.logger.Named("controller"),
	})
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
