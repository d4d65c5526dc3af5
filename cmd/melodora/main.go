// Package main provides the Melodora web tier entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"melodora/internal/auth"
	"melodora/internal/compare"
	"melodora/internal/core"
	"melodora/internal/flood"
	"melodora/internal/history"
	httpserver "melodora/internal/http"
	"melodora/internal/i18n"
	"melodora/internal/store"
	"melodora/internal/theme"
	"melodora/pkg/musiclink"
)

const (
	envPrefix           = "MELODORA"
	storeConnectTimeout = 15 * time.Second
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "melodora",
	Short: "Melodora - find songs that sound like a YouTube link",
	Long: `Melodora serves the web front end of the music similarity service: sign-in,
YouTube link validation, comparison requests against the analysis backend and
the personal comparison history.`,
	RunE: runMelodora,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.String("server-host", core.DefaultServerHost, "HTTP server host")
	flags.Int("server-port", core.DefaultServerPort, "HTTP server port")
	flags.Duration("server-read-timeout", core.DefaultReadTimeout, "HTTP read timeout")
	flags.Duration("server-write-timeout", core.DefaultWriteTimeout, "HTTP write timeout")
	flags.Bool("server-cookie-secure", false, "Mark cookies Secure (enable behind HTTPS)")
	flags.StringSlice("server-allowed-origins", nil, "Origins allowed to call the JSON API cross-site")
	flags.String("backend-url", core.DefaultBackendURL, "Base URL of the analysis backend")
	flags.Duration("backend-timeout", 0, "Timeout for comparison requests (0 waits for the backend)")
	flags.String("supabase-url", "", "Supabase project URL")
	flags.String("supabase-anon-key", "", "Supabase anonymous key")
	flags.String("database-url", "", "History database URL (postgres://, sqlite:// or empty to disable)")
	flags.Int("title-cache-size", core.DefaultTitleCacheSize, "Number of song titles kept in memory")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Fallback UI language (%s)", supportedLangs))
	flags.String("default-theme", core.DefaultTheme, "Theme for visitors without a preference (light, dark)")
	flags.Int("history-limit", core.DefaultHistoryLimit, "Entries shown on the history page")
	flags.Int("profile-history-limit", core.DefaultProfileHistoryLimit, "Entries used for profile statistics")
	flags.Int("homepage-history-limit", core.DefaultHomepageHistoryLimit, "Entries shown on the homepage")
	flags.Int("session-cache-size", core.DefaultSessionCacheSize, "Maximum number of live browser sessions")
	flags.Int("compare-limit-per-minute", core.DefaultCompareLimitPerMinute,
		"Maximum comparisons per user per minute (0 disables)")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureBackend(cfg)
	configureSupabase(cfg)
	configureStore(cfg)
	configureApp(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = core.DefaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	if d := viper.GetDuration("server-read-timeout"); d > 0 {
		cfg.Server.ReadTimeout = d
	}
	if d := viper.GetDuration("server-write-timeout"); d > 0 {
		cfg.Server.WriteTimeout = d
	}
	cfg.Server.CookieSecure = viper.GetBool("server-cookie-secure")
	cfg.Server.AllowedOrigins = splitList(viper.GetStringSlice("server-allowed-origins"))

	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureBackend(cfg *core.Config) {
	cfg.Backend.BaseURL = core.NormalizeBackendURL(viper.GetString("backend-url"))
	cfg.Backend.Timeout = viper.GetDuration("backend-timeout")
}

func configureSupabase(cfg *core.Config) {
	cfg.Supabase.URL = strings.TrimRight(strings.TrimSpace(viper.GetString("supabase-url")), "/")
	cfg.Supabase.AnonKey = strings.TrimSpace(viper.GetString("supabase-anon-key"))
}

func configureStore(cfg *core.Config) {
	cfg.Store.DatabaseURL = strings.TrimSpace(viper.GetString("database-url"))
	cfg.Store.TitleCacheSize = viper.GetInt("title-cache-size")
	if cfg.Store.TitleCacheSize <= 0 {
		cfg.Store.TitleCacheSize = core.DefaultTitleCacheSize
	}
}

func configureApp(cfg *core.Config) {
	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.DefaultTheme = viper.GetString("default-theme")
	if _, ok := theme.Parse(cfg.App.DefaultTheme); !ok {
		fmt.Fprintf(os.Stderr, "Warning: Unknown theme '%s', using '%s'\n", cfg.App.DefaultTheme, core.DefaultTheme)
		cfg.App.DefaultTheme = core.DefaultTheme
	}

	cfg.App.HistoryLimit = positiveOr(viper.GetInt("history-limit"), core.DefaultHistoryLimit)
	cfg.App.ProfileHistoryLimit = positiveOr(viper.GetInt("profile-history-limit"), core.DefaultProfileHistoryLimit)
	cfg.App.HomepageHistoryLimit = positiveOr(viper.GetInt("homepage-history-limit"), core.DefaultHomepageHistoryLimit)
	cfg.App.SessionCacheSize = positiveOr(viper.GetInt("session-cache-size"), core.DefaultSessionCacheSize)

	// Zero or negative disables the per-user limit.
	cfg.App.CompareLimitPerMinute = viper.GetInt("compare-limit-per-minute")
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// splitList accepts both repeated flags and a comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runMelodora(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Melodora",
		zap.String("backend_url", config.Backend.BaseURL),
		zap.Bool("auth_enabled", config.Supabase.Enabled()),
		zap.Bool("history_enabled", config.Store.DatabaseURL != ""),
		zap.String("language", config.App.Language))

	if !config.Supabase.Enabled() {
		logger.Warn("Supabase is not configured; every protected page will redirect to sign-in")
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

type services struct {
	store      store.HistoryStore
	floodgate  *flood.Floodgate
	httpServer *httpserver.Server
}

func (s *services) close() {
	s.floodgate.Stop()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Debug("Failed to close history store", zap.Error(err))
		}
	}
}

func initializeServices(ctx context.Context) (*services, error) {
	openCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	historyStore, err := store.Open(openCtx, config.Store.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	var titleCache *store.TitleCache
	if historyStore != nil {
		titleCache = store.NewTitleCache(historyStore, config.Store.TitleCacheSize, store.DefaultTitleCacheFalsePositiveRate)
		historyStore = titleCache
	}

	loader := history.NewLoader(historyStore, logger)
	floodgate := flood.New(config.App.CompareLimitPerMinute)

	deps := httpserver.Dependencies{
		Auth:         auth.NewClient(config.Supabase, logger),
		Comparer:     compare.NewClient(config.Backend.BaseURL, config.Backend.Timeout, logger),
		History:      loader,
		Resolver:     musiclink.NewManager(),
		Limiter:      floodgate,
		LimiterUsers: floodgate.ActiveUsers,
		Registerer:   prometheus.DefaultRegisterer,
		Gatherer:     prometheus.DefaultGatherer,
	}
	if historyStore != nil {
		deps.Ready = historyStore.Ping
		deps.TitleCacheSize = titleCache.Len
	}

	server, err := httpserver.NewServer(config, deps, logger)
	if err != nil {
		floodgate.Stop()
		if historyStore != nil {
			_ = historyStore.Close()
		}
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	loader.SetObserver(server.RecordHistoryLoad)

	return &services{
		store:      historyStore,
		floodgate:  floodgate,
		httpServer: server,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	logger.Info("Melodora started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Melodora stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Melodora stopped gracefully")
	return nil
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# Melodora Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: MELODORA_<SECTION>_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n\n")

	writeSection(&content, cmd, "Analysis Backend",
		"backend-url", "backend-timeout")
	writeSection(&content, cmd, "Supabase Authentication",
		"supabase-url", "supabase-anon-key")
	writeSection(&content, cmd, "Comparison History",
		"database-url", "title-cache-size", "history-limit", "profile-history-limit", "homepage-history-limit")
	writeSection(&content, cmd, "Application",
		"language", "default-theme", "session-cache-size", "compare-limit-per-minute")
	writeSection(&content, cmd, "HTTP Server",
		"server-host", "server-port", "server-read-timeout", "server-write-timeout",
		"server-cookie-secure", "server-allowed-origins")
	writeSection(&content, cmd, "Logging",
		"log-level", "log-format")

	return content.String()
}

func writeSection(content *strings.Builder, cmd *cobra.Command, title string, flagNames ...string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(flagNames, ", --"))

	for _, name := range flagNames {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(content, "# %s\n", f.Usage)
		fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(name), envDefault(f.DefValue))
	}
	content.WriteString("\n")
}

// envDefault renders pflag defaults in a form gotenv reads back.
func envDefault(value string) string {
	if value == "[]" {
		return ""
	}
	return value
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
