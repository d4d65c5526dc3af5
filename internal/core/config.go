package core

import (
	"strings"
	"time"
)

const (
	// DefaultServerHost binds the web server on all interfaces.
	DefaultServerHost = "0.0.0.0"
	// DefaultServerPort is the web server port.
	DefaultServerPort = 3000
	// DefaultReadTimeout bounds reading a request.
	DefaultReadTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds writing a response; comparisons block the response.
	DefaultWriteTimeout = 5 * time.Minute
	// DefaultBackendURL is used when no comparison backend is configured.
	DefaultBackendURL = "http://localhost:8000"
	// DefaultHistoryLimit is the page size of the dedicated history view.
	DefaultHistoryLimit = 100
	// DefaultProfileHistoryLimit is the page size used for profile statistics.
	DefaultProfileHistoryLimit = 50
	// DefaultHomepageHistoryLimit is the page size of the homepage history panel.
	DefaultHomepageHistoryLimit = 20
	// DefaultSessionCacheSize bounds the number of live comparison controllers.
	DefaultSessionCacheSize = 10000
	// DefaultTitleCacheSize bounds the song title cache.
	DefaultTitleCacheSize = 1000
	// DefaultCompareLimitPerMinute caps comparisons per user per minute.
	DefaultCompareLimitPerMinute = 10
	// DefaultTheme is applied when the visitor has no stored preference.
	DefaultTheme = "dark"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Supabase SupabaseConfig
	Store    StoreConfig
	Log      LogConfig
	App      AppConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CookieSecure   bool
	AllowedOrigins []string
}

// BackendConfig points at the external comparison service.
// A zero Timeout leaves the request bounded only by its context.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
}

// Enabled reports whether both the project URL and the anon key are set.
func (c SupabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.AnonKey) != ""
}

type StoreConfig struct {
	DatabaseURL    string
	TitleCacheSize int
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language              string
	DefaultTheme          string
	HistoryLimit          int
	ProfileHistoryLimit   int
	HomepageHistoryLimit  int
	SessionCacheSize      int
	CompareLimitPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Backend: BackendConfig{
			BaseURL: DefaultBackendURL,
		},
		Store: StoreConfig{
			TitleCacheSize: DefaultTitleCacheSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:              "en",
			DefaultTheme:          DefaultTheme,
			HistoryLimit:          DefaultHistoryLimit,
			ProfileHistoryLimit:   DefaultProfileHistoryLimit,
			HomepageHistoryLimit:  DefaultHomepageHistoryLimit,
			SessionCacheSize:      DefaultSessionCacheSize,
			CompareLimitPerMinute: DefaultCompareLimitPerMinute,
		},
	}
}

// NormalizeBackendURL trims whitespace and trailing slashes, falling back to DefaultBackendURL.
func NormalizeBackendURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return DefaultBackendURL
	}
	return trimmed
}
