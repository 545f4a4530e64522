// Package config provides configuration management for the cryptobrief server.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Supabase  SupabaseConfig
	Redis     RedisConfig
	OpenServ  OpenServConfig
	CoinGecko CoinGeckoConfig
	Google    GoogleConfig
	UI        UIConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
	// PublicURL is where the browser app lives; the OAuth callback redirects there
	PublicURL      string
	CookieSecure   bool
	SessionMaxIdle time.Duration
}

// SupabaseConfig holds the hosted store settings. DatabaseURL is optional;
// when set the server talks to Postgres directly instead of the REST API.
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	DatabaseURL    string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// OpenServConfig holds the brief workspace settings. Both values are
// checked per request, not at startup.
type OpenServConfig struct {
	APIKey      string
	WorkspaceID string
	BaseURL     string
}

// CoinGeckoConfig holds market-data settings
type CoinGeckoConfig struct {
	APIKey  string
	BaseURL string
	// RequestsPerMinute paces outbound calls to stay inside the demo quota
	RequestsPerMinute int
}

// GoogleConfig holds OAuth client settings
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// UIConfig holds the durations of the timer-gated UI patterns
type UIConfig struct {
	SettingsSaveDelay time.Duration
	UpgradeModalDelay time.Duration
	BannerAutoDismiss time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			PublicURL:      strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:5173"), "/"),
			CookieSecure:   getEnvAsBool("SESSION_COOKIE_SECURE", false),
			SessionMaxIdle: getEnvAsDuration("SESSION_MAX_IDLE", 12*time.Hour),
		},
		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(getEnv("VITE_SUPABASE_URL", ""), "/"),
			AnonKey:        getEnv("VITE_SUPABASE_ANON_KEY", ""),
			DatabaseURL:    getEnv("SUPABASE_DB_URL", ""),
			MaxConnections: getEnvAsInt("SUPABASE_DB_MAX_CONNECTIONS", 10),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 10),
		},
		OpenServ: OpenServConfig{
			APIKey:      getEnv("OPENSERV_API_KEY", ""),
			WorkspaceID: getEnv("VITE_OPENSERV_WORKSPACE_ID", ""),
			BaseURL:     strings.TrimRight(getEnv("OPENSERV_BASE_URL", "https://api.openserv.ai"), "/"),
		},
		CoinGecko: CoinGeckoConfig{
			APIKey:            getEnv("VITE_COINGECKO_API_KEY", ""),
			BaseURL:           strings.TrimRight(getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com"), "/"),
			RequestsPerMinute: getEnvAsInt("COINGECKO_REQUESTS_PER_MINUTE", 30),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		},
		UI: UIConfig{
			SettingsSaveDelay: getEnvAsDuration("SETTINGS_SAVE_DELAY", 5*time.Second),
			UpgradeModalDelay: getEnvAsDuration("UPGRADE_MODAL_DELAY", 5*time.Second),
			BannerAutoDismiss: getEnvAsDuration("BANNER_DISMISS", 4*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate reports settings without which the server must not start.
// The persistence client cannot be built without the Supabase URL and key.
func (c *Config) Validate() error {
	var missing []string
	if c.Supabase.URL == "" {
		missing = append(missing, "VITE_SUPABASE_URL")
	}
	if c.Supabase.AnonKey == "" {
		missing = append(missing, "VITE_SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Address returns host:port for the Redis client
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
