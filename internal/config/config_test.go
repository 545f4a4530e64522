package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("VITE_SUPABASE_URL", "https://demo.supabase.co/")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "anon")
	t.Setenv("SETTINGS_SAVE_DELAY", "2s")
	t.Setenv("SESSION_COOKIE_SECURE", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://demo.supabase.co", cfg.Supabase.URL, "trailing slash trimmed")
	assert.Equal(t, 2*time.Second, cfg.UI.SettingsSaveDelay)
	assert.Equal(t, 5*time.Second, cfg.UI.UpgradeModalDelay)
	assert.True(t, cfg.Server.CookieSecure)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RequiresSupabase(t *testing.T) {
	t.Setenv("VITE_SUPABASE_URL", "")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VITE_SUPABASE_URL")
	assert.Contains(t, err.Error(), "VITE_SUPABASE_ANON_KEY")
}

func TestValidate_OpenServIsNotRequiredAtStartup(t *testing.T) {
	cfg := &Config{Supabase: SupabaseConfig{URL: "https://x.supabase.co", AnonKey: "k"}}
	assert.NoError(t, cfg.Validate())
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"returns integer when valid", "200", 200},
		{"returns default when invalid", "invalid", 100},
		{"returns default when not set", "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", 100))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"returns duration when valid", "30s", 30 * time.Second},
		{"returns default when invalid", "invalid", 10 * time.Second},
		{"returns default when not set", "", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", 10*time.Second))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "nope")
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
	t.Setenv("TEST_BOOL", "0")
	assert.False(t, getEnvAsBool("TEST_BOOL", true))
}
