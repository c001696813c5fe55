package bot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Discord.Token = "token"
	cfg.API.APIKey = "key"
	return cfg
}

func TestValidateRequiredCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing token", func(c *Config) { c.Discord.Token = "" }, "discord.token"},
		{"missing api key", func(c *Config) { c.API.APIKey = "" }, "api.api_key"},
		{"missing endpoint", func(c *Config) { c.API.BaseURL = ""; c.API.URLOverride = "" }, "api.base_url"},
		{"malformed extra headers", func(c *Config) { c.API.ExtraHeaders = "{not json" }, "api.extra_headers"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestExtraHeaderMap(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.API.ExtraHeaders = `{"X-Title":"chatclaw","HTTP-Referer":"https://example.com"}`

	headers, err := cfg.API.ExtraHeaderMap()
	if err != nil {
		t.Fatalf("ExtraHeaderMap: %v", err)
	}
	if headers["X-Title"] != "chatclaw" || headers["HTTP-Referer"] != "https://example.com" {
		t.Errorf("headers = %v", headers)
	}

	cfg.API.ExtraHeaders = ""
	if headers, err := cfg.API.ExtraHeaderMap(); err != nil || headers != nil {
		t.Errorf("empty extra headers: got %v, %v", headers, err)
	}

	cfg.API.ExtraHeaders = `{"X-Num": 5}`
	if _, err := cfg.API.ExtraHeaderMap(); err == nil {
		t.Error("non-string header value accepted")
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.API.TimeoutSeconds = 0
	cfg.History.MaxMessages = -1
	cfg.History.MaxChars = 0
	cfg.Moderation.BanDeleteSeconds = 999999999
	cfg.clamp()

	if cfg.API.TimeoutSeconds != 90 {
		t.Errorf("TimeoutSeconds = %d, want 90", cfg.API.TimeoutSeconds)
	}
	if cfg.History.MaxMessages != 20 || cfg.History.MaxChars != 6000 {
		t.Errorf("history bounds = %d/%d", cfg.History.MaxMessages, cfg.History.MaxChars)
	}
	if cfg.Moderation.BanDeleteSeconds != 604800 {
		t.Errorf("BanDeleteSeconds = %d, want clamped to 604800", cfg.Moderation.BanDeleteSeconds)
	}

	cfg.Moderation.BanDeleteSeconds = -5
	cfg.clamp()
	if cfg.Moderation.BanDeleteSeconds != 0 {
		t.Errorf("BanDeleteSeconds = %d, want 0", cfg.Moderation.BanDeleteSeconds)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
discord:
  token: file-token
api:
  base_url: https://file.example/v1
  model: file-model
history:
  max_messages: 7
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	// Env overrides the file.
	t.Setenv("CHATCLAW_MODEL", "env-model")
	t.Setenv("CHATCLAW_MAX_CHARS", "1234")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Discord.Token != "file-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.API.BaseURL != "https://file.example/v1" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Model != "env-model" {
		t.Errorf("model = %q, env must win", cfg.API.Model)
	}
	if cfg.History.MaxMessages != 7 || cfg.History.MaxChars != 1234 {
		t.Errorf("history = %d/%d", cfg.History.MaxMessages, cfg.History.MaxChars)
	}
	// Defaults survive where nothing overrides them.
	if cfg.API.AuthHeader != "Authorization" || cfg.API.AuthPrefix != "Bearer " {
		t.Errorf("auth defaults lost: %q/%q", cfg.API.AuthHeader, cfg.API.AuthPrefix)
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("CHATCLAW_DISCORD_TOKEN", "env-token")
	t.Setenv("CHATCLAW_API_KEY", "env-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing-is-fine-when-empty.yaml"))
	if err == nil {
		t.Fatal("explicit missing path must error")
	}

	cfg, err = LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig without file: %v", err)
	}
	if cfg.Discord.Token != "env-token" || cfg.API.APIKey != "env-key" {
		t.Errorf("env credentials not applied: %q/%q", cfg.Discord.Token, cfg.API.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("env-only config invalid: %v", err)
	}
}

func TestAuthPrefixCanBeDisabled(t *testing.T) {
	// Set-but-empty disables the prefix so the key is sent alone.
	t.Setenv("CHATCLAW_AUTH_PREFIX", "")

	cfg := DefaultConfig()
	applyEnv(cfg)
	if cfg.API.AuthPrefix != "" {
		t.Errorf("AuthPrefix = %q, want empty", cfg.API.AuthPrefix)
	}
}

func TestSetIntIgnoresGarbage(t *testing.T) {
	t.Setenv("CHATCLAW_TIMEOUT_SECONDS", "not-a-number")

	cfg := DefaultConfig()
	applyEnv(cfg)
	cfg.clamp()
	if cfg.API.TimeoutSeconds != 90 {
		t.Errorf("TimeoutSeconds = %d, want default 90", cfg.API.TimeoutSeconds)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CHATCLAW_TEST_VALUE", "resolved")

	got := expandEnvVars("key: ${CHATCLAW_TEST_VALUE} and $CHATCLAW_TEST_VALUE and ${UNSET_VALUE_XYZ}")
	want := "key: resolved and resolved and ${UNSET_VALUE_XYZ}"
	if got != want {
		t.Errorf("expandEnvVars = %q, want %q", got, want)
	}
}
