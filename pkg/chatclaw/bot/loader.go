// Package bot – loader.go loads configuration from YAML files with
// credential resolution via environment variables and .env files.
package bot

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadConfig loads configuration in layers: defaults, then the YAML
// file (explicit path, or the first discovered candidate), then
// environment variables, with numeric options clamped. Callers run
// ResolveAPIKey and then Validate before using the result; a
// validation failure is fatal at startup.
//
// A missing config file is fine as long as the environment carries the
// required credentials.
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.clamp()
	return cfg, nil
}

// SaveConfig writes a Config as YAML with restricted permissions.
// The API key is replaced with an env reference when the environment
// already carries the same value.
func SaveConfig(cfg *Config, path string) error {
	sanitized := *cfg
	if sanitized.API.APIKey != "" && os.Getenv("CHATCLAW_API_KEY") == sanitized.API.APIKey {
		sanitized.API.APIKey = "${CHATCLAW_API_KEY}"
	}

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"chatclaw.yaml",
		"chatclaw.yml",
		"configs/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations.
// godotenv.Load does NOT overwrite existing env vars.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references with their values.
// Unset variables keep the original placeholder text.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// applyEnv overlays environment variables onto the config. Env wins
// over file values so deployments can override without editing YAML.
func applyEnv(cfg *Config) {
	setString(&cfg.Discord.Token, "CHATCLAW_DISCORD_TOKEN", "DISCORD_TOKEN")
	setString(&cfg.API.APIKey, "CHATCLAW_API_KEY", "OPENAI_API_KEY")
	setString(&cfg.API.BaseURL, "CHATCLAW_BASE_URL")
	setString(&cfg.API.URLOverride, "CHATCLAW_URL_OVERRIDE")
	setString(&cfg.API.Model, "CHATCLAW_MODEL")
	setString(&cfg.API.AuthHeader, "CHATCLAW_AUTH_HEADER")
	setString(&cfg.API.ExtraHeaders, "CHATCLAW_EXTRA_HEADERS")
	setString(&cfg.History.SystemPrompt, "CHATCLAW_SYSTEM_PROMPT")

	// The auth prefix may be explicitly emptied to send the key alone,
	// so set-but-empty is meaningful here.
	if v, ok := os.LookupEnv("CHATCLAW_AUTH_PREFIX"); ok {
		cfg.API.AuthPrefix = v
	}

	setInt(&cfg.API.TimeoutSeconds, "CHATCLAW_TIMEOUT_SECONDS")
	setInt(&cfg.History.MaxMessages, "CHATCLAW_MAX_MESSAGES")
	setInt(&cfg.History.MaxChars, "CHATCLAW_MAX_CHARS")
	setInt(&cfg.Moderation.BanDeleteSeconds, "CHATCLAW_BAN_DELETE_SECONDS")

	if v := os.Getenv("CHATCLAW_ALLOWED_GUILDS"); v != "" {
		var guilds []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				guilds = append(guilds, id)
			}
		}
		cfg.Discord.AllowedGuilds = guilds
	}
	if v := os.Getenv("CHATCLAW_BANNED_PHRASES"); v != "" {
		var phrases []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		cfg.Moderation.BannedPhrases = phrases
	}
}

// setString assigns the first non-empty env var among names.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

// setInt assigns the env var when it parses; garbage keeps the default.
func setInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
