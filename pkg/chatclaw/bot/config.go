// Package bot holds the chatclaw configuration surface: the config
// struct, defaults, the YAML/.env loader, validation with clamping,
// and OS-keyring credential resolution.
package bot

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultSystemPrompt is used at startup and whenever the prompt is
// reset to empty.
const DefaultSystemPrompt = "You are a helpful assistant in a group chat. Keep replies short and conversational."

// ConfigError is a fatal configuration problem; the process exits at
// startup when one is returned.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Config holds all bot configuration.
type Config struct {
	// Discord configures the gateway connection.
	Discord DiscordConfig `yaml:"discord"`

	// API configures the completion endpoint.
	API APIConfig `yaml:"api"`

	// History configures per-user conversation bounds.
	History HistoryConfig `yaml:"history"`

	// Moderation configures the auto-ban hook.
	Moderation ModerationConfig `yaml:"moderation"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	// Token is the Discord bot token. Required.
	Token string `yaml:"token"`

	// AllowedGuilds restricts which guild IDs the bot responds in.
	// Empty means respond in all guilds.
	AllowedGuilds []string `yaml:"allowed_guilds"`

	// SendTyping sends a typing indicator while a reply is generated.
	SendTyping bool `yaml:"send_typing"`
}

// APIConfig configures the completion endpoint.
type APIConfig struct {
	// BaseURL is the OpenAI-compatible API base.
	BaseURL string `yaml:"base_url"`

	// URLOverride, when set, is the full completions URL used verbatim.
	URLOverride string `yaml:"url_override"`

	// APIKey is the bearer credential. Required.
	APIKey string `yaml:"api_key"`

	// Model is the model name sent in requests.
	Model string `yaml:"model"`

	// AuthHeader is the header carrying the key.
	AuthHeader string `yaml:"auth_header"`

	// AuthPrefix is prepended to the key, trailing space included.
	// Set CHATCLAW_AUTH_PREFIX to an empty value to send the key alone.
	AuthPrefix string `yaml:"auth_prefix"`

	// ExtraHeaders is a JSON object of additional request headers,
	// e.g. '{"X-Title":"chatclaw"}'. Validated at startup.
	ExtraHeaders string `yaml:"extra_headers"`

	// TimeoutSeconds bounds one completion round-trip.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// HistoryConfig configures conversation memory bounds.
type HistoryConfig struct {
	// MaxMessages is the max turns kept per user.
	MaxMessages int `yaml:"max_messages"`

	// MaxChars is the max total content length kept per user.
	MaxChars int `yaml:"max_chars"`

	// SystemPrompt overrides the built-in default prompt.
	SystemPrompt string `yaml:"system_prompt"`
}

// ModerationConfig configures the auto-ban hook.
type ModerationConfig struct {
	// BannedPhrases triggers a ban when a mention contains one
	// (case-insensitive substring match). Empty disables the hook.
	BannedPhrases []string `yaml:"banned_phrases"`

	// BanDeleteSeconds is how far back the banned member's messages
	// are deleted. Clamped to [0, 604800] (Discord's 7-day limit).
	BanDeleteSeconds int `yaml:"ban_delete_seconds"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			SendTyping: true,
		},
		API: APIConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			AuthHeader:     "Authorization",
			AuthPrefix:     "Bearer ",
			TimeoutSeconds: 90,
		},
		History: HistoryConfig{
			MaxMessages:  20,
			MaxChars:     6000,
			SystemPrompt: DefaultSystemPrompt,
		},
		Moderation: ModerationConfig{
			BanDeleteSeconds: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Timeout returns the completion timeout as a duration.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExtraHeaderMap parses ExtraHeaders as a JSON string→string object.
func (c *APIConfig) ExtraHeaderMap() (map[string]string, error) {
	if c.ExtraHeaders == "" {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(c.ExtraHeaders), &headers); err != nil {
		return nil, fmt.Errorf("parsing extra headers JSON: %w", err)
	}
	return headers, nil
}

// maxBanDeleteSeconds is Discord's ceiling for the ban delete window.
const maxBanDeleteSeconds = 604800

// clamp applies defaults to unset numeric options and bounds the ones
// with hard platform limits.
func (c *Config) clamp() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 90
	}
	if c.History.MaxMessages <= 0 {
		c.History.MaxMessages = 20
	}
	if c.History.MaxChars <= 0 {
		c.History.MaxChars = 6000
	}
	if c.History.SystemPrompt == "" {
		c.History.SystemPrompt = DefaultSystemPrompt
	}
	if c.Moderation.BanDeleteSeconds < 0 {
		c.Moderation.BanDeleteSeconds = 0
	}
	if c.Moderation.BanDeleteSeconds > maxBanDeleteSeconds {
		c.Moderation.BanDeleteSeconds = maxBanDeleteSeconds
	}
}

// Validate checks required credentials and eager-validates the extra
// headers JSON. Errors are fatal at startup.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return &ConfigError{Field: "discord.token", Reason: "bot token is required (set CHATCLAW_DISCORD_TOKEN)"}
	}
	if c.API.APIKey == "" {
		return &ConfigError{Field: "api.api_key", Reason: "API key is required (set CHATCLAW_API_KEY)"}
	}
	if c.API.BaseURL == "" && c.API.URLOverride == "" {
		return &ConfigError{Field: "api.base_url", Reason: "a base URL or URL override is required"}
	}
	if _, err := c.API.ExtraHeaderMap(); err != nil {
		return &ConfigError{Field: "api.extra_headers", Reason: err.Error()}
	}
	return nil
}
