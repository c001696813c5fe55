// Package bot – keyring.go provides credential storage using the
// operating system's native keyring (Linux: Secret Service/GNOME
// Keyring, macOS: Keychain, Windows: Credential Manager).
//
// Priority for resolving the API key:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (CHATCLAW_API_KEY, OPENAI_API_KEY)
//  3. .env file (loaded by godotenv)
//  4. config.yaml value (least secure — plaintext on disk)
package bot

import (
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "chatclaw"

	// KeyringAPIKey is the key name for the completion API key.
	KeyringAPIKey = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring.
// Returns empty string if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// ResolveAPIKey resolves the API key using the keyring → env/config
// chain, updating the config in place. Must run before Validate so a
// keyring-held key satisfies the required-credential check.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) {
	if val := GetKeyring(KeyringAPIKey); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from OS keyring")
		return
	}
	if cfg.API.APIKey != "" {
		logger.Debug("API key loaded from config/env")
	}
}
