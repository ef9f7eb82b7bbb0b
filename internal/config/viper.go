// Package config reads settings that may live in the environment or in
// Viper's merged configuration.
package config

import (
	"os"

	"github.com/spf13/viper"
)

// GetString returns key from Viper, falling back to the raw environment
// when Viper has no value for it.
func GetString(key string) string {
	if value := viper.GetString(key); value != "" {
		return value
	}
	return os.Getenv(key)
}

// FirstOf returns the first non-empty value among keys, and the key it
// came from.
func FirstOf(keys ...string) (string, string) {
	for _, key := range keys {
		if value := GetString(key); value != "" {
			return value, key
		}
	}
	return "", ""
}

// SuggestionAPIKeys are the environment variables consulted, in order,
// for the suggestion model credentials.
var SuggestionAPIKeys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// SuggestionAPIKey returns the first configured suggestion API key.
func SuggestionAPIKey() string {
	key, _ := FirstOf(SuggestionAPIKeys...)
	return key
}
