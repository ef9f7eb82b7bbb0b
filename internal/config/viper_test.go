package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFirstOf(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	value, key := FirstOf(SuggestionAPIKeys...)
	assert.Equal(t, "google-key", value)
	assert.Equal(t, "GOOGLE_API_KEY", key)
	assert.Equal(t, "google-key", SuggestionAPIKey())

	viper.Set("GEMINI_API_KEY", "gemini-key")
	assert.Equal(t, "gemini-key", SuggestionAPIKey())
}

func TestFirstOfEmpty(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("ATTRMAP_TEST_UNSET", "")

	value, key := FirstOf("ATTRMAP_TEST_UNSET")
	assert.Empty(t, value)
	assert.Empty(t, key)
}
