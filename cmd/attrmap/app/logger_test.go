package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{name: "default", expected: "info"},
		{name: "env", config: Config{envLogLevel: "error"}, expected: "error"},
		{name: "quiet beats env", config: Config{Quiet: true, envLogLevel: "debug"}, expected: "warn"},
		{name: "verbose", config: Config{Verbose: true}, expected: "debug"},
		{name: "verbose and quiet", config: Config{Verbose: true, Quiet: true}, expected: "warn"},
		{name: "flag beats verbose", config: Config{Verbose: true, LogLevel: "trace"}, expected: "trace"},
		{name: "invalid flag", config: Config{LogLevel: "loud"}, expected: "info"},
		{name: "invalid env", config: Config{envLogLevel: "loud"}, expected: "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineLogLevel(&tt.config))
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.Equal(t, level, validateLogLevel(level))
	}
	assert.Equal(t, "info", validateLogLevel("fatal"))
	assert.Equal(t, "info", validateLogLevel(""))
}

func TestNewLoggerLevel(t *testing.T) {
	previous := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	cfg := testConfig()
	cfg.Verbose = true
	assert.Equal(t, zerolog.DebugLevel, NewLogger(cfg).GetLevel())

	cfg = testConfig()
	cfg.Quiet = true
	assert.Equal(t, zerolog.WarnLevel, NewLogger(cfg).GetLevel())
}
