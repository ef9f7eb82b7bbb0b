package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/attrmap/internal/config"
	"github.com/agentstation/attrmap/internal/validation"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/suggest"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Match strategies.
const (
	MatchContainment = "containment"
	MatchScored      = "scored"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool   `json:"-"`
	Quiet   bool   `json:"-"`
	NoColor bool   `json:"-"`
	Format  string `json:"format" validate:"omitempty,oneof=table json yaml markdown md"`

	// Config file
	ConfigFile string `json:"-"`

	Schema  SchemaConfig  `json:"schema"`
	Suggest SuggestConfig `json:"suggest"`
	Cache   CacheConfig   `json:"cache"`
	Match   MatchConfig   `json:"match"`

	// AliasesPath is an optional alias table overlaid on the built-in one.
	AliasesPath string `json:"aliases_path"`

	// ValueScan enables the bare digit product code scan.
	ValueScan bool `json:"value_scan"`

	// Logging configuration
	LogLevel string `json:"log_level"`
	// envLogLevel is LOG_LEVEL, ranked below the verbosity flags.
	envLogLevel string
	LogFormat   string `json:"log_format" validate:"omitempty,oneof=auto json console pretty"`
	LogOutput   string `json:"log_output" validate:"required"`
}

// SchemaConfig selects where category schemas come from. Dir wins over
// BaseURL when both are set.
type SchemaConfig struct {
	BaseURL   string        `json:"base_url" validate:"omitempty,url"`
	Token     string        `json:"-"`
	Dir       string        `json:"dir"`
	RateLimit float64       `json:"rate_limit" validate:"gte=0"`
	Timeout   time.Duration `json:"timeout" validate:"gte=0"`
	CacheTTL  time.Duration `json:"cache_ttl" validate:"gte=0"`
}

// SuggestConfig configures the suggestion model.
type SuggestConfig struct {
	Enabled        bool    `json:"enabled"`
	APIKey         string  `json:"-"`
	Model          string  `json:"model" validate:"required"`
	Project        string  `json:"project"`
	Location       string  `json:"location"`
	Temperature    float32 `json:"temperature" validate:"gte=0,lte=2"`
	PreviewEntries int     `json:"preview_entries" validate:"gt=0"`
	PreviewChars   int     `json:"preview_chars" validate:"gt=0"`
}

// CacheConfig selects the equivalence store.
type CacheConfig struct {
	Backend       string `json:"backend" validate:"oneof=file redis memory"`
	Path          string `json:"path" validate:"required_if=Backend file"`
	Lock          bool   `json:"lock"`
	RedisAddr     string `json:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db" validate:"gte=0"`
	RedisKey      string `json:"redis_key"`
}

// MatchConfig selects the alias matching strategy.
type MatchConfig struct {
	Strategy  string  `json:"strategy" validate:"oneof=containment scored"`
	Threshold float64 `json:"threshold" validate:"gt=0,lte=1"`
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.attrmap.yaml or ./.attrmap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults()
	bindEnv()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".attrmap")
	}

	// A missing default config file is fine; an explicit one must load
	if err := viper.ReadInConfig(); err != nil && configFile != "" {
		return nil, errors.WrapIO("read", configFile, err)
	}

	cfg := &Config{
		Format:     viper.GetString("format"),
		ConfigFile: viper.ConfigFileUsed(),

		Schema: SchemaConfig{
			BaseURL:   viper.GetString("schema.base_url"),
			Token:     config.GetString("ML_ACCESS_TOKEN"),
			Dir:       viper.GetString("schema.dir"),
			RateLimit: viper.GetFloat64("schema.rate_limit"),
			Timeout:   viper.GetDuration("schema.timeout"),
			CacheTTL:  viper.GetDuration("schema.cache_ttl"),
		},
		Suggest: SuggestConfig{
			Enabled:        viper.GetBool("suggest.enabled"),
			APIKey:         config.SuggestionAPIKey(),
			Model:          viper.GetString("suggest.model"),
			Project:        viper.GetString("suggest.project"),
			Location:       viper.GetString("suggest.location"),
			Temperature:    float32(viper.GetFloat64("suggest.temperature")),
			PreviewEntries: viper.GetInt("suggest.preview_entries"),
			PreviewChars:   viper.GetInt("suggest.preview_chars"),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(viper.GetString("cache.backend")),
			Path:          viper.GetString("cache.path"),
			Lock:          viper.GetBool("cache.lock"),
			RedisAddr:     viper.GetString("cache.redis_addr"),
			RedisPassword: config.GetString("REDIS_PASSWORD"),
			RedisDB:       viper.GetInt("cache.redis_db"),
			RedisKey:      viper.GetString("cache.redis_key"),
		},
		Match: MatchConfig{
			Strategy:  strings.ToLower(viper.GetString("match.strategy")),
			Threshold: viper.GetFloat64("match.threshold"),
		},
		AliasesPath: viper.GetString("aliases.path"),
		ValueScan:   viper.GetBool("identifiers.value_scan"),

		envLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// setDefaults registers the built-in defaults with Viper.
func setDefaults() {
	viper.SetDefault("schema.rate_limit", constants.DefaultRateLimit)
	viper.SetDefault("schema.timeout", constants.DefaultHTTPTimeout)
	viper.SetDefault("schema.cache_ttl", constants.SchemaCacheTTL)
	viper.SetDefault("suggest.enabled", true)
	viper.SetDefault("suggest.model", suggest.DefaultModel)
	viper.SetDefault("suggest.temperature", suggest.DefaultTemperature)
	viper.SetDefault("suggest.preview_entries", constants.PreviewEntries)
	viper.SetDefault("suggest.preview_chars", constants.PreviewChars)
	viper.SetDefault("cache.backend", BackendFile)
	viper.SetDefault("cache.path", constants.DefaultCachePath)
	viper.SetDefault("cache.redis_key", constants.DefaultRedisKey)
	viper.SetDefault("match.strategy", MatchContainment)
	viper.SetDefault("match.threshold", constants.DefaultMatchThreshold)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local does not override values set by .env or the shell.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// bindEnv binds the environment variables that do not follow the
// key replacer convention.
func bindEnv() {
	bindings := map[string][]string{
		"schema.base_url":        {"ATTRMAP_SCHEMA_BASE_URL", "ML_API_BASE_URL"},
		"schema.dir":             {"ATTRMAP_SCHEMA_DIR"},
		"suggest.enabled":        {"ATTRMAP_SUGGEST_ENABLED"},
		"suggest.model":          {"ATTRMAP_SUGGEST_MODEL", "GEMINI_MODEL"},
		"suggest.project":        {"GOOGLE_CLOUD_PROJECT"},
		"suggest.location":       {"GOOGLE_CLOUD_LOCATION"},
		"cache.backend":          {"ATTRMAP_CACHE_BACKEND"},
		"cache.path":             {"ATTRMAP_CACHE_PATH"},
		"cache.lock":             {"ATTRMAP_CACHE_LOCK"},
		"cache.redis_addr":       {"ATTRMAP_REDIS_ADDR", "REDIS_ADDR"},
		"match.strategy":         {"ATTRMAP_MATCH_STRATEGY"},
		"match.threshold":        {"ATTRMAP_MATCH_THRESHOLD"},
		"identifiers.value_scan": {"ATTRMAP_VALUE_SCAN"},
		"aliases.path":           {"ATTRMAP_ALIASES_PATH"},
	}
	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable for %s: %v\n", key, err)
		}
	}
	for _, key := range append([]string{"ML_ACCESS_TOKEN", "REDIS_PASSWORD"}, config.SuggestionAPIKeys...) {
		if err := viper.BindEnv(key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
