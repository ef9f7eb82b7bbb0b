// Package constants provides shared constants used throughout the attrmap codebase.
// This includes timeouts, limits, file permissions, and the thresholds the
// reconciliation engine relies on.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the schema API
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// SuggestTimeout bounds a single call to the suggestion model
	SuggestTimeout = 60 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// LockTimeout is how long a cache writer waits for the advisory lock
	LockTimeout = 5 * time.Second

	// LockRetryInterval is the delay between advisory lock attempts
	LockRetryInterval = 50 * time.Millisecond

	// StaleLockAge is the age after which an abandoned lock file is reclaimed
	StaleLockAge = 2 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like API tokens (rw-------)
	SecureFilePermissions = 0600
)

// Flattening and matching limits
const (
	// MaxValueLength is the longest string value kept when flattening a document
	MaxValueLength = 200

	// PreviewEntries is how many flat entries are shown to the suggestion model
	PreviewEntries = 220

	// PreviewChars caps the rendered preview size sent to the suggestion model
	PreviewChars = 16000

	// DefaultMatchThreshold is the similarity a scored key match must reach
	DefaultMatchThreshold = 0.8

	// MinProductCodeDigits is the shortest accepted product code
	MinProductCodeDigits = 8

	// MaxProductCodeDigits is the longest accepted product code
	MaxProductCodeDigits = 14

	// MaxRequestBodySize limits build requests accepted by the server (10 MB)
	MaxRequestBodySize = 10 * 1024 * 1024
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default requests per second against the schema API
	DefaultRateLimit = 5

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 5

	// MaxRetries is the maximum number of retries for optimistic cache writes
	MaxRetries = 5
)

// Cache constants
const (
	// SchemaCacheTTL is how long a fetched category schema stays cached
	SchemaCacheTTL = 15 * time.Minute

	// SchemaCacheCleanupInterval is how often expired schemas are evicted
	SchemaCacheCleanupInterval = 5 * time.Minute

	// DefaultCachePath is where learned equivalences are persisted
	DefaultCachePath = "logs/ai_equivalences_cache.json"

	// DefaultRedisKey is the hash key used by the redis equivalence store
	DefaultRedisKey = "attrmap:equivalences"
)

// Network constants
const (
	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections = 100

	// MaxConnectionsPerHost is the maximum number of connections per host
	MaxConnectionsPerHost = 10
)
