// Package appcontext provides the shared application context interface
// used by all commands. This eliminates interface duplication across
// command packages and provides a single source of truth for app dependencies.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/internal/metrics"
)

// Interface defines the application context interface that commands need.
// The App struct from cmd/attrmap/app implements it; tests substitute
// their own.
type Interface interface {
	// Client returns the default client, creating it lazily if needed.
	// This is thread-safe and ensures only one instance is created.
	Client() (attrmap.Client, error)

	// ClientWithOptions creates a new client from the configuration with
	// opts applied last, so they override configured settings.
	ClientWithOptions(opts ...attrmap.Option) (attrmap.Client, error)

	// Metrics returns the recorder every client of this app reports to.
	Metrics() *metrics.Recorder

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, markdown).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
