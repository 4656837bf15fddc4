package ifxfdw

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/ifx-fdw/auth"
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/flight"
)

// ServerConfig contains configuration for the Flight server.
type ServerConfig struct {
	// Tables resolves the foreign tables served.
	// REQUIRED: MUST NOT be nil.
	Tables catalog.RelationCatalog

	// Types is the host type system filters and conversions use.
	// OPTIONAL: If nil, Tables is used when it implements flight.TypeSystem
	// (as *catalog.StaticCatalog does), else the builtin catalog.
	Types flight.TypeSystem

	// Registry caches remote connections.
	// OPTIONAL: A new registry is created if nil. The caller owns a
	// registry it passes in and must Close it.
	Registry *conncache.Registry

	// Opener opens remote database handles.
	// OPTIONAL: Uses remote.Open if nil.
	Opener conncache.Opener

	// Authenticator validates bearer tokens. The identity it returns selects
	// the user mapping of remote connections.
	// OPTIONAL: If nil, no authentication (all requests use the public mapping).
	Authenticator auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If LogLevel is also set and Logger is nil, a text logger with that
	// level is created.
	Logger *slog.Logger

	// LogLevel sets the logging level of the default logger.
	// OPTIONAL: If nil, uses Info level.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string
}

// Standard errors returned by the ifxfdw package.
var (
	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = auth.ErrUnauthenticated

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)
