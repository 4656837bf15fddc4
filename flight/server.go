// Package flight serves Informix foreign tables over Arrow Flight.
//
// ListFlights and GetFlightInfo expose the foreign tables, DoGet plans and
// streams a scan, DoPut inserts record streams into a remote table and
// DoAction answers the list_tables and connection_stats actions.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/filter"
	"github.com/hugr-lab/ifx-fdw/scan"
)

// TypeSystem is the host type system the server resolves filters and
// conversions against. *catalog.StaticCatalog implements it.
type TypeSystem interface {
	catalog.TypeCatalog
	filter.OperatorResolver
}

// Config holds the dependencies of a Server.
type Config struct {
	// Tables resolves foreign tables. REQUIRED.
	Tables catalog.RelationCatalog
	// Types provides type I/O, casts and operators. REQUIRED.
	Types TypeSystem
	// Registry caches remote connections. REQUIRED.
	Registry *conncache.Registry
	// Opener opens new remote connections. OPTIONAL: remote.Open if nil.
	Opener conncache.Opener
	// Allocator for Arrow records. OPTIONAL: memory.DefaultAllocator if nil.
	Allocator memory.Allocator
	// Logger OPTIONAL: slog.Default() if nil.
	Logger *slog.Logger
	// Address is the public address put into FlightEndpoint locations.
	Address string
}

// Server implements the Flight service handlers.
type Server struct {
	flight.BaseFlightServer

	tables    catalog.RelationCatalog
	types     TypeSystem
	registry  *conncache.Registry
	planner   *scan.Planner
	writer    *scan.Writer
	allocator memory.Allocator
	logger    *slog.Logger
	address   string
}

// NewServer creates a Flight server over the foreign tables of cfg.
func NewServer(cfg Config) *Server {
	allocator := cfg.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plannerOpts := []scan.PlannerOption{scan.WithPlannerLogger(logger)}
	if cfg.Opener != nil {
		plannerOpts = append(plannerOpts, scan.WithOpener(cfg.Opener))
	}

	return &Server{
		tables:    cfg.Tables,
		types:     cfg.Types,
		registry:  cfg.Registry,
		planner:   scan.NewPlanner(cfg.Registry, cfg.Types, plannerOpts...),
		writer:    scan.NewWriter(cfg.Registry, cfg.Types, cfg.Opener, logger),
		allocator: allocator,
		logger:    logger,
		address:   cfg.Address,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
