package ifxfdw

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/ifx-fdw/auth"
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/flight"
)

// NewServer registers the Flight service handlers on the provided gRPC server
// and returns the connection registry the handlers use.
//
// The function:
//  1. Validates the ServerConfig
//  2. Creates the Flight service implementation
//  3. Registers it on grpcServer
//
// Does NOT start the gRPC server - the caller controls the lifecycle via
// grpcServer.Serve(). Create grpcServer with ServerOptions(config) to enable
// authentication and request logging:
//
//	config := ifxfdw.ServerConfig{
//	    Tables:        cat,
//	    Authenticator: ifxfdw.BearerAuth(validateToken),
//	}
//	grpcServer := grpc.NewServer(ifxfdw.ServerOptions(config)...)
//	registry, err := ifxfdw.NewServer(grpcServer, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer registry.Close()
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) (*conncache.Registry, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := configLogger(config)

	types := config.Types
	if types == nil {
		if ts, ok := config.Tables.(flight.TypeSystem); ok {
			types = ts
		} else {
			types = catalog.NewStaticCatalog()
		}
	}

	registry := config.Registry
	if registry == nil {
		registry = conncache.New(conncache.WithLogger(logger))
	}

	flightServer := flight.NewServer(flight.Config{
		Tables:    config.Tables,
		Types:     types,
		Registry:  registry,
		Opener:    config.Opener,
		Allocator: allocator,
		Logger:    logger,
		Address:   config.Address,
	})
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("Informix Flight server registered",
		"has_auth", config.Authenticator != nil,
		"max_message_size", config.MaxMessageSize,
		"address", config.Address,
	)
	return registry, nil
}

// validateConfig checks that required ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if config.Tables == nil {
		return fmt.Errorf("tables catalog is required")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	return nil
}

func configLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with the authentication and
// request logging interceptors and the message size limits of config.
//
// Example:
//
//	opts := ifxfdw.ServerOptions(config)
//	grpcServer := grpc.NewServer(opts...)
//	ifxfdw.NewServer(grpcServer, config)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	logger := configLogger(config)

	var unary []grpc.UnaryServerInterceptor
	var stream []grpc.StreamServerInterceptor
	if config.Authenticator != nil {
		unary = append(unary, auth.UnaryServerInterceptor(config.Authenticator))
		stream = append(stream, auth.StreamServerInterceptor(config.Authenticator))
	}
	unary = append(unary, flight.UnaryServerInterceptor(logger))
	stream = append(stream, flight.StreamServerInterceptor(logger))

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}
