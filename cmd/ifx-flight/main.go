// Command ifx-flight serves the Informix foreign tables of a YAML
// configuration over Arrow Flight.
//
// Usage:
//
//	ifx-flight -config ifx-flight.yaml
//
// The driver server option selects the database/sql driver of a foreign
// server. Besides an Informix driver registered by the build, the duckdb and
// pgx drivers are linked in.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"

	ifxfdw "github.com/hugr-lab/ifx-fdw"
)

func main() {
	configPath := flag.String("config", "ifx-flight.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cat, err := cfg.Builder().Build()
	if err != nil {
		log.Fatalf("Failed to build catalog: %v", err)
	}

	serverConfig := ifxfdw.ServerConfig{
		Tables:         cat,
		Authenticator:  cfg.Authenticator(),
		Logger:         logger,
		MaxMessageSize: cfg.MaxMessageSize,
		Address:        cfg.Address,
	}
	grpcServer := grpc.NewServer(ifxfdw.ServerOptions(serverConfig)...)
	registry, err := ifxfdw.NewServer(grpcServer, serverConfig)
	if err != nil {
		log.Fatalf("Failed to register Flight server: %v", err)
	}
	defer registry.Close()

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		logger.Info("Flight server listening", "address", cfg.Listen, "tables", len(cfg.Tables))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Flight server failed", "error", err)
			os.Exit(1)
		}
	}()

	var admin *http.Server
	if cfg.Admin != "" {
		admin = &http.Server{
			Addr:              cfg.Admin,
			Handler:           adminRouter(registry, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Admin server listening", "address", cfg.Admin)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin server failed", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := admin.Shutdown(ctx); err != nil {
			logger.Warn("Admin server shutdown failed", "error", err)
		}
		cancel()
	}
	grpcServer.GracefulStop()
}
