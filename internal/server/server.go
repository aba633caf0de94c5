// Package server holds the shared resources of the admin API process:
// configuration, loggers, the database pool and the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/blogtemplates/internal/config"
	"github.com/deppfellow/blogtemplates/internal/database"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/blogtemplates/internal/logger"
)

// Server is the application container, not the HTTP server itself.
type Server struct {
	Config *config.Config
	Logger *zerolog.Logger

	// LoggerService holds the New Relic application, which is nil when
	// New Relic is disabled.
	LoggerService *loggerPkg.LoggerService

	DB *database.Database

	// Tables are the store table names for the configured prefix.
	Tables database.Tables

	httpServer *http.Server
}

// New connects to the database and validates the table prefix. It does
// not create the store tables; that is the install step.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	tables, err := database.NewTables(cfg.Database.TablePrefix)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Tables:        tables,
	}, nil
}

// Migrator returns the schema migrator for the configured prefix.
func (s *Server) Migrator() *database.Migrator {
	return database.NewMigrator(s.DB.Pool, s.Tables, s.Logger)
}

// SetupHTTPServer configures the HTTP server around handler.
// Timeouts in the config are whole seconds.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start serves HTTP until the server is shut down. SetupHTTPServer must
// be called first.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Str("table_prefix", s.Tables.Prefix).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then closes the pool and flushes New Relic. A failed step does
// not skip the ones after it; every failure is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if s.LoggerService != nil {
		s.LoggerService.Shutdown()
	}
	return errors.Join(errs...)
}
