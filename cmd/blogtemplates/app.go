package main

import (
	"context"
	"fmt"

	"github.com/deppfellow/blogtemplates/internal/config"
	"github.com/deppfellow/blogtemplates/internal/logger"
	"github.com/deppfellow/blogtemplates/internal/repository"
	"github.com/deppfellow/blogtemplates/internal/server"
	"github.com/deppfellow/blogtemplates/internal/service"
	"github.com/rs/zerolog"
)

// app is everything a command needs, built in dependency order.
type app struct {
	cfg      *config.Config
	log      *zerolog.Logger
	server   *server.Server
	services *service.Services
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		loggerService.Shutdown()
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	repos := repository.NewRepositories(srv)
	services, err := service.NewService(srv, repos)
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return nil, fmt.Errorf("could not create services: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      &log,
		server:   srv,
		services: services,
	}, nil
}
