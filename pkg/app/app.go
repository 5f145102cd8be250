// Package app assembles the configuration, storage, services and HTTP
// server into a runnable application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"

	"github.com/scriptorium/scriptorium/pkg/buildinfo"
	"github.com/scriptorium/scriptorium/pkg/config"
	"github.com/scriptorium/scriptorium/pkg/handlers"
	"github.com/scriptorium/scriptorium/pkg/models"
	"github.com/scriptorium/scriptorium/pkg/repository"
	"github.com/scriptorium/scriptorium/pkg/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

type App struct {
	settings   *config.Settings
	server     *fiber.App
	appService *services.AppService
}

// New resolves the configuration, provisions the workspace directories
// and wires the full service stack. Configuration and provisioning
// failures surface here, before any route is registered.
func New() (*App, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	paths := settings.Paths()
	if err := paths.Ensure(); err != nil {
		return nil, fmt.Errorf("provisioning directories: %w", err)
	}

	store, err := openStore(settings)
	if err != nil {
		return nil, err
	}

	appService, err := wireServices(settings, paths, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	app := &App{
		settings:   settings,
		appService: appService,
	}
	app.setupHTTPServer()

	return app, nil
}

func openStore(settings *config.Settings) (*bolthold.Store, error) {
	store, err := bolthold.Open(settings.DBPath(), 0666, nil)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

func wireServices(settings *config.Settings, paths config.Paths, store *bolthold.Store) (*services.AppService, error) {
	manifest := services.NewManifestService(settings.ManifestPath(), buildinfo.Version)
	if err := manifest.Ensure(); err != nil {
		return nil, fmt.Errorf("ensuring agents manifest: %w", err)
	}

	repo := repository.NewBoltRepository(store)

	return services.NewAppService(
		repo,
		services.NewProjectService(repo, paths),
		services.NewSplitService(paths),
		manifest,
		services.NewSettingsService(settings.SettingsStorePath(), models.ProviderSettings{
			BaseURL: settings.ProviderBaseURL,
			APIKey:  settings.ProviderAPIKey,
		}),
		services.NewReportService(paths, manifest, services.NewStatusTracker()),
	), nil
}

// setupHTTPServer builds the fiber application. The static mount sits
// between the API routes and the NotFound fallback so present assets are
// served and everything else falls through to the enveloped 404.
func (a *App) setupHTTPServer() {
	server := fiber.New(fiber.Config{
		AppName:               a.settings.AppName,
		DisableStartupMessage: true,
		// Whole manuscripts arrive in request bodies, both as multipart
		// uploads and as splitter payloads.
		BodyLimit:   64 * 1024 * 1024,
		ReadTimeout: 5 * time.Minute,
		IdleTimeout: 2 * time.Minute,
	})

	server.Use(recover.New())
	server.Use(cors.New(corsConfig(a.settings.AllowedOrigins)))

	handler := handlers.NewHandler(a.appService, a.settings)
	handler.RegisterRoutes(server)

	if dir, ok := staticMount(a.settings.StaticDir); ok {
		server.Static("/static", dir)
		log.WithField("dir", dir).Info("Serving static assets")
	}

	server.Use(handler.NotFound)
	a.server = server
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		return cors.Config{AllowOrigins: "*"}
	}
	return cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowCredentials: true,
	}
}

// staticMount reports whether the static directory should be served. A
// missing or empty directory disables the mount instead of failing.
func staticMount(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", false
	}
	return dir, true
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.startServer()

	return a.waitForShutdown(ctx, cancel)
}

func (a *App) startServer() {
	address := a.settings.GetServerAddress()
	log.WithFields(log.Fields{
		"component": "server",
		"address":   address,
	}).Info("http server listening")

	if err := a.server.Listen(address); err != nil {
		log.WithFields(log.Fields{
			"component": "server",
			"error":     err,
		}).Fatal("http server failed to start")
	}
}

func (a *App) waitForShutdown(ctx context.Context, cancel context.CancelFunc) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		log.WithField("reason", "context_cancelled").Info("initiating graceful shutdown")
	case sig := <-sigChan:
		log.WithField("signal", sig).Info("received shutdown signal")
	}

	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	log.Info("graceful shutdown started")

	if err := a.server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.WithFields(log.Fields{
			"component": "server",
			"error":     err,
		}).Error("http server shutdown failed")
	}

	if err := a.appService.Close(); err != nil {
		log.WithFields(log.Fields{
			"component": "database",
			"error":     err,
		}).Error("application service close failed")
		return err
	}

	log.Info("graceful shutdown completed")
	return nil
}
