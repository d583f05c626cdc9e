// Package serve implements the serve command: it wires the full job
// pipeline together and runs the HTTP server until interrupted.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/leadscraper/internal/api"
	"github.com/jonesrussell/leadscraper/internal/config"
	"github.com/jonesrussell/leadscraper/internal/database"
	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/job"
	"github.com/jonesrussell/leadscraper/internal/logger"
	"github.com/jonesrussell/leadscraper/internal/persist"
	"github.com/jonesrussell/leadscraper/internal/scraper"
	"github.com/jonesrussell/leadscraper/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scrape job API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
		Encoding:    cfg.Logger.Encoding,
		OutputPaths: cfg.Logger.OutputPaths,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	log.Info("Starting server",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"admin_id", cfg.Admin.ID,
	)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	store := database.NewStore(db)
	persister := persist.New(store.Businesses, log)
	runner := scraper.NewRunner(
		scraper.NewMapsFactory(cfg.Scraper.BaseURL, cfg.Scraper.UserAgent),
		cfg.Scraper.Timeout,
		log,
	)
	notifier := webhook.New(cfg.Webhook, log)

	orchestrator := job.NewOrchestrator(store, runner, persister, notifier, log, job.Options{
		AdminID:           cfg.Admin.ID,
		DefaultMaxResults: cfg.Scraper.DefaultMaxResults,
		MaxConcurrentJobs: cfg.Scraper.MaxConcurrentJobs,
	})

	// The admin row starts active so the workflow engine routes jobs here.
	if _, err := store.SetAdminStatus(ctx, cfg.Admin.ID, domain.AdminStatusActive); err != nil {
		log.Warn("Failed to mark admin active at startup", "admin_id", cfg.Admin.ID, "error", err)
	}

	// Probe the test endpoint once so a misconfigured webhook shows up in
	// the logs right away instead of at the first job completion.
	if notifier.TestURL() != "" {
		go func() { notifier.Test(ctx) }()
	}

	// Stale jobs are swept after twice the extraction deadline: a live run
	// can never be that old.
	janitor := job.NewJanitor(store, 2*cfg.Scraper.Timeout, log)
	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}

	handler := api.NewHandler(
		orchestrator,
		notifier,
		db,
		log,
		cfg.App.Name,
		cfg.App.Version,
		cfg.Admin.ID,
	)
	router := api.SetupRouter(handler, log, cfg.App.Debug)
	server := api.NewHTTPServer(cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "address", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
	case <-ctx.Done():
		log.Info("Shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	janitor.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	// Let in-flight pipelines finish so their terminal writes land.
	orchestrator.Wait()

	log.Info("Server stopped")
	return nil
}
