package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/krshsl/mumble/backend/repository"
	svc "github.com/krshsl/mumble/backend/services"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mumble",
	Short:         "Mumble voice journal API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo account and a sample journal",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads config, installs logging and opens a migrated database
func bootstrap(ctx context.Context) (*svc.Config, *repository.GORMRepository, func(), error) {
	// Setup structured logging with JSON format before config so config warnings are JSON too
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := svc.LoadConfig()
	logCloser := svc.SetupLogging(cfg.Log)

	db, err := repository.Open(ctx, repository.Options{
		Driver:       cfg.Database.Driver,
		URL:          cfg.Database.URL,
		LogLevel:     cfg.Database.LogLevel,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		logCloser.Close()
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	cleanup := func() {
		if err := repository.Close(db); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
		logCloser.Close()
	}

	repo := repository.NewGORMRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("Database migrations completed")

	return cfg, repo, cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, repo, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Database.Seed {
		seeder := svc.NewDatabaseSeeder(repo, repository.NewJournalRepository(repo.DB()))
		if err := seeder.SeedDatabase(ctx); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	server := svc.NewServer(cfg, repo)
	if err := server.InitializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	return server.Start(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, _, cleanup, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	cleanup()
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, repo, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	seeder := svc.NewDatabaseSeeder(repo, repository.NewJournalRepository(repo.DB()))
	return seeder.SeedDatabase(ctx)
}
