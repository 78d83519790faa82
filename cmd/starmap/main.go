// cmd/starmap/main.go
//
// Usage:
//
//	starmap sync [--config .env] [--watch]   # Render, save and publish the stars document
//	starmap serve [--config .env]            # Start the MCP server (stdio transport)
//	starmap api [--config .env]              # Start the HTTP API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mark3labs/mcp-go/server"

	"starmap/internal/api"
	"starmap/internal/config"
	"starmap/internal/database"
	"starmap/internal/github"
	"starmap/internal/mirror"
	"starmap/internal/publish"
	"starmap/internal/render"
	"starmap/internal/stars"
	"starmap/internal/syncer"
	"starmap/internal/tools"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "sync", "serve", "api":
		err = run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout)
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Printf("starmap v%s\n", Version)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Application error", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(command string, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	configPath := fs.String("config", ".env", "path to a .env configuration file")
	watch := fs.Bool("watch", false, "keep syncing every SYNC_INTERVAL (sync only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Logs go to stderr so they never mix with the MCP stdio transport.
	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Debug("Configuration loaded successfully")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ghClient, err := github.NewClient(cfg.GithubToken, cfg.GithubAPIURL, logger)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	if command == "serve" {
		starTools := tools.NewStarTools(stars.WithCache(ghClient, cfg.CacheSize, cfg.CacheTTL, logger), cfg.GithubUsername, logger)
		logger.Info("Starting MCP server", "transport", "stdio")
		return serveStdio(ctx, tools.NewMCPServer(starTools, Version), stdin, stdout)
	}

	ledger, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	if command == "sync" {
		return runSync(ctx, cfg, ghClient, ledger, logger, *watch)
	}
	starTools := tools.NewStarTools(stars.WithCache(ghClient, cfg.CacheSize, cfg.CacheTTL, logger), cfg.GithubUsername, logger)
	return serveHTTP(ctx, cfg.HTTPAddr, api.NewRouter(starTools, ledger, logger), logger)
}

// serveStdio runs the MCP server on the given streams until ctx is done or
// the input is closed.
func serveStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runSync(ctx context.Context, cfg *config.Config, ghClient *github.Client, ledger database.Querier, logger *slog.Logger, watch bool) error {
	renderer, err := render.NewRenderer(nil)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	var m *mirror.Mirror
	if cfg.MirrorEnabled() {
		m = mirror.NewMirror(mirror.NewSupermemoryClient(cfg.SupermemoryAPIKey, cfg.SupermemoryAPIURL), cfg.MirrorConcurrency, cfg.MirrorRateLimit, logger)
	}

	publisher := publish.NewPublisher(ghClient.Contents(cfg.TargetRepoOwner, cfg.TargetRepoName), logger)

	appSyncer, err := syncer.NewSyncer(ghClient, renderer, publisher, m, ledger, logger, syncer.Options{
		Username:     cfg.GithubUsername,
		OutputPath:   cfg.OutputPath,
		TargetOwner:  cfg.TargetRepoOwner,
		TargetRepo:   cfg.TargetRepoName,
		TargetBranch: cfg.TargetBranch,
		Interval:     cfg.SyncInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to create syncer: %w", err)
	}

	if watch {
		return appSyncer.Start(ctx)
	}

	report, err := appSyncer.Run(ctx)
	if err != nil {
		return err
	}
	if report.PublishErr != nil {
		logger.Warn("Document saved locally but not published", "path", report.LocalPath, "error", report.PublishErr)
	}
	return nil
}

// openLedger connects to Postgres and applies migrations when DB_URL is set.
// The returned Querier is nil when the ledger is disabled.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Querier, func(), error) {
	if !cfg.LedgerEnabled() {
		return nil, func() {}, nil
	}

	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	if err := runMigrations(cfg.MigrationsPath, cfg.DBURL); err != nil {
		dbpool.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	return database.New(dbpool), dbpool.Close, nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP API", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received. Exiting.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `starmap v%s

Usage:
  starmap sync [--config .env] [--watch]   Render, save and publish the stars document
  starmap serve [--config .env]            Start the MCP server (stdio transport)
  starmap api [--config .env]              Start the HTTP API

Configuration is read from the .env file and the environment.
GITHUB_USERNAME and GITHUB_TOKEN are required.
`, Version)
}
