package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/forgewatch/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/forgewatch/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/forgewatch/internal/adapter/driving/http"
	"github.com/ericfisherdev/forgewatch/internal/application"
	"github.com/ericfisherdev/forgewatch/internal/config"
	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := pflag.String("config", "", "path to the repositories YAML file (overrides FORGEWATCH_CONFIG_FILE)")
	once := pflag.Bool("once", false, "poll every repository once, deliver notifications and exit")
	pflag.Parse()

	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"repos", len(cfg.Repositories),
		"workers", cfg.Workers,
	)
	if len(cfg.Repositories) == 0 {
		slog.Warn("no repositories configured, nothing will be watched")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	refStore := sqliteadapter.NewRefRepo(db)
	stateStore := sqliteadapter.NewPRStateRepo(db)
	signatureStore := sqliteadapter.NewSignatureRepo(db)
	notificationStore := sqliteadapter.NewNotificationRepo(db)

	if cfg.GitHubToken == "" {
		slog.Info("no github token configured, using unauthenticated requests")
	}
	forge := githubadapter.NewClient(cfg.GitHubToken)

	// 6. Create one engine per watched repository with both listeners.
	logListener := application.NewLogListener(slog.Default())
	historyListener := application.NewHistoryListener(notificationStore)

	engines := make([]*application.NotificationEngine, 0, len(cfg.Repositories))
	for _, repo := range cfg.Repositories {
		engine := application.NewNotificationEngine(
			application.EngineConfig{
				RepoFullName: repo.Name,
				BranchFilter: repo.BranchFilter,
				Policy:       application.ApprovalPolicy(repo.ReadyPatterns),
				IntegratorID: repo.Integrator,
			},
			forge,
			refStore,
			stateStore,
			application.WithUpdateCache(application.NewPersistentUpdateCache(ctx, signatureStore, repo.Name)),
		)
		engine.RegisterPullRequestListener(logListener)
		engine.RegisterPullRequestListener(historyListener)
		engine.RegisterRepositoryListener(logListener)
		engine.RegisterRepositoryListener(historyListener)
		engines = append(engines, engine)
		slog.Info("watching repository", "repo", repo.Name, "ready_comments", len(repo.ReadyPatterns))
	}

	runner := application.NewRunner(engines, application.NewKeyedExecutor(cfg.Workers), cfg.PollInterval)

	if *once {
		runner.RunOnce(ctx)
		slog.Info("single poll complete")
		return nil
	}

	// 7. Create command extractor from the configured command names.
	handlers := make([]model.CommandHandler, 0, len(cfg.Commands))
	for _, name := range cfg.Commands {
		handlers = append(handlers, application.NewNamedHandler(name, "configured command"))
	}
	extractor := application.NewCommandExtractor(application.NewCommandRegistry(handlers...).Lookup)

	// 8. Start the runner.
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		runner.Start(ctx)
	}()

	// 9. Create HTTP handler and start the server.
	apiHandler := httphandler.NewHandler(runner, notificationStore, forge, extractor, db, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("forgewatch started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout for the HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	<-runnerDone

	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
