package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogsmith/internal/adapters/assistant"
	cloudflareadapter "blogsmith/internal/adapters/cloudflare"
	githubadapter "blogsmith/internal/adapters/github"
	httpadapter "blogsmith/internal/adapters/http"
	redisadapter "blogsmith/internal/adapters/redis"
	"blogsmith/internal/adapters/ws/userws"
	"blogsmith/internal/adapters/ws/userws/subscribers"
	"blogsmith/internal/config"
	"blogsmith/internal/core/deploy"
	"blogsmith/internal/event"
	"blogsmith/internal/logger"
	"blogsmith/internal/secrets"
	"blogsmith/internal/storage/postgres"

	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	dbPool, err := postgres.InitDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to init DB", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	box := secrets.NewBox(cfg.SecretsKey)
	deploymentRepo := postgres.NewDeploymentRepository(dbPool)
	credentialRepo := postgres.NewCredentialRepository(dbPool, box)

	bus := event.New()

	var feed *redisadapter.Feed
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		feed = redisadapter.NewFeed(rdb, 100)
	}

	vcs := githubadapter.NewProvider(cfg.GitHubAPIURL, log)
	hosting := cloudflareadapter.NewPagesProvider(cfg.HostingAPIURL, cfg.HostingDomain, cloudflareadapter.BuildSettings{
		Command:          cfg.BuildCommand,
		OutputDir:        cfg.OutputDir,
		GeneratorVersion: cfg.GeneratorVersion,
	}, log)
	generator := assistant.New(cfg.AssistantURL, cfg.AssistantKey, log)

	orchestrator := deploy.NewOrchestrator(deploy.OrchestratorDeps{
		Store:     deploymentRepo,
		Creds:     credentialRepo,
		VCS:       vcs,
		Hosting:   hosting,
		Generator: generator,
		Bus:       bus,
		Feed:      feedOrNil(feed),
		Log:       log,

		DefaultBranch: cfg.DefaultBranch,
		HostingDomain: cfg.HostingDomain,
	})

	deploymentService := deploy.NewService(deploymentRepo, orchestrator, bus, log, cfg.PipelineTimeout)

	hub := userws.NewHub(ctx, log)
	go hub.Run()
	subscribers.Register(bus, hub)

	router := httpadapter.NewRouter(cfg.JWTSecret, cfg.AllowedOrigins, &httpadapter.RouterDeps{
		Deployment: httpadapter.NewDeploymentHandler(deploymentService, handlerFeedOrNil(feed), log),
		Credential: httpadapter.NewCredentialHandler(credentialRepo, log),
		Ws:         userws.NewHandler(hub, log, cfg.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http: starting server", "address", cfg.Address)
		errCh <- srv.ListenAndServe()
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		hub.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http: server shutdown error", "error", err)
		}

	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http: server error", "error", err)
		}
	}

	log.Info("server stopped")
}

// feedOrNil keeps the orchestrator's optional feed dependency a true nil
// when redis is not configured.
func feedOrNil(feed *redisadapter.Feed) deploy.ActivityFeed {
	if feed == nil {
		return nil
	}
	return feed
}

func handlerFeedOrNil(feed *redisadapter.Feed) httpadapter.ActivityFeed {
	if feed == nil {
		return nil
	}
	return feed
}
