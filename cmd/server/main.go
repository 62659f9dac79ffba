package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"nileasy/internal/audit"
	"nileasy/internal/challenge"
	"nileasy/internal/filing"
	jwttoken "nileasy/internal/jwt_token"
	"nileasy/internal/orchestrator"
	"nileasy/internal/platform/config"
	"nileasy/internal/platform/httpserver"
	"nileasy/internal/platform/logger"
	"nileasy/internal/platform/middleware"
	platformredis "nileasy/internal/platform/redis"
	"nileasy/internal/profile"
	"nileasy/internal/ratelimit"
	ratelimitstore "nileasy/internal/ratelimit/store"
	httptransport "nileasy/internal/transport/http"
	"nileasy/internal/workflow"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages. Without Redis or
// Postgres configured the service runs fully in memory, at the cost of
// re-challenging after a restart.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var limiterStore ratelimitstore.Store
	var sessionStore challenge.SessionStore
	if redisClient != nil {
		limiterStore = ratelimitstore.NewRedisStore(redisClient.Client)
		sessionStore = challenge.NewRedisSessionStore(redisClient.Client)
		log.Info("using redis-backed limiter and session stores")
	} else {
		limiterStore = ratelimitstore.NewInMemoryStore()
		sessionStore = challenge.NewInMemorySessionStore()
		log.Info("redis not configured, using in-memory stores")
	}

	var profileStore profile.Store
	var userStore profile.UserStore
	var submissionStore filing.SubmissionStore
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		profileStore = profile.NewPostgresStore(db)
		userStore = profile.NewPostgresUserStore(db)
		submissionStore = filing.NewPostgresSubmissionStore(db)
		log.Info("using postgres-backed profile and submission stores")
	} else {
		profileStore = profile.NewInMemoryStore()
		userStore = profile.NewInMemoryUserStore()
		submissionStore = filing.NewInMemorySubmissionStore()
		log.Info("postgres not configured, using in-memory stores")
	}

	limiter := ratelimit.New(limiterStore, cfg.RateLimitMax, cfg.RateLimitWindow, log)
	provider := challenge.NewHTTPProvider(cfg.ProviderBaseURL)
	challenges := challenge.NewService(provider, sessionStore, profileStore, log, cfg.CaptchaSessionTTL, cfg.ProviderTimeout)
	shortener := filing.NewLinkClient(cfg.LinkServiceURL, cfg.ProviderTimeout)
	encoder := filing.NewEncoder(shortener, cfg.FilingNumber, cfg.LinkExpiry, log)
	tracker := filing.NewTracker(submissionStore, userStore, log)
	machine := workflow.NewMachine(workflow.NewInMemoryStateStore(), cfg.WorkflowIdleTimeout, log)

	inbox := make(chan audit.Event, 256)
	publisher := audit.NewPublisher(inbox, log)
	auditWorker := audit.NewWorker(audit.NewInMemoryStore(), inbox, log)

	core := orchestrator.New(
		limiter, challenges, profileStore, userStore,
		encoder, tracker, publisher, log,
		orchestrator.WithWorkflow(machine),
	)

	var jwtValidator middleware.JWTValidator
	if cfg.JWTSigningKey != "" {
		jwtValidator = jwttoken.NewJWTService(cfg.JWTSigningKey, "nileasy")
	} else {
		log.Warn("JWT signing key not set, webhook API is unauthenticated")
	}

	handler := httptransport.New(core, log, jwtValidator)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := auditWorker.Run(gctx)
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting nileasy", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
