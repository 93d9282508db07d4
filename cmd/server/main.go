package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"drivegate/internal/audit"
	"drivegate/internal/jwttoken"
	"drivegate/internal/oauth/handler"
	"drivegate/internal/oauth/registry"
	"drivegate/internal/oauth/service"
	"drivegate/internal/oauth/store/authcode"
	"drivegate/internal/oauth/store/authrequest"
	clientstore "drivegate/internal/oauth/store/client"
	"drivegate/internal/oauth/store/refreshtoken"
	"drivegate/internal/oauth/store/revocation"
	userstore "drivegate/internal/oauth/store/user"
	"drivegate/internal/platform/config"
	"drivegate/internal/platform/httpserver"
	"drivegate/internal/platform/logger"
	"drivegate/internal/platform/metrics"
	"drivegate/internal/platform/middleware"
	platformredis "drivegate/internal/platform/redis"
)

// main wires dependencies and owns the process lifecycle. Protocol logic
// lives in internal/oauth.
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		return err
	}

	m := metrics.New()
	signer := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)

	// Persistence. An empty DATABASE_URL selects the in-memory stores; the
	// dev client and user set is seeded only in that mode.
	var (
		codes   service.CodeStore
		refresh service.RefreshTokenStore
		clients registry.ClientStore
		users   service.UserStore
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("database open failed", "error", err)
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			return err
		}
		codes = authcode.NewPostgres(db)
		refresh = refreshtoken.NewPostgres(db)
		clients = clientstore.NewPostgres(db)
		users = userstore.NewPostgres(db)
	} else {
		memClients := clientstore.NewInMemory()
		if err := clientstore.SeedDev(ctx, memClients, time.Now()); err != nil {
			log.Error("client seeding failed", "error", err)
			return err
		}
		memUsers := userstore.NewInMemory()
		if err := memUsers.Put(ctx, seedUser()); err != nil {
			return err
		}
		codes = authcode.NewInMemory()
		refresh = refreshtoken.NewInMemory()
		clients = memClients
		users = memUsers
		log.Warn("running on in-memory stores, all state is lost on restart")
	}

	// Redis backs the in-flight request store and the logout blacklist when
	// configured; single-process fallbacks otherwise.
	var (
		requests  service.AuthRequestStore
		blacklist interface {
			service.Blacklist
			middleware.Blacklist
		}
	)
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		requests = authrequest.NewRedis(rdb.Client)
		blacklist = revocation.NewRedisBlacklist(rdb.Client)
	} else {
		requests = authrequest.NewInMemory()
		blacklist = revocation.NewMemoryBlacklist()
	}

	// Audit pipeline: Kafka when brokers are configured, in-memory otherwise.
	var sink audit.Sink = audit.NewMemoryStore()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("kafka audit sink failed", "error", err)
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}
	publisher := audit.NewPublisher(sink, log, cfg.AuditBuffer)

	svc := service.New(service.Deps{
		Codes:    codes,
		Refresh:  refresh,
		Requests: requests,
		Users:    users,
		Registry: registry.New(clients),
		Signer:   signer,
		Audit:    publisher,
		Metrics:  m,
		Logger:   log,
	}, service.Config{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		AuthCodeTTL:     cfg.AuthCodeTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		AuthRequestTTL:  cfg.AuthRequestTTL,
		LoginURL:        cfg.LoginURL,
		ConsentURL:      cfg.ConsentURL,
	}, service.WithBlacklist(blacklist))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	requireAuth := middleware.RequireAuth(signer.MiddlewareValidator(), blacklist, log)
	handler.New(svc, log, m).Register(router, requireAuth)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting drivegate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := publisher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}
