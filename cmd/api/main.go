package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajithvnr2001/edgelink/internal/clicks"
	"github.com/ajithvnr2001/edgelink/internal/config"
	"github.com/ajithvnr2001/edgelink/internal/device"
	"github.com/ajithvnr2001/edgelink/internal/geo"
	"github.com/ajithvnr2001/edgelink/internal/handler"
	"github.com/ajithvnr2001/edgelink/internal/middleware"
	"github.com/ajithvnr2001/edgelink/internal/repository"
	"github.com/ajithvnr2001/edgelink/internal/service"
	"github.com/ajithvnr2001/edgelink/pkg/cache"
	"github.com/ajithvnr2001/edgelink/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	if err := logger.Init(cfg.IsDevelopment()); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L()

	log.Info("starting edgelink redirect engine",
		zap.String("environment", cfg.App.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Postgres link record store
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("database ping failed", zap.Error(err))
	}

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)

	// Shared (L2) cache, optional
	var linkCache *cache.LinkCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("redis ping failed", zap.Error(err))
		}
		defer redisClient.Close()
		linkCache = cache.NewLinkCache(redisClient, cfg.Redis.TTL)
		log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	resolver := service.NewResolver(linkRepo, linkCache, service.Options{
		L1Size:        cfg.Engine.L1Size,
		L1TTL:         cfg.Engine.L1TTL,
		LookupTimeout: cfg.Engine.LookupTimeout,
	}, log)

	// Click recording pipeline, off the response path
	recorder := clicks.NewRecorder(struct {
		*repository.ClickRepository
		*repository.LinkRepository
	}{clickRepo, linkRepo}, log, cfg.Clicks.Buffer, cfg.Clicks.Workers)

	var geoResolver geo.Resolver = geo.Noop{}
	if cfg.Geo.Enabled {
		geoResolver = geo.NewIPAPIResolver(cfg.Geo.LookupTimeout)
	}

	h := handler.NewRedirectHandler(
		resolver,
		device.NewUAParser(),
		geoResolver,
		recorder,
		cfg.Geo.CountryHeader,
		log,
	)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/{slug}", h.Redirect).Methods(http.MethodGet)

	middlewares := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.Metrics,
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:     cfg.RateLimit.Rate,
			Burst:    cfg.RateLimit.Burst,
			Interval: cfg.RateLimit.Interval,
			Cleanup:  cfg.RateLimit.Cleanup,
		}, log)
		middlewares = append(middlewares, limiter.Middleware())
		log.Info("rate limiter enabled",
			zap.Int("rate", cfg.RateLimit.Rate),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.Chain(r, middlewares...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		log.Fatal("server error", zap.Error(err))

	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", zap.Error(err))
			}
		}

		// Drain buffered click events before the DB handle closes.
		if err := recorder.Close(ctx); err != nil {
			log.Warn("click recorder drain interrupted", zap.Error(err))
		}

		log.Info("server stopped")
	}
}
