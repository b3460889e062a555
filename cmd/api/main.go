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

	"call-router/internal/config"
	"call-router/internal/metrics"
	"call-router/internal/routing"
	"call-router/internal/users"
	"call-router/pkg/logger"
	"call-router/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	engine, err := routing.NewEngine(cfg.RoutingConfig(), routing.LogObserver{}, recorder)
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	var usersSvc *users.Service
	if cfg.UsersStoreEnabled() {
		db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		var repo users.Repository = users.NewPostgresRepo(db, cfg.DB.UsersTable)
		if cfg.UsersCacheEnabled() {
			rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
			if err != nil {
				log.Error("redis init failed", "err", err)
				os.Exit(1)
			}
			defer rdb.Close()
			repo = users.NewCachedRepo(repo, rdb, cfg.Redis.CacheTTL)
		}
		usersSvc = users.NewService(repo)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, deps{
		cfg:      cfg,
		router:   engine,
		metrics:  recorder,
		gatherer: reg,
		users:    usersSvc,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		rc := engine.Config()
		log.Info("api listening",
			"addr", srv.Addr,
			"env", cfg.App.Env,
			"stream_url", rc.StreamURL,
			"ringback_url", rc.RingbackURL,
			"ringback_loops", rc.RingbackLoops,
			"blocklist_enabled", rc.BlockedNumber != "",
			"signature_check", cfg.Twilio.AuthToken != "",
			"users_store", usersSvc != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
