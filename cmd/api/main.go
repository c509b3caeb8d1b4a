package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redis_adapter "github.com/user/activity-monitor/internal/adapter/redis"
	"github.com/user/activity-monitor/internal/app"
	"github.com/user/activity-monitor/internal/delivery/http/handler"
	"github.com/user/activity-monitor/internal/delivery/http/router"
	"github.com/user/activity-monitor/internal/dormancy"
	"github.com/user/activity-monitor/internal/scorer"
	"github.com/user/activity-monitor/internal/usecase"
	"github.com/user/activity-monitor/pkg/config"
	"github.com/user/activity-monitor/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(nil)
	if err != nil {
		panic(err)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer stores.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("unable to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	log.Info("Redis connection established")

	checkedRepo := redis_adapter.NewCheckedRepo(rdb)
	queueRepo := redis_adapter.NewQueueRepo(rdb)

	// --- Crawling ---
	renderer := app.NewRenderer(cfg, log)
	defer renderer.Close()
	if err := renderer.Available(); err != nil {
		// Checks still run and report unknown.
		log.Warn("headless browser not available", zap.Error(err))
	}
	nav := app.NewNavigator(cfg, renderer, log)

	// --- Use Cases ---
	machine := dormancy.NewMachine(cfg.ThresholdDays)
	transitions := &dormancy.TransitionLog{}
	sc := scorer.New(scorer.DefaultConfig())

	checker := usecase.NewActivityChecker(nav, app.CheckerConfig(cfg), log)
	recorder := usecase.NewRecorder(stores.Facilities, stores.Events, machine, sc, transitions, log)
	checkManager := usecase.NewCheckManager(checkedRepo, queueRepo, stores.Facilities, cfg.CheckedExpiry, log)
	worker := usecase.NewCheckWorker(queueRepo, checker, recorder, cfg.InterFacilityDelay, log)

	// --- Queue workers ---
	var wg sync.WaitGroup
	for i := 0; i < max(cfg.CheckWorkers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx, cfg.QueuePollInterval)
		}()
	}
	log.Info("check workers started", zap.Int("workers", max(cfg.CheckWorkers, 1)))

	// --- HTTP Server ---
	h := handler.NewHandler(handler.Deps{
		CheckManager:  checkManager,
		Facilities:    stores.Facilities,
		Events:        stores.Events,
		Manual:        usecase.NewManualTransition(stores.Facilities, machine, transitions),
		Reclassifier:  dormancy.NewReclassifier(stores.Facilities, machine, transitions, log),
		Scorer:        sc,
		ThresholdDays: cfg.ThresholdDays,
		Pingers: map[string]handler.Pinger{
			"store": stores.Facilities,
			"redis": checkedRepo,
		},
		Logger: log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(h, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	log.Info("server exiting")
}
