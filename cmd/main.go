package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptofolio/backend/config"
	"github.com/cryptofolio/backend/data"
	"github.com/cryptofolio/backend/data/cache"
	"github.com/cryptofolio/backend/data/repository/postgres"
	"github.com/cryptofolio/backend/internal/externalApi/coingeckoApi"
	"github.com/cryptofolio/backend/internal/reportGenerator/xlsxGenerator"
	"github.com/cryptofolio/backend/internal/scheduler"
	"github.com/cryptofolio/backend/internal/service/assetService"
	"github.com/cryptofolio/backend/internal/service/authService"
	"github.com/cryptofolio/backend/internal/service/balanceService"
	"github.com/cryptofolio/backend/internal/service/rateService"
	transport "github.com/cryptofolio/backend/internal/transport/http"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	coinGeckoClient := coingeckoApi.New(cfg)

	rateSrv := rateService.New(redisCache, coinGeckoClient)
	balanceSrv := balanceService.New(pgRepo, pgRepo, rateSrv)
	assetSrv := assetService.New(pgRepo, coinGeckoClient)
	authSrv := authService.New(cfg, pgRepo, redisCache)

	reportGenerator := xlsxGenerator.New()

	sched := scheduler.New()
	sched.NewCrontabJob("sync assets", assetSrv.SyncAssets, cfg.Jobs.SyncAssetsCrontab, true)
	sched.Start()
	defer sched.Stop()

	if !cfg.API.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.NewRouter(
		authSrv,
		transport.NewAuthHandler(authSrv),
		transport.NewBalanceHandler(balanceSrv, reportGenerator),
		transport.NewRateHandler(rateSrv),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server started", slog.Int("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
