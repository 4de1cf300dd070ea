package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jortega/karaokejam/internal/application/config"
	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/application/metric"
	"github.com/jortega/karaokejam/internal/infra/adapters/memory"
	"github.com/jortega/karaokejam/internal/infra/adapters/sqlite"
	"github.com/jortega/karaokejam/internal/infra/ports/http/handlers"
	"github.com/jortega/karaokejam/internal/infra/ports/http/server"
	"github.com/jortega/karaokejam/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	dbConn, err := sqlite.NewSQLite(ctx, cfg.Catalog.Path)
	if err != nil {
		slog.Error("open song catalog", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer dbConn.Close()

	catalogRepo := sqlite.NewCatalogRepo(dbConn)
	roomRegistry := memory.NewRoomRegistry()

	roomUsecase := usecase.NewRoomUsecase(roomRegistry)
	catalogUsecase := usecase.NewCatalogUsecase(catalogRepo)

	roomHandler := handlers.NewRoomHandler(roomUsecase)
	catalogHandler := handlers.NewCatalogHandler(catalogUsecase)
	qrHandler := handlers.NewQRHandler(cfg)
	wsHandler := handlers.NewWebSocketHandler(cfg, roomUsecase)

	echoSrv := server.New(cfg, roomHandler, catalogHandler, qrHandler, wsHandler)

	metricsSrv := metric.NewServer()

	go roomRegistry.Reap(ctx, cfg.RoomTTL)

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
