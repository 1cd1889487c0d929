package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/icesco/PersonalFinance-sub002/internal/amqp"
	"github.com/icesco/PersonalFinance-sub002/internal/cli"
	apphttp "github.com/icesco/PersonalFinance-sub002/internal/http"
	"github.com/icesco/PersonalFinance-sub002/internal/importer"
	applog "github.com/icesco/PersonalFinance-sub002/internal/log"
	"github.com/icesco/PersonalFinance-sub002/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The publisher is optional: without a broker the export pipeline
	// falls back to the worker's periodic pending scan.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	txService := services.NewTransactionService(repo, publisher)
	balService := services.NewBalanceService(repo)
	budService := services.NewBudgetService(repo)
	csvImporter := importer.New(repo, txService)

	srv := apphttp.NewServer(":"+cfg.Port, repo, txService, balService, budService, csvImporter, cfg.HistoryMonths, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
