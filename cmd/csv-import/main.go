package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/amqp"
	"github.com/icesco/PersonalFinance-sub002/internal/cli"
	"github.com/icesco/PersonalFinance-sub002/internal/importer"
	applog "github.com/icesco/PersonalFinance-sub002/internal/log"
	"github.com/icesco/PersonalFinance-sub002/internal/services"
)

func main() {
	accountFlag := flag.String("account", "", "account UUID to import into")
	fileFlag := flag.String("file", "", "CSV file to import")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentImporter)
	cfg := cli.LoadAndValidateConfig(logger)

	accountID, err := uuid.Parse(*accountFlag)
	if err != nil {
		logger.Error("Invalid -account flag", "error", err)
		os.Exit(2)
	}
	if *fileFlag == "" {
		logger.Error("Missing -file flag")
		os.Exit(2)
	}

	file, err := os.Open(*fileFlag)
	if err != nil {
		logger.Error("Failed to open CSV file", "error", err, "path", *fileFlag)
		os.Exit(1)
	}
	defer file.Close()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Publish sync messages so imported rows reach the sheet worker.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	}

	txService := services.NewTransactionService(repo, publisher)
	csvImporter := importer.New(repo, txService)

	result, err := csvImporter.Import(context.Background(), accountID, file)
	if err != nil {
		logger.Error("Import failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d transactions (%d transfer pairs)\n", result.Imported, result.Transfers)
	for _, rowErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "skipped %v\n", rowErr)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
