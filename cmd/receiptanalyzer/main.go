package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/drstein77/receiptanalyzer/internal/app"
	"github.com/drstein77/receiptanalyzer/internal/config"
	"github.com/drstein77/receiptanalyzer/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Create a root context with the possibility of cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	option := config.NewOptions()
	option.ParseFlags()

	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Println(err)
		return 1
	}
	nLogger = nLogger.With(zap.String("run_id", uuid.NewString()))
	defer nLogger.Sync()

	// Create a channel for signal handling
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			nLogger.Info(fmt.Sprintf("Received signal: %+v", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	nLogger.Info("Starting analysis",
		zap.String("data_dir", option.DataDir()),
		zap.String("archive", option.DataArchive()),
		zap.String("driver", option.DBDriver()),
	)

	if err := app.NewApp(option, nLogger, os.Stdout).Run(ctx); err != nil {
		nLogger.Error("Analysis aborted", zap.Error(err))
		return 1
	}

	nLogger.Info("Analysis finished")
	return 0
}
