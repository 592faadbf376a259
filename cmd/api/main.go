package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/cradoe/lenda/internal/app"
	seeders "github.com/cradoe/lenda/internal/seeder"
	"github.com/cradoe/lenda/internal/version"
	"github.com/cradoe/lenda/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	seed := flag.Bool("seed", false, "seed demo accounts and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()

	if *seed {
		seeders.New(application.DB).Run()
		logger.Info("seeding complete")
		return nil
	}

	auditWorker := worker.New(&worker.Worker{
		KafkaStream: application.Kafka,
		DB:          application.DB,
		Helper:      application.Helper,
		Logger:      logger,
	})
	go auditWorker.AuditWorker()

	return application.ServeHTTP()
}
