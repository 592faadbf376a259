package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cradoe/lenda/internal/bank"
	"github.com/cradoe/lenda/internal/blacklist"
	"github.com/cradoe/lenda/internal/cache"
	"github.com/cradoe/lenda/internal/config"
	"github.com/cradoe/lenda/internal/env"
	"github.com/cradoe/lenda/internal/errHandler"
	"github.com/cradoe/lenda/internal/helper"
	"github.com/cradoe/lenda/internal/ledger"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/cradoe/lenda/internal/smtp"
	"github.com/cradoe/lenda/internal/stream"
	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	ErrorHandler *errHandler.ErrorRepository
	Helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	Blacklist    blacklist.Checker
	Ledger       *ledger.Service
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Example Name <no_reply@example.org>")

	cfg.Bank.DelayMs = env.GetInt("BANK_GATEWAY_DELAY_MS", 500)
	cfg.Blacklist.Mode = env.GetString("BLACKLIST_MODE", blacklist.ModeAllow)

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, cfg.BaseURL, mailer, logger)

	kafkaStream, err := stream.New(cfg.KafkaServers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kafka stream: %w", err)
	}

	redisCache := cache.New(cfg.RedisServer)

	blacklistChecker := blacklist.NewKarmaStub(cfg.Blacklist.Mode, redisCache, logger)

	bankGateway := bank.NewSimulatedGateway(time.Duration(cfg.Bank.DelayMs)*time.Millisecond, logger)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		ErrorHandler: errorHandler,
		Kafka:        kafkaStream,
		Cache:        redisCache,
		Blacklist:    blacklistChecker,
	}

	app.Helper = helper.New(&app.Config.BaseURL, &app.WG, errorHandler)
	app.Ledger = ledger.New(db, bankGateway, kafkaStream, logger)

	return app, nil
}
