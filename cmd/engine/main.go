package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banking_engine/internal/api"
	"banking_engine/internal/bank"
	"banking_engine/internal/config"
	"banking_engine/internal/processor"
	"banking_engine/internal/repository/memory"
	"banking_engine/internal/service"
	"banking_engine/pkg/crypto"
	"banking_engine/pkg/currency"
	"banking_engine/pkg/fees"
	"banking_engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file (TOML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("Starting application",
		slog.String("name", cfg.ServiceName),
		slog.String("environment", cfg.Environment))

	metricsCollector := metrics.NewMetricsCollector(logger)
	signer := crypto.NewSigner(cfg.Audit.SigningKey, logger)

	accountRepo := memory.NewAccountRepository()
	txRepo := memory.NewTransactionRepository()
	converter := currency.NewConverter(nil)
	factory := processor.NewTransactionFactory(fees.NewCalculator())

	var publisher service.EventPublisher
	var kafkaPublisher *service.KafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher = service.NewKafkaPublisher(cfg.Kafka.Brokers, logger)
		publisher = kafkaPublisher
	}

	hub := service.NewNotificationHub(
		&service.MockEmailSender{},
		&service.MockSMSSender{},
		publisher,
		metricsCollector,
		service.HubConfig{
			Workers:    cfg.Notify.Workers,
			AlertEmail: cfg.Notify.AlertEmail,
			AlertPhone: cfg.Notify.AlertPhone,
		},
		logger,
	)

	registry := bank.NewBank(accountRepo, converter, hub, logger)

	queue := processor.NewTransactionQueue()
	txProcessor := processor.NewTransactionProcessor(
		accountRepo,
		txRepo,
		queue,
		converter,
		processor.Config{
			Workers:      cfg.Engine.Workers,
			MaxRetries:   cfg.Engine.MaxRetries,
			PollInterval: cfg.Engine.PollInterval(),
		},
		logger,
	).WithSigner(signer).WithNotifier(hub).WithMetrics(metricsCollector)

	ctx, cancel := context.WithCancel(context.Background())
	go txProcessor.Run(ctx)
	go runInterestSweep(ctx, registry, cfg.Engine.InterestInterval(), logger)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metricsCollector.StartMetricsServer(cfg.Metrics.Addr)
	}

	apiHandler := api.NewAPIHandler(txProcessor, factory, accountRepo, txRepo, signer, logger)
	httpServer := startHTTPServer(cfg, apiHandler, logger)

	waitForShutdown(logger, cancel, httpServer, metricsServer, hub, kafkaPublisher)
	logger.Info("Application shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// runInterestSweep periodically credits interest on savings accounts. A
// non-positive interval disables it.
func runInterestSweep(ctx context.Context, registry *bank.Bank, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := registry.ApplyMonthlyInterest(ctx); err != nil {
				logger.Error("Interest sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

func startHTTPServer(cfg *config.Config, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, cfg.ServiceName)
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	cancelWorkers context.CancelFunc,
	httpServer *http.Server,
	metricsServer *http.Server,
	hub *service.NotificationHub,
	kafkaPublisher *service.KafkaPublisher,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	// Workers stop before the notification hub so in-flight transactions
	// still get their outcome events delivered.
	cancelWorkers()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}

	if err := hub.Shutdown(ctx); err != nil {
		logger.Error("Notification hub shutdown failed", slog.String("error", err.Error()))
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("Kafka publisher close failed", slog.String("error", err.Error()))
		}
	}
}
