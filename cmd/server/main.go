package main

import (
	"context"
	"errors"
	netHttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms-module/config"
	"lms-module/db"
	"lms-module/http"
	"lms-module/http/handlers"
	"lms-module/logger"
	"lms-module/services"
	"lms-module/services/identity"
	"lms-module/services/kafka"
	"lms-module/services/mpesa"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

const (
	consumerGroup    = "lms-consumer-group"
	dlqRetryInterval = 5 * time.Minute
	shutdownTimeout  = 15 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lms",
		Short: "LMS course purchase and enrollment service",
		// serve is the default
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, start Kafka and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			return db.Migrate(cmd.Context(), conn)
		},
	}
}

// setup loads configuration and installs the process-wide logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetDefault(logger.New(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Output:  os.Stdout,
		Console: logger.ParseLevel(cfg.LogLevel) == logger.DEBUG,
	}))
	return cfg, nil
}

func runServe() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Default().Sync()

	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(context.Background(), conn); err != nil {
		return err
	}
	store := db.NewStore(conn)

	// Kafka (non-fatal: disabled without brokers)
	dlq := kafka.NewDeadLetterQueue(cfg, store)
	producer := kafka.NewProducer(cfg, dlq)
	consumer := kafka.NewConsumer(cfg, consumerGroup, []string{services.TopicEmails}, dlq)

	if mailer := services.NewMailer(cfg); mailer != nil {
		consumer.Register(services.EventEmailSend, mailer.HandleEmailEvent)
	}
	consumer.Start()

	reprocess := func(ctx context.Context, msg kafkago.Message) bool {
		if msg.Topic == services.TopicEmails {
			return consumer.Process(ctx, msg) == nil
		}
		return producer.Redeliver(ctx, msg) == nil
	}
	dlq.StartAutoRetry(dlqRetryInterval, reprocess)

	// Services
	emails := services.NewEmailService(producer)
	committer := services.NewEnrollmentCommitter(services.CommitterDeps{
		Students:    store,
		Enrollments: store,
		Courses:     store,
		Events:      producer,
		Emails:      emails,
	})
	profiles := identity.NewClient(cfg)

	payments := services.NewPaymentService(cfg, services.PaymentDeps{
		Courses:   store,
		Profiles:  profiles,
		Students:  store,
		Committer: committer,
		Requests:  store,
		Gateway:   mpesa.NewClient(cfg),
		Events:    producer,
	})
	callbacks := services.NewCallbackService(services.CallbackDeps{
		Committer: committer,
		Requests:  store,
		Log:       store,
		Events:    producer,
		Token:     cfg.MpesaCallbackToken,
		Timeout:   cfg.HTTPTimeout,
	})
	deps := handlers.Deps{
		Payments:    payments,
		Callbacks:   callbacks,
		Courses:     store,
		Enrollments: store,
		DLQ:         store,
		Retry:       dlq.RetryPending,
		Reprocess:   reprocess,
	}

	server := &netHttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.NewRouter(handlers.New(deps)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server starting on %s (callback URL %s)", server.Addr, cfg.CallbackURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, netHttp.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Error("HTTP server failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server: %v", err)
	}

	dlq.StopAutoRetry()
	if err := consumer.Stop(); err != nil {
		logger.Error("Error stopping Kafka consumer: %v", err)
	}
	if err := producer.Close(); err != nil {
		logger.Error("Error closing Kafka producer: %v", err)
	}
	if err := dlq.Close(); err != nil {
		logger.Error("Error closing DLQ writer: %v", err)
	}

	logger.Info("Server shutdown complete")
	return nil
}
