package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"tgsync/config"
	brokerDelivery "tgsync/internal/delivery/broker"
	httpDelivery "tgsync/internal/delivery/http"
	"tgsync/internal/domain"
	"tgsync/internal/infrastructure/database"
	kafkaInfra "tgsync/internal/infrastructure/kafka"
	"tgsync/internal/infrastructure/logger"
	redisInfra "tgsync/internal/infrastructure/redis"
	"tgsync/internal/infrastructure/socketio"
	"tgsync/internal/infrastructure/telegram"
	"tgsync/internal/relay"
	postgresRepo "tgsync/internal/repository/postgres"
	"tgsync/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Info().
		Str("service", cfg.Service.Name).
		Str("port", cfg.Service.Port).
		Msg("Starting sync service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize PostgreSQL
	log.Info().Msg("Connecting to PostgreSQL...")
	db, err := database.Connect(cfg.Postgres.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}

	// 4. Initialize Redis: broker, code slots and status emitter share one client
	log.Info().Msg("Connecting to Redis...")
	redisClient, err := redisInfra.Connect(ctx, redisInfra.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	taskBroker := redisInfra.NewBroker(redisClient, log)
	codeStore := redisInfra.NewCodeStore(redisClient)
	notifier := socketio.NewNotifier(ctx, redisClient, log)

	// 5. Initialize Kafka alarm producer
	log.Info().Msg("Initializing alarm producer...")
	alarms, err := kafkaInfra.NewAlarmProducer(kafkaInfra.AlarmProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.AlarmTopic,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create alarm producer")
	}
	defer alarms.Close()

	// 6. Initialize repositories
	accountRepo := postgresRepo.NewAccountRepository(db)
	dialogRepo := postgresRepo.NewDialogRepository(db)
	dialogSyncRepo := postgresRepo.NewDialogSyncRepository(db)

	// 7. Initialize session plumbing
	factory := telegram.NewFactory(cfg.Telegram.SessionDir, log)
	codeRelay := relay.NewCodeRelay(codeStore, log)
	sessions := usecase.NewSessionManager(factory, codeRelay, notifier, log, cfg.Telegram.CodeTimeout)
	runner := usecase.NewTaskRunner(cfg.Service.Name, notifier, alarms, log)

	// 8. Initialize use cases
	loginUC := usecase.NewLoginUseCase(sessions, accountRepo, runner, notifier, log)
	dialogInfoUC := usecase.NewDialogInfoSyncUseCase(sessions, accountRepo, dialogRepo, runner, notifier, log)
	messageSyncUC := usecase.NewMessageSyncUseCase(sessions, dialogSyncRepo, runner, notifier, log)

	// 9. Bind task channels
	listener := brokerDelivery.NewListener(taskBroker, log)
	listener.Bind(domain.ChannelLoginTask, loginUC.Handle)
	listener.Bind(domain.ChannelDialogSyncTask, dialogInfoUC.Handle)

	listenerErr := make(chan error, 1)
	go func() {
		listenerErr <- listener.Run(ctx)
	}()

	// 10. Schedule the replication pass
	scheduler := cron.New(cron.WithLocation(time.UTC))
	_, err = scheduler.AddFunc(cfg.Sync.MessageSyncCron, func() {
		if err := messageSyncUC.RunAll(ctx); err != nil {
			log.Error().Err(err).Msg("Replication pass finished with errors")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("cron", cfg.Sync.MessageSyncCron).Msg("Invalid message sync schedule")
	}
	scheduler.Start()
	log.Info().Str("cron", cfg.Sync.MessageSyncCron).Msg("Replication schedule registered")

	if cfg.Sync.MessageSyncOnStart {
		go func() {
			if err := messageSyncUC.RunAll(ctx); err != nil {
				log.Error().Err(err).Msg("Startup replication pass finished with errors")
			}
		}()
	}

	// 11. Start HTTP server with health and metrics
	health := httpDelivery.NewHealthHandler(log,
		httpDelivery.Check{Name: "postgres", Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		httpDelivery.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	)
	httpServer := httpDelivery.NewServer(cfg.Service.Port, health, log)
	httpServer.Start()

	// 12. Wait for shutdown signal or a fatal listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-listenerErr:
		if err != nil {
			log.Error().Err(err).Msg("Task listener failed")
		}
	}

	// 13. Graceful shutdown
	cancel()

	cronCtx := scheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Timeout waiting for scheduled jobs to finish")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}

	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis client")
	}

	log.Info().Msg("Sync service stopped")
}
