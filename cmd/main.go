package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"

	"farm-alert-service/internal/alert"
	"farm-alert-service/internal/api"
	"farm-alert-service/internal/config"
	"farm-alert-service/internal/db"
	"farm-alert-service/internal/inbox"
	"farm-alert-service/internal/kafka"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/mqtt"
	"farm-alert-service/internal/observability"
	"farm-alert-service/internal/providers"
	"farm-alert-service/internal/sensor"
	"farm-alert-service/internal/threshold"
	"farm-alert-service/internal/weather"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	dbConn, err := db.New(ctx, cfg.DB.DSN, cfg.DB.ConnectAttempts, logger)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Inbox
	var store inbox.Store
	switch cfg.Inbox.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		defer client.Close()
		store = inbox.NewRedisStore(client, cfg.Inbox.Capacity)
		logger.Infof("Inbox backed by redis at %s", cfg.Redis.Addr)
	default:
		store = inbox.NewMemoryStore(cfg.Inbox.Capacity)
		logger.Infof("Inbox held in memory")
	}
	hub := inbox.NewHub(logger)
	notifications := inbox.New(store, hub, clock, logger)

	// Alert dispatch
	deps := alert.Dependencies{
		Contacts:       dbConn,
		Preferences:    dbConn,
		SMS:            providers.NewSMS(cfg, logger),
		Email:          providers.NewEmail(cfg, logger),
		Inbox:          notifications,
		Records:        dbConn,
		Metrics:        metrics,
		Clock:          clock,
		ChannelTimeout: cfg.Alert.ChannelTimeout,
		Logger:         logger,
	}
	if cfg.Kafka.Broker != "" {
		publisher := kafka.NewPublisher(cfg)
		defer publisher.Close()
		deps.Publisher = publisher
		logger.Infof("Publishing alert records to topic %s", cfg.Kafka.AlertsTopic)
	}
	dispatcher := alert.NewDispatcher(deps)

	thresholds := threshold.NewService(dbConn, logger)
	readings := sensor.NewService(thresholds, dbConn, dispatcher, metrics, logger)

	sweeper := weather.NewSweeper(weather.Dependencies{
		Farms:       dbConn,
		Preferences: dbConn,
		Provider:    providers.NewWeather(cfg, logger),
		Dispatcher:  dispatcher,
		FarmDelay:   cfg.Weather.FarmDelay,
		Metrics:     metrics,
		Clock:       clock,
		Logger:      logger,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		weather.NewScheduler(sweeper, cfg.Weather.SweepInterval, clock, logger).Run(ctx)
	}()

	// Initialize Kafka consumer
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer(cfg, readings, metrics, logger)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.ReadingsTopic)
		consumer.Start(ctx, &wg)
		defer consumer.Close()
	}

	if cfg.MQTT.Broker != "" {
		subscriber := mqtt.NewSubscriber(cfg, readings, metrics, logger)
		if err := subscriber.Start(ctx); err != nil {
			logger.Errorf("MQTT subscriber failed to start: %v", err)
		} else {
			defer subscriber.Stop()
		}
	}

	// Start API server
	handler := api.NewHandler(api.Services{
		Readings:    readings,
		Sweeper:     sweeper,
		History:     dbConn,
		Preferences: dbConn,
		Thresholds:  thresholds,
		Inbox:       notifications,
		Hub:         hub,
		DB:          dbConn,
	}, logger)
	server := &http.Server{
		Addr:    cfg.API.Port,
		Handler: api.NewRouter(handler, logger, cfg.API.BasePath),
	}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	wg.Wait()
}
