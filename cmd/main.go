/**
 * @description
 * This is the main entry point for the bundle fulfillment service. It is
 * responsible for initializing all components: configuration, the
 * idempotency store (PostgreSQL, Redis, or in-memory depending on what is
 * configured), the Paystack and DataMart API clients, the RabbitMQ event
 * producer, the periodic receipt sweep, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5, github.com/redis/go-redis/v9: Store backends.
 * - github.com/robfig/cron/v3: Periodic sweep of expired idempotency records.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/paystackclient, pkg/datamartclient, pkg/rabbitmq: Outbound clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/isaacadu1245/MY-APP/internal/api"
	"github.com/isaacadu1245/MY-APP/internal/app"
	"github.com/isaacadu1245/MY-APP/internal/config"
	"github.com/isaacadu1245/MY-APP/internal/store"
	"github.com/isaacadu1245/MY-APP/pkg/datamartclient"
	"github.com/isaacadu1245/MY-APP/pkg/paystackclient"
	"github.com/isaacadu1245/MY-APP/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config invalid\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting fulfillment service\" port=%s plans=%d", cfg.ServerPort, len(cfg.Tariffs))

	retention := time.Duration(cfg.RetentionMinutes) * time.Minute
	pendingTimeout := time.Duration(cfg.PendingTimeoutMinutes) * time.Minute

	// Select the idempotency store backend. A shared store (PostgreSQL or
	// Redis) is required when more than one instance serves the webhook;
	// the in-memory store only suppresses duplicates within one process.
	var receipts store.IdempotencyStore
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
		}
		poolConfig.MaxConns = 20
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
		}
		defer dbpool.Close()

		pgStore := store.NewPostgresStore(dbpool, retention, pendingTimeout)
		schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgStore.EnsureSchema(schemaCtx); err != nil {
			cancelSchema()
			log.Fatalf("level=fatal component=bootstrap msg=\"schema setup failed\" err=%v", err)
		}
		cancelSchema()
		receipts = pgStore
		log.Println("level=info component=bootstrap msg=\"idempotency store ready\" backend=postgres")

	case strings.TrimSpace(cfg.RedisURL) != "":
		redisOptions, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"redis url parse failed\" err=%v", err)
		}
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancelPing()
			log.Fatalf("level=fatal component=bootstrap msg=\"redis ping failed\" err=%v", err)
		}
		cancelPing()
		defer redisClient.Close()

		receipts = store.NewRedisStore(redisClient, cfg.RedisReceiptPrefix, retention, pendingTimeout)
		log.Println("level=info component=bootstrap msg=\"idempotency store ready\" backend=redis")

	default:
		receipts = store.NewMemoryStore(retention, pendingTimeout)
		log.Println("level=warn component=bootstrap msg=\"idempotency store ready; duplicates are only suppressed within this process\" backend=memory")
	}

	// Initialize the RabbitMQ producer for fulfillment lifecycle events.
	// Event publishing is advisory; fall back to a no-op when unavailable.
	var events rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; fulfillment events disabled\" env=RABBITMQ_URL")
		events = &rabbitmq.EventProducerFallback{}
	} else if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		events = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the outbound API clients.
	paystackClient := paystackclient.NewClient(cfg.PaystackAPIBaseURL, cfg.PaystackSecretKey)
	datamartClient := datamartclient.NewClient(cfg.DatamartAPIURL, cfg.DatamartAPIKey)

	// Initialize the webhook pipeline with its dependencies.
	pipeline := app.NewService(
		cfg.PaystackSecretKey,
		cfg.Tariffs,
		receipts,
		datamartClient,
		events,
		cfg.FulfillmentEventExchange,
	)

	// Periodically sweep expired receipts for stores that need it.
	if sweeper, ok := receipts.(store.Sweeper); ok {
		scheduler := cron.New()
		_, err := scheduler.AddFunc("@every 5m", func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sweeper.Sweep(sweepCtx); err != nil {
				log.Printf("level=warn component=sweeper msg=\"receipt sweep failed\" err=%v", err)
			}
		})
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"sweep schedule failed\" err=%v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Println("level=info component=bootstrap msg=\"receipt sweep scheduled\" interval=5m")
	}

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(pipeline, paystackClient, cfg.CheckoutEmailDomain)
	router := api.Routes(handlers, cfg.AllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
