package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvbarbosa/destino-api/internal/api"
	"github.com/mvbarbosa/destino-api/internal/cache"
	"github.com/mvbarbosa/destino-api/internal/city"
	"github.com/mvbarbosa/destino-api/internal/config"
	"github.com/mvbarbosa/destino-api/internal/costs"
	"github.com/mvbarbosa/destino-api/internal/guide"
	"github.com/mvbarbosa/destino-api/internal/history"
	"github.com/mvbarbosa/destino-api/internal/search"
	"github.com/mvbarbosa/destino-api/internal/storage"
	"github.com/mvbarbosa/destino-api/internal/weather"
	"github.com/mvbarbosa/destino-api/internal/wiki"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Run migrations.
	if err := storage.RunMigrations(ctx, pool, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Wire dependencies.
	ttl := time.Duration(cfg.Redis.TTLHours) * time.Hour
	cityRepo := city.NewRepository(pool)
	directory := city.NewDirectory(cityRepo, log)
	store := cache.NewStoreWithTTL(redisClient, ttl)
	histRepo := history.NewRepository(pool)

	wikiClient := wiki.NewClient(log)
	weatherSvc := weather.NewServiceWithURL(cfg.Weather.BaseURL, cfg.Weather.APIKey, log)
	costsSvc := costs.NewService(
		costs.NewTransportEstimator(cfg.Transport.APIKey, log),
		costs.NewAccommodationEstimator(cfg.Accommodation.ClientID, cfg.Accommodation.ClientSecret, log),
		log,
	)

	var backend guide.Backend
	if cfg.Guide.GeminiAPIKey != "" {
		backend, err = guide.NewGeminiBackend(ctx, cfg.Guide.GeminiAPIKey, cfg.Guide.Model)
		if err != nil {
			return fmt.Errorf("creating guide backend: %w", err)
		}
	} else {
		log.Info("no generative backend configured, narrative uses the template")
	}
	generator := guide.NewGenerator(backend, log)

	searcher := search.NewService(search.Dependencies{
		Directory: directory,
		Cache:     store,
		Wiki:      wikiClient,
		Weather:   weatherSvc,
		Costs:     costsSvc,
		Guide:     generator,
		History:   histRepo,
		Log:       log,
	}, ttl)

	handlers := api.NewHandlers(searcher, directory, store, histRepo, log)

	// Build router with pingers adapted for health check.
	dbPinger := &pgxPoolPinger{pool: pool}
	redisPinger := &redisPingerAdapter{client: redisClient}

	router := api.NewRouter(handlers, cfg.Server.BearerToken, dbPinger, redisPinger, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to the api.dbPinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
