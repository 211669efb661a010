package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"mandala/internal/api"
	"mandala/internal/auth"
	"mandala/internal/config"
	"mandala/internal/database"
	"mandala/internal/generate"
	"mandala/internal/session"
	"mandala/internal/storage"
	"mandala/internal/store"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := db.AutoMigrate(
		&database.User{},
		&database.Chart{},
		&database.Message{},
		&database.Export{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	st := store.NewGormStore(db)

	seeded, err := store.SeedUsers(context.Background(), st)
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if seeded > 0 {
		log.Printf("seeded %d initial users", seeded)
	}

	generator, err := generate.NewGeminiGenerator(
		context.Background(),
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Gemini.Timeout,
	)
	if err != nil {
		log.Fatalf("init gemini generator: %v", err)
	}

	sessions := session.NewManager(st, generator, logger, cfg.Sync.Debounce, cfg.Sync.Settle)
	gate := auth.NewPinGate(cfg.Admin.PINHash, cfg.Admin.TokenSecret, cfg.Admin.TokenTTL)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	router := api.NewRouter(logger)
	api.RegisterRoutes(
		router,
		db,
		st,
		sessions,
		gate,
		asynqClient,
		redisClient,
		storageClient,
		logger,
		cfg.Export.InternalSecret,
		cfg.API.Origins(),
	)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
