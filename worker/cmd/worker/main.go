package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imageInspector/worker/cache"
	"imageInspector/worker/classify"
	"imageInspector/worker/config"
	"imageInspector/worker/kafka"
	"imageInspector/worker/pool"
	"imageInspector/worker/repository"
	"imageInspector/worker/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("Worker service starting",
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Int("worker_count", cfg.WorkerCount),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisClient)
	processor := service.NewProcessor(repo, statusCache, classify.DefaultThresholds(), cfg.ReportDir, logger)

	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID)
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	workerPool := pool.NewWorkerPool(cfg.WorkerCount)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	for ctx.Err() == nil {
		err := consumer.Consume(ctx, cfg.KafkaTopic, func(ctx context.Context, msg *kafka.TaskMessage) error {
			workerPool.Submit(ctx, msg, processor.Process)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Consumer error", zap.Error(err))
		}
	}

	workerPool.Wait()
	logger.Info("Worker service stopped")
}
