package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/develoddy/fulfillment/pkg/alerts"
	"github.com/develoddy/fulfillment/pkg/catalog"
	"github.com/develoddy/fulfillment/pkg/classify"
	"github.com/develoddy/fulfillment/pkg/common/config"
	"github.com/develoddy/fulfillment/pkg/common/database"
	"github.com/develoddy/fulfillment/pkg/common/kafka"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/notify"
	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/provider"
	"github.com/develoddy/fulfillment/pkg/retryqueue"
	syncsvc "github.com/develoddy/fulfillment/pkg/sync"
	"github.com/develoddy/fulfillment/pkg/worker"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	orderRepo := orders.NewRepository(db)
	jobRepo := retryqueue.NewRepository(db)

	rules, err := classify.LoadRules(cfg.ClassifierRulesPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ClassifierRulesPath).
			Warn("falling back to built-in classification rules")
	}
	classifier := classify.New(rules)

	notificationProducer := kafka.NewProducer(cfg.NotificationTopic)
	defer notificationProducer.Close()
	alertProducer := kafka.NewProducer(cfg.AlertTopic)
	defer alertProducer.Close()

	alertEmitter := alerts.NewEmitter(db, alertProducer)
	notifier := notify.New(notificationProducer, "retry-worker")

	providerClient := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	variantCatalog := catalog.New(providerClient, database.GetRedis(), cfg.CatalogCacheTTL)

	queue := retryqueue.NewService(jobRepo, classifier, alertEmitter, cfg.RetryMaxAttempts)
	syncer := syncsvc.NewService(orderRepo, providerClient, variantCatalog, queue, classifier, alertEmitter, notifier)

	loop := worker.New(queue, syncer, cfg.WorkerPollInterval, cfg.WorkerBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down retry worker...")
	cancel()
	<-done

	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("failed to close postgres connection")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("failed to close redis connection")
	}

	logger.Log.Info("Retry worker stopped")
}
