package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/develoddy/fulfillment/pkg/admin"
	"github.com/develoddy/fulfillment/pkg/alerts"
	"github.com/develoddy/fulfillment/pkg/catalog"
	"github.com/develoddy/fulfillment/pkg/classify"
	"github.com/develoddy/fulfillment/pkg/common/config"
	"github.com/develoddy/fulfillment/pkg/common/database"
	"github.com/develoddy/fulfillment/pkg/common/kafka"
	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/notify"
	"github.com/develoddy/fulfillment/pkg/observability/metrics"
	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/provider"
	"github.com/develoddy/fulfillment/pkg/retryqueue"
	syncsvc "github.com/develoddy/fulfillment/pkg/sync"
	"github.com/develoddy/fulfillment/pkg/webhook"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	orderRepo := orders.NewRepository(db)
	if err := orderRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate order tables")
	}

	jobRepo := retryqueue.NewRepository(db)
	if err := jobRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate retry queue tables")
	}

	eventRepo := webhook.NewRepository(db)
	if err := eventRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate webhook tables")
	}

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
	if err := alertEmitter.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate alert tables")
	}

	notifier := notify.New(notificationProducer, "fulfillment-service")

	providerClient := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	variantCatalog := catalog.New(providerClient, database.GetRedis(), cfg.CatalogCacheTTL)

	queue := retryqueue.NewService(jobRepo, classifier, alertEmitter, cfg.RetryMaxAttempts)
	syncer := syncsvc.NewService(orderRepo, providerClient, variantCatalog, queue, classifier, alertEmitter, notifier)
	ingestor := webhook.NewService(eventRepo, orderRepo, classifier, alertEmitter, notifier)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	syncsvc.NewHTTPHandler(syncer, cfg.MaxRequestBody).Register(api)
	webhook.NewHTTPHandler(ingestor, cfg.MaxRequestBody).Register(api)
	admin.NewHTTPHandler(queue, syncer, orderRepo).Register(api)
	alerts.NewHTTPHandler(db).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Fulfillment Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Fulfillment Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("failed to close postgres connection")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("failed to close redis connection")
	}

	logger.Log.Info("Fulfillment Service stopped")
}
