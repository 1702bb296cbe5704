package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leadhiveapp/leadhive-backend/internal/crm"
	"github.com/leadhiveapp/leadhive-backend/internal/cron"
	"github.com/leadhiveapp/leadhive-backend/internal/leads"
	"github.com/leadhiveapp/leadhive-backend/pkg/config"
	"github.com/leadhiveapp/leadhive-backend/pkg/db"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
	"github.com/leadhiveapp/leadhive-backend/pkg/metrics"
	"github.com/leadhiveapp/leadhive-backend/pkg/migrate"
	"github.com/leadhiveapp/leadhive-backend/pkg/redis"
)

const lockKeyFormat = "lh:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	leadsService, err := leads.NewService(leads.ServiceParams{
		Repo:      leads.NewRepository(dbClient.DB()),
		Logger:    logg,
		LeadPrice: cfg.Marketplace.LeadPriceAmount(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create leads service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewLeadExpiryJob(cron.LeadExpiryJobParams{
		Logger: logg,
		Leads:  leadsService,
		TTL:    cfg.Marketplace.LeadTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lead expiry job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(expiryJob)

	interval := cfg.CRM.SyncInterval
	if cfg.CRM.Enabled() {
		crmClient, err := crm.NewClient(cfg.CRM)
		if err != nil {
			logg.Error(context.Background(), "failed to create crm client", err)
			os.Exit(1)
		}
		syncService, err := crm.NewSyncService(crm.SyncServiceParams{
			Repo:   crm.NewRepository(dbClient.DB()),
			Client: crmClient,
			Logger: logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create crm sync service", err)
			os.Exit(1)
		}
		syncJob, err := cron.NewCRMSyncJob(cron.CRMSyncJobParams{Logger: logg, Syncer: syncService})
		if err != nil {
			logg.Error(context.Background(), "failed to create crm sync job", err)
			os.Exit(1)
		}
		registry.Register(syncJob)
	} else {
		logg.Info(context.Background(), "crm integration not configured; sync job disabled")
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
