package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/leadhiveapp/leadhive-backend/api/routes"
	"github.com/leadhiveapp/leadhive-backend/internal/analytics"
	"github.com/leadhiveapp/leadhive-backend/internal/favorites"
	"github.com/leadhiveapp/leadhive-backend/internal/leads"
	"github.com/leadhiveapp/leadhive-backend/internal/ledger"
	"github.com/leadhiveapp/leadhive-backend/internal/notifications"
	"github.com/leadhiveapp/leadhive-backend/pkg/config"
	"github.com/leadhiveapp/leadhive-backend/pkg/db"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
	"github.com/leadhiveapp/leadhive-backend/pkg/migrate"
	"github.com/leadhiveapp/leadhive-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Tx:              dbClient,
		Repo:            ledger.NewRepository(dbClient.DB()),
		Notifier:        notificationsService,
		Logger:          logg,
		LeadPrice:       cfg.Marketplace.LeadPriceAmount(),
		VendorTypeLimit: cfg.Marketplace.VendorTypeLimit,
		FeedbackReward:  cfg.Marketplace.FeedbackRewardAmount(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	leadsRepo := leads.NewRepository(dbClient.DB())
	leadsService, err := leads.NewService(leads.ServiceParams{
		Repo:      leadsRepo,
		Logger:    logg,
		LeadPrice: cfg.Marketplace.LeadPriceAmount(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create leads service", err)
		os.Exit(1)
	}

	favoritesService, err := favorites.NewService(favorites.ServiceParams{
		FavoritesRepo: favorites.NewRepository(dbClient.DB()),
		LeadsRepo:     leadsRepo,
		LeadPrice:     cfg.Marketplace.LeadPriceAmount(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create favorites service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(analytics.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Ledger:        ledgerService,
			Leads:         leadsService,
			Favorites:     favoritesService,
			Analytics:     analyticsService,
			Notifications: notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
