package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadhiveapp/leadhive-backend/api/controllers"
	"github.com/leadhiveapp/leadhive-backend/api/middleware"
	"github.com/leadhiveapp/leadhive-backend/internal/analytics"
	"github.com/leadhiveapp/leadhive-backend/internal/favorites"
	"github.com/leadhiveapp/leadhive-backend/internal/leads"
	"github.com/leadhiveapp/leadhive-backend/internal/ledger"
	"github.com/leadhiveapp/leadhive-backend/internal/notifications"
	"github.com/leadhiveapp/leadhive-backend/pkg/config"
	"github.com/leadhiveapp/leadhive-backend/pkg/db"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
	"github.com/leadhiveapp/leadhive-backend/pkg/redis"
)

// Services groups the domain services the router exposes.
type Services struct {
	Ledger        ledger.Service
	Leads         leads.Service
	Favorites     favorites.Service
	Analytics     analytics.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	services Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	feedbackPolicy := middleware.NewRateLimitPolicy(
		"feedback",
		cfg.Marketplace.FeedbackRateWindow,
		cfg.Marketplace.FeedbackRateLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", controllers.ListLeads(services.Leads, logg))
			r.Get("/{leadId}", controllers.GetLead(services.Leads, logg))
			r.Post("/{leadId}/purchase", controllers.PurchaseLead(services.Ledger, logg))
			r.With(middleware.UserRateLimit(feedbackPolicy, redisClient, logg)).
				Post("/{leadId}/feedback", controllers.SubmitFeedback(services.Ledger, logg))
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", controllers.ListFavorites(services.Favorites, logg))
			r.Post("/", controllers.AddFavorite(services.Favorites, logg))
			r.Delete("/{leadId}", controllers.RemoveFavorite(services.Favorites, logg))
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/balance", controllers.AccountBalance(services.Ledger, logg))
			r.Get("/transactions", controllers.AccountTransactions(services.Ledger, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(services.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(services.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(services.Notifications, logg))
		})

		r.Get("/analytics/vendor", controllers.VendorAnalytics(services.Analytics, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/leads", controllers.AdminUpsertLead(services.Leads, logg))
		r.Post("/users/{userId}/deposit", controllers.AdminDeposit(services.Ledger, logg))
	})

	return r
}
