package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderstackhq/inventory-backend/api/controllers"
	"github.com/orderstackhq/inventory-backend/api/middleware"
	"github.com/orderstackhq/inventory-backend/internal/auditlog"
	"github.com/orderstackhq/inventory-backend/internal/inventory"
	"github.com/orderstackhq/inventory-backend/pkg/config"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
	pkgredis "github.com/orderstackhq/inventory-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Redis, PubSub, and
// Metrics may be nil; the router degrades by skipping idempotency
// replay, mutation throttling, the pubsub readiness check, and the
// /metrics endpoint.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	InventoryService inventory.Service
	AuditlogService  auditlog.Service
	DB               controllers.Pinger
	Redis            controllers.Pinger
	PubSub           controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	RateLimitStore   middleware.RateLimiterStore
	Metrics          prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, controllers.ReadinessChecks{
			DB:     deps.DB,
			Redis:  deps.Redis,
			PubSub: deps.PubSub,
		}, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(
			middleware.RateLimit(
				middleware.NewRateLimitPolicy(cfg.RateLimit.Window, cfg.RateLimit.MutationLimit),
				deps.RateLimitStore,
				logg,
			),
			middleware.Idempotency(deps.IdempotencyStore, logg),
		)

		r.Post("/", controllers.CreateInventory(deps.InventoryService, logg))
		r.Get("/", controllers.ListInventory(deps.InventoryService, logg))

		r.Route("/{productId}", func(r chi.Router) {
			r.Get("/", controllers.GetInventory(deps.InventoryService, logg))
			r.Post("/update", controllers.UpdateStock(deps.InventoryService, logg))
			r.Post("/reserve", controllers.ReserveStock(deps.InventoryService, logg))
			r.Post("/release", controllers.ReleaseStock(deps.InventoryService, logg))
			r.Post("/confirm-sale", controllers.ConfirmSale(deps.InventoryService, logg))
			r.Get("/logs", controllers.GetInventoryLogs(deps.InventoryService, deps.AuditlogService, logg))
		})
	})

	return r
}
