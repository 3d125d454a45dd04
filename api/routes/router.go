package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stockledger/api/controllers"
	"github.com/angelmondragon/stockledger/api/middleware"
	"github.com/angelmondragon/stockledger/internal/audit"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/internal/notifications"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/logger"
	pkgredis "github.com/angelmondragon/stockledger/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   pkgredis.IdempotencyStore
	Gatherer      prometheus.Gatherer
	HTTPMetrics   middleware.HTTPObserver
	Inventory     inventory.Service
	Audit         audit.Service
	Notifications notifications.Service
	DeadLetters   controllers.DeadLetters
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Metrics(p.HTTPMetrics),
			middleware.Actor(logg),
			middleware.Idempotency(p.Idempotency, cfg.Eventing.HTTPIdempotencyTTL, logg),
		)

		r.Route("/inventory", func(r chi.Router) {
			r.Route("/records", func(r chi.Router) {
				r.Post("/", controllers.CreateRecord(p.Inventory, logg))
				r.Get("/", controllers.ListRecords(p.Inventory, logg))
				r.Route("/{recordId}", func(r chi.Router) {
					r.Get("/", controllers.GetRecord(p.Inventory, logg))
					r.Patch("/planning", controllers.UpdatePlanning(p.Inventory, logg))
					r.Post("/adjustments", controllers.AdjustStock(p.Inventory, logg))
					r.Post("/reservations", controllers.ReserveStock(p.Inventory, logg))
					r.Post("/releases", controllers.ReleaseStock(p.Inventory, logg))
					r.Post("/fulfillments", controllers.FulfillReservation(p.Inventory, logg))
					r.Get("/audit", controllers.RecordAudit(p.Audit, logg))
					r.Get("/snapshot", controllers.RecordSnapshot(p.Audit, logg))
				})
			})
			r.Post("/transfers", controllers.TransferStock(p.Inventory, logg))
			r.Get("/transfers/{transferId}", controllers.TransferEntries(p.Audit, logg))
			r.Get("/audit", controllers.AuditStream(p.Audit, logg))
			r.Get("/replenishment", controllers.Replenishment(p.Inventory, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/summary", controllers.NotificationSummary(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})

		if p.DeadLetters != nil {
			r.Route("/admin/outbox/dead-letters", func(r chi.Router) {
				r.Get("/", controllers.ListDeadLetters(p.DeadLetters, logg))
				r.Post("/{eventId}/requeue", controllers.RequeueDeadLetter(p.DeadLetters, logg))
			})
		}
	})

	return r
}
