package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/subscription"
)

// Dispatcher runs the notification pipeline for one event
type Dispatcher interface {
	NotifyEvent(ctx context.Context, e event.Event) (delivery.NotificationResult, error)
}

// Handlers sets up the dispatch API routes
func Handlers(ctx context.Context, subscriptionService subscription.UseCase, dispatcher Dispatcher, history HistoryReader, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("webhook-dispatch", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", postEvent(dispatcher).ServeHTTP)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", getSubscriptions(subscriptionService).ServeHTTP)
			r.Post("/", postSubscription(subscriptionService).ServeHTTP)
			r.Get("/{id}", getSubscription(subscriptionService).ServeHTTP)
			r.Put("/{id}", putSubscription(subscriptionService).ServeHTTP)
			r.Delete("/{id}", deleteSubscription(subscriptionService).ServeHTTP)
			r.Post("/{id}/enable", enableSubscription(subscriptionService).ServeHTTP)
			r.Post("/{id}/disable", disableSubscription(subscriptionService).ServeHTTP)
			if history != nil {
				r.Get("/{id}/deliveries", getDeliveries(history).ServeHTTP)
			}
		})
	})

	return r
}
