package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcelsud/webhook-dispatch/delivery/sqlite"
)

// HistoryReader exposes persisted delivery results for the API
type HistoryReader interface {
	HistoryBySubscription(ctx context.Context, subscriptionID string, limit int) ([]sqlite.HistoryEntry, error)
}

type deliveryResponse struct {
	NotificationID string    `json:"notification_id"`
	WebhookID      string    `json:"webhook_id"`
	EventType      string    `json:"event_type"`
	DestinationURL string    `json:"destination_url"`
	Successful     bool      `json:"successful"`
	Attempts       int       `json:"attempts"`
	CreatedAt      time.Time `json:"created_at"`
}

// getDeliveries handles GET /v1/subscriptions/{id}/deliveries
func getDeliveries(history HistoryReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}

		entries, err := history.HistoryBySubscription(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result := make([]deliveryResponse, 0, len(entries))
		for _, e := range entries {
			result = append(result, deliveryResponse{
				NotificationID: e.NotificationID,
				WebhookID:      e.WebhookID,
				EventType:      e.EventType,
				DestinationURL: e.DestinationURL,
				Successful:     e.Successful,
				Attempts:       len(e.Attempts),
				CreatedAt:      e.CreatedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
