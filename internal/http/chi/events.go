package chi

import (
	"encoding/json"
	"net/http"

	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/event"
)

/* HTTP layer DTOs for the event API
 * Separate from domain entities to avoid leaking internal structure
 */

// eventRequest represents an incoming event to dispatch
type eventRequest struct {
	Subject string         `json:"subject"`
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
}

// dispatchResponse summarizes the outcome per subscription
type dispatchResponse struct {
	EventID       string                     `json:"event_id"`
	Subscriptions map[string]outcomeResponse `json:"subscriptions"`
}

type outcomeResponse struct {
	Successful bool              `json:"successful"`
	Deliveries []attemptResponse `json:"deliveries"`
}

type attemptResponse struct {
	WebhookID string `json:"webhook_id"`
	Attempts  int    `json:"attempts"`
	Code      int    `json:"code"`
	TimedOut  bool   `json:"timed_out"`
}

// postEvent handles POST /v1/events
func postEvent(dispatcher Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		e, err := event.New(req.Subject, req.Type, req.Data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := dispatcher.NotifyEvent(r.Context(), e)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(toDispatchResponse(e, result)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func toDispatchResponse(e event.Event, result delivery.NotificationResult) dispatchResponse {
	response := dispatchResponse{
		EventID:       e.ID,
		Subscriptions: make(map[string]outcomeResponse, len(result.Results)),
	}
	for subscriptionID, results := range result.Results {
		outcome := outcomeResponse{
			Successful: true,
			Deliveries: make([]attemptResponse, 0, len(results)),
		}
		if len(results) == 0 {
			outcome.Successful = false
		}
		for _, res := range results {
			if !res.Successful() {
				outcome.Successful = false
			}
			last := res.LastAttempt()
			outcome.Deliveries = append(outcome.Deliveries, attemptResponse{
				WebhookID: res.Webhook.ID,
				Attempts:  len(res.Attempts),
				Code:      last.ResponseCode,
				TimedOut:  last.TimedOut,
			})
		}
		response.Subscriptions[subscriptionID] = outcome
	}
	return response
}
