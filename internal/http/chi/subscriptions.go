package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcelsud/webhook-dispatch/subscription"
)

/*
* Representa a assinatura na camada web, por isso ela tem as tags json
 */
type subscriptionRequest struct {
	Name           string            `json:"name"`
	TenantID       string            `json:"tenant_id"`
	EventTypes     []string          `json:"event_types"`
	DestinationURL string            `json:"destination_url"`
	Secret         string            `json:"secret"`
	RetryCount     int               `json:"retry_count"`
	Filters        []filterRequest   `json:"filters"`
	Headers        map[string]string `json:"headers"`
	Properties     map[string]string `json:"properties"`
}

type filterRequest struct {
	Expression string `json:"expression"`
	Format     string `json:"format"`
}

type subscriptionResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	TenantID       string            `json:"tenant_id,omitempty"`
	EventTypes     []string          `json:"event_types"`
	DestinationURL string            `json:"destination_url"`
	Status         string            `json:"status"`
	RetryCount     int               `json:"retry_count,omitempty"`
	Filters        []filterRequest   `json:"filters,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (sr subscriptionRequest) toDomain() subscription.Subscription {
	filters := make([]subscription.Filter, 0, len(sr.Filters))
	for _, f := range sr.Filters {
		filters = append(filters, subscription.Filter{
			Expression: f.Expression,
			Format:     f.Format,
		})
	}
	return subscription.Subscription{
		Name:           sr.Name,
		TenantID:       sr.TenantID,
		EventTypes:     sr.EventTypes,
		DestinationURL: sr.DestinationURL,
		Secret:         sr.Secret,
		RetryCount:     sr.RetryCount,
		Filters:        filters,
		Headers:        sr.Headers,
		Properties:     sr.Properties,
	}
}

func toSubscriptionResponse(sub subscription.Subscription) subscriptionResponse {
	filters := make([]filterRequest, 0, len(sub.Filters))
	for _, f := range sub.Filters {
		filters = append(filters, filterRequest{
			Expression: f.Expression,
			Format:     f.Format,
		})
	}
	return subscriptionResponse{
		ID:             sub.ID,
		Name:           sub.Name,
		TenantID:       sub.TenantID,
		EventTypes:     sub.EventTypes,
		DestinationURL: sub.DestinationURL,
		Status:         sub.Status.String(),
		RetryCount:     sub.RetryCount,
		Filters:        filters,
		Headers:        sub.Headers,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}
}

func getSubscriptions(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		all, err := service.List(r.Context(), offset, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		result := make([]subscriptionResponse, 0, len(all))
		for _, sub := range all {
			result = append(result, toSubscriptionResponse(sub))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func getSubscription(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeSubscriptionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toSubscriptionResponse(sub)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func postSubscription(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sr subscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&sr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub, err := service.Add(r.Context(), sr.toDomain())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(toSubscriptionResponse(sub)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func putSubscription(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sr subscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&sr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub := sr.toDomain()
		sub.ID = chi.URLParam(r, "id")
		if err := service.Update(r.Context(), sub); err != nil {
			writeSubscriptionError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func deleteSubscription(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeSubscriptionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func enableSubscription(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := service.Enable(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeSubscriptionError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func disableSubscription(service subscription.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := service.Disable(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeSubscriptionError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func writeSubscriptionError(w http.ResponseWriter, err error) {
	if errors.Is(err, subscription.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
