package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/notifier"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/subscription/memory"
	"github.com/marcelsud/webhook-dispatch/webhook"
	"github.com/marcelsud/webhook-dispatch/webhook/filter"
	"github.com/marcelsud/webhook-dispatch/webhook/signature"
)

func newTestNotifier(t *testing.T, repo subscription.Repository, opts ...notifier.Option) *notifier.Notifier {
	t.Helper()

	factory, err := webhook.NewFactory(webhook.OnePerNotification)
	require.NoError(t, err)

	filters := filter.NewRegistry()
	celEval, err := filter.NewCelEvaluator()
	require.NoError(t, err)
	filters.Register(celEval)

	sender := delivery.NewSender(http.DefaultClient, signature.DefaultRegistry(), delivery.Options{
		BackoffUnit: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	service := subscription.NewService(repo)
	opts = append(opts, notifier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return notifier.New(service, factory, filters, sender, opts...)
}

func storeSubscription(t *testing.T, repo subscription.Repository, sub subscription.Subscription) subscription.Subscription {
	t.Helper()
	id, err := repo.Store(context.Background(), sub)
	require.NoError(t, err)
	sub.ID = id
	return sub
}

func TestNotify(t *testing.T) {
	t.Run("should deliver to a matching subscription on first attempt", func(t *testing.T) {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		sub := storeSubscription(t, repo, subscription.Subscription{
			Name:           "orders",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Active,
			Filters: []subscription.Filter{
				{Expression: `data.type == "test"`, Format: filter.CelFormat},
			},
		})

		e, err := event.New("subject", "data.created", map[string]any{"type": "test"})
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)

		require.Len(t, result.Results, 1)
		results := result.Results[sub.ID]
		require.Len(t, results, 1)
		assert.True(t, results[0].Successful())
		assert.Len(t, results[0].Attempts, 1)
		assert.Equal(t, http.StatusAccepted, results[0].LastAttempt().ResponseCode)
		assert.Equal(t, "data.created", got["eventType"])
		assert.Equal(t, "test", got["type"])
	})

	t.Run("should return an empty result when no subscription listens", func(t *testing.T) {
		repo := memory.NewRepository()
		storeSubscription(t, repo, subscription.Subscription{
			Name:           "orders",
			EventTypes:     []string{"order.created"},
			DestinationURL: "http://localhost:1/hook",
			Status:         subscription.Active,
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
	})

	t.Run("should skip suspended subscriptions", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		storeSubscription(t, repo, subscription.Subscription{
			Name:           "paused",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Suspended,
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
	})

	t.Run("should fail when resolution fails", func(t *testing.T) {
		boom := errors.New("storage offline")
		resolver := subscription.ResolverFunc(func(ctx context.Context, eventType string, activeOnly bool) ([]subscription.Subscription, error) {
			return nil, boom
		})

		factory, err := webhook.NewFactory(webhook.OnePerNotification)
		require.NoError(t, err)

		sender := delivery.NewSender(http.DefaultClient, signature.DefaultRegistry(), delivery.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		n := notifier.New(resolver, factory, filter.NewRegistry(), sender,
			notifier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		result, err := n.NotifyEvent(context.Background(), e)
		require.ErrorIs(t, err, boom)
		assert.True(t, result.IsEmpty())
	})

	t.Run("should isolate an unreachable destination from a healthy one", func(t *testing.T) {
		var healthyHits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			healthyHits.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		unreachable := storeSubscription(t, repo, subscription.Subscription{
			Name:           "unreachable",
			EventTypes:     []string{"data.created"},
			DestinationURL: "http://127.0.0.1:1/hook",
			Status:         subscription.Active,
		})
		healthy := storeSubscription(t, repo, subscription.Subscription{
			Name:           "healthy",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Active,
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)

		require.Len(t, result.Results, 2)
		require.Len(t, result.Results[healthy.ID], 1)
		assert.True(t, result.Results[healthy.ID][0].Successful())
		assert.Equal(t, int32(1), healthyHits.Load())

		require.Len(t, result.Results[unreachable.ID], 1)
		unreachableResult := result.Results[unreachable.ID][0]
		assert.False(t, unreachableResult.Successful())
		assert.Len(t, unreachableResult.Attempts, delivery.DefaultMaxAttempts)
		assert.Equal(t, []string{healthy.ID}, result.Successful())
		assert.Equal(t, []string{unreachable.ID}, result.Failed())
	})

	t.Run("should skip delivery when filters reject the webhook", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		storeSubscription(t, repo, subscription.Subscription{
			Name:           "filtered",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Active,
			Filters: []subscription.Filter{
				{Expression: `data.type == "other"`, Format: filter.CelFormat},
			},
		})

		e, err := event.New("subject", "data.created", map[string]any{"type": "test"})
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("should treat an unknown filter format as non-matching", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		storeSubscription(t, repo, subscription.Subscription{
			Name:           "exotic",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Active,
			Filters: []subscription.Filter{
				{Expression: "whatever", Format: "jsonpath"},
			},
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, result.IsEmpty())
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("should record an empty outcome for a subscription that errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		broken := storeSubscription(t, repo, subscription.Subscription{
			Name:           "broken",
			EventTypes:     []string{"data.created"},
			DestinationURL: "://not-a-url",
			Status:         subscription.Active,
		})
		healthy := storeSubscription(t, repo, subscription.Subscription{
			Name:           "healthy",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Active,
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		n := newTestNotifier(t, repo)
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)

		require.Len(t, result.Results, 2)
		assert.Empty(t, result.Results[broken.ID])
		require.Len(t, result.Results[healthy.ID], 1)
		assert.True(t, result.Results[healthy.ID][0].Successful())
		assert.Contains(t, result.Failed(), broken.ID)
	})

	t.Run("should persist delivery results through the history writer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		repo := memory.NewRepository()
		sub := storeSubscription(t, repo, subscription.Subscription{
			Name:           "audited",
			EventTypes:     []string{"data.created"},
			DestinationURL: server.URL,
			Status:         subscription.Active,
		})

		var storedNotificationID string
		var stored []delivery.Result
		writer := delivery.WriterFunc(func(ctx context.Context, notificationID string, result delivery.Result) error {
			storedNotificationID = notificationID
			stored = append(stored, result)
			return nil
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		n := newTestNotifier(t, repo, notifier.WithHistory(writer))
		result, err := n.NotifyEvent(context.Background(), e)
		require.NoError(t, err)

		require.Len(t, result.Results[sub.ID], 1)
		require.Len(t, stored, 1)
		assert.NotEmpty(t, storedNotificationID)
		assert.Equal(t, sub.ID, stored[0].Webhook.SubscriptionID)
	})

	t.Run("should stop starting subscriptions once the context is cancelled", func(t *testing.T) {
		repo := memory.NewRepository()
		storeSubscription(t, repo, subscription.Subscription{
			Name:           "first",
			EventTypes:     []string{"data.created"},
			DestinationURL: "http://127.0.0.1:1/hook",
			Status:         subscription.Active,
		})

		e, err := event.New("subject", "data.created", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		n := newTestNotifier(t, repo)
		result, err := n.Notify(ctx, mustNotification(t, e))
		require.ErrorIs(t, err, context.Canceled)
		assert.True(t, result.IsEmpty())
	})
}

func mustNotification(t *testing.T, events ...event.Event) event.Notification {
	t.Helper()
	n, err := event.NewNotification(events...)
	require.NoError(t, err)
	return n
}
