package webhook_test

import (
	"testing"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSub() subscription.Subscription {
	return subscription.Subscription{
		ID:             "sub-1",
		Name:           "orders",
		EventTypes:     []string{"order.created"},
		DestinationURL: "https://example.com/hooks",
		Secret:         "s3cr3t",
		RetryCount:     5,
		Headers:        map[string]string{"X-Env": "prod"},
	}
}

func notification(t *testing.T, datas ...map[string]any) event.Notification {
	t.Helper()

	events := make([]event.Event, 0, len(datas))
	for _, d := range datas {
		e, err := event.New("subject", "order.created", d)
		require.NoError(t, err)
		events = append(events, e)
	}
	n, err := event.NewNotification(events...)
	require.NoError(t, err)
	return n
}

func TestNewFactory(t *testing.T) {
	t.Run("invalid mode", func(t *testing.T) {
		_, err := webhook.NewFactory(webhook.CreationMode(99))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid creation mode")
	})
}

func TestCreate_OnePerNotification(t *testing.T) {
	factory, err := webhook.NewFactory(webhook.OnePerNotification)
	require.NoError(t, err)

	t.Run("single event uses event data verbatim", func(t *testing.T) {
		n := notification(t, map[string]any{"total": 42})

		hooks, err := factory.Create(testSub(), n)
		require.NoError(t, err)
		require.Len(t, hooks, 1)

		wh := hooks[0]
		assert.Equal(t, n.ID, wh.ID)
		assert.Equal(t, "order.created", wh.EventType)
		assert.Equal(t, n.Timestamp, wh.Timestamp)
		assert.Equal(t, map[string]any{"total": 42}, wh.Data)
		assert.Equal(t, "sub-1", wh.SubscriptionID)
		assert.Equal(t, "orders", wh.Name)
		assert.Equal(t, "https://example.com/hooks", wh.DestinationURL)
		assert.Equal(t, "s3cr3t", wh.Secret)
		assert.Equal(t, 5, wh.RetryCount)
		assert.Equal(t, "prod", wh.Headers["X-Env"])
	})

	t.Run("batch becomes ordered data array", func(t *testing.T) {
		n := notification(t, map[string]any{"n": 1}, map[string]any{"n": 2})

		hooks, err := factory.Create(testSub(), n)
		require.NoError(t, err)
		require.Len(t, hooks, 1)

		data, ok := hooks[0].Data.([]map[string]any)
		require.True(t, ok)
		require.Len(t, data, 2)
		assert.Equal(t, 1, data[0]["n"])
		assert.Equal(t, 2, data[1]["n"])
	})

	t.Run("headers are copied, not shared", func(t *testing.T) {
		sub := testSub()
		n := notification(t, map[string]any{"n": 1})

		hooks, err := factory.Create(sub, n)
		require.NoError(t, err)

		hooks[0].Headers["X-Env"] = "mutated"
		assert.Equal(t, "prod", sub.Headers["X-Env"])
	})
}

func TestCreate_OnePerEvent(t *testing.T) {
	factory, err := webhook.NewFactory(webhook.OnePerEvent)
	require.NoError(t, err)

	t.Run("two events produce two webhooks with event ids", func(t *testing.T) {
		n := notification(t, map[string]any{"n": 1}, map[string]any{"n": 2})

		hooks, err := factory.Create(testSub(), n)
		require.NoError(t, err)
		require.Len(t, hooks, 2)

		assert.Equal(t, n.Events[0].ID, hooks[0].ID)
		assert.Equal(t, n.Events[1].ID, hooks[1].ID)
		assert.NotEqual(t, hooks[0].ID, hooks[1].ID)
		assert.Equal(t, map[string]any{"n": 1}, hooks[0].Data)
		assert.Equal(t, map[string]any{"n": 2}, hooks[1].Data)
	})

	t.Run("each webhook carries its event timestamp", func(t *testing.T) {
		n := notification(t, map[string]any{"n": 1})

		hooks, err := factory.Create(testSub(), n)
		require.NoError(t, err)
		require.Len(t, hooks, 1)
		assert.Equal(t, n.Events[0].Timestamp, hooks[0].Timestamp)
	})
}

func TestCreationMode(t *testing.T) {
	assert.Equal(t, "one_per_notification", webhook.OnePerNotification.String())
	assert.Equal(t, "one_per_event", webhook.OnePerEvent.String())
	assert.Equal(t, webhook.OnePerEvent, webhook.NewCreationMode("one_per_event"))
	assert.Equal(t, webhook.OnePerNotification, webhook.NewCreationMode(""))
}
