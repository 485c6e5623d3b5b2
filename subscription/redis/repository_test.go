package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelsud/webhook-dispatch/subscription"
	redisrepo "github.com/marcelsud/webhook-dispatch/subscription/redis"
)

func newTestRepository(t *testing.T) *redisrepo.Repository {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return redisrepo.NewRepositoryWithClient(client)
}

func testSub(name string, eventTypes []string, status subscription.Status) subscription.Subscription {
	return subscription.Subscription{
		Name:           name,
		EventTypes:     eventTypes,
		DestinationURL: "https://example.com/hooks",
		Secret:         "s3cr3t",
		Status:         status,
		Filters: []subscription.Filter{
			{Expression: `data.type == "test"`, Format: "cel"},
		},
		Headers: map[string]string{"X-Env": "test"},
	}
}

func TestStoreAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Store(ctx, testSub("orders", []string{"order.created"}, subscription.Active))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sub, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "orders", sub.Name)
	assert.Equal(t, []string{"order.created"}, sub.EventTypes)
	assert.Equal(t, "s3cr3t", sub.Secret)
	assert.Equal(t, subscription.Active, sub.Status)
	require.Len(t, sub.Filters, 1)
	assert.Equal(t, `data.type == "test"`, sub.Filters[0].Expression)
	assert.Equal(t, "cel", sub.Filters[0].Format)
	assert.Equal(t, "test", sub.Headers["X-Env"])

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})
}

func TestFindByEventType(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Store(ctx, testSub("orders", []string{"order.created", "order.updated"}, subscription.Active))
	require.NoError(t, err)
	_, err = repo.Store(ctx, testSub("orders-paused", []string{"order.created"}, subscription.Suspended))
	require.NoError(t, err)

	t.Run("active only", func(t *testing.T) {
		subs, err := repo.FindByEventType(ctx, "order.created", true)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "orders", subs[0].Name)
	})

	t.Run("all statuses", func(t *testing.T) {
		subs, err := repo.FindByEventType(ctx, "order.created", false)
		require.NoError(t, err)
		assert.Len(t, subs, 2)
	})

	t.Run("secondary event type", func(t *testing.T) {
		subs, err := repo.FindByEventType(ctx, "order.updated", true)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "orders", subs[0].Name)
	})

	t.Run("empty for unknown type", func(t *testing.T) {
		subs, err := repo.FindByEventType(ctx, "user.created", true)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}

func TestUpdateReindexes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Store(ctx, testSub("orders", []string{"order.created"}, subscription.Active))
	require.NoError(t, err)

	sub, err := repo.Get(ctx, id)
	require.NoError(t, err)
	sub.EventTypes = []string{"order.deleted"}
	require.NoError(t, repo.Update(ctx, sub))

	old, err := repo.FindByEventType(ctx, "order.created", false)
	require.NoError(t, err)
	assert.Empty(t, old)

	current, err := repo.FindByEventType(ctx, "order.deleted", false)
	require.NoError(t, err)
	assert.Len(t, current, 1)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Store(ctx, testSub("orders", []string{"order.created"}, subscription.Active))
	require.NoError(t, err)

	require.NoError(t, repo.SetStatus(ctx, id, subscription.Suspended))

	sub, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.Suspended, sub.Status)

	assert.ErrorIs(t, repo.SetStatus(ctx, "missing", subscription.Active), subscription.ErrNotFound)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Store(ctx, testSub("orders", []string{"order.created"}, subscription.Active))
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, id))

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, subscription.ErrNotFound)

	subs, err := repo.FindByEventType(ctx, "order.created", false)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for _, id := range []string{"a", "b", "c"} {
		sub := testSub("sub-"+id, []string{"order.created"}, subscription.Active)
		sub.ID = id
		_, err := repo.Store(ctx, sub)
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
