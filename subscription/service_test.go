package subscription_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/subscription/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validSub() subscription.Subscription {
	return subscription.Subscription{
		Name:           "orders",
		EventTypes:     []string{"order.created"},
		DestinationURL: "https://example.com/hooks",
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		repo.On("Store", ctx, mock.MatchedBy(func(sub subscription.Subscription) bool {
			return sub.Name == "orders" &&
				sub.Status == subscription.Active &&
				sub.ID != "" &&
				!sub.CreatedAt.IsZero()
		})).Return("sub-123", nil)

		saved, err := s.Add(ctx, validSub())

		require.NoError(t, err)
		assert.Equal(t, "sub-123", saved.ID)
		assert.Equal(t, subscription.Active, saved.Status)
		repo.AssertExpectations(t)
	})

	t.Run("invalid subscription", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		sub := validSub()
		sub.EventTypes = nil

		_, err := s.Add(ctx, sub)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating subscription")
	})

	t.Run("invalid destination URL", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		sub := validSub()
		sub.DestinationURL = "not-a-url"

		_, err := s.Add(ctx, sub)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid destination URL")
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		repo.On("Store", ctx, mock.Anything).Return("", fmt.Errorf("some error"))

		_, err := s.Add(ctx, validSub())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "storing subscription")
	})
}

func TestEnableDisable(t *testing.T) {
	ctx := context.Background()

	t.Run("enable", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		repo.On("SetStatus", ctx, "sub-123", subscription.Active).Return(nil)

		require.NoError(t, s.Enable(ctx, "sub-123"))
		repo.AssertExpectations(t)
	})

	t.Run("disable", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		repo.On("SetStatus", ctx, "sub-123", subscription.Suspended).Return(nil)

		require.NoError(t, s.Disable(ctx, "sub-123"))
		repo.AssertExpectations(t)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to FindByEventType", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		want := []subscription.Subscription{validSub()}
		repo.On("FindByEventType", ctx, "order.created", true).Return(want, nil)

		got, err := s.Resolve(ctx, "order.created", true)

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("propagates failure", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		repo.On("FindByEventType", ctx, "order.created", true).Return(nil, fmt.Errorf("store down"))

		_, err := s.Resolve(ctx, "order.created", true)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolving subscriptions")
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("requires id", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		err := s.Update(ctx, validSub())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ID is required")
	})

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		s := subscription.NewService(repo)

		sub := validSub()
		sub.ID = "sub-123"
		sub.Status = subscription.Active

		repo.On("Update", ctx, mock.MatchedBy(func(u subscription.Subscription) bool {
			return u.ID == "sub-123" && !u.UpdatedAt.IsZero()
		})).Return(nil)

		require.NoError(t, s.Update(ctx, sub))
	})
}
