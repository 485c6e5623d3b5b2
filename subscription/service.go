package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

/* Service represents the management layer for subscriptions
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the management operations for subscriptions
type UseCase interface {
	Add(ctx context.Context, sub Subscription) (Subscription, error)
	Get(ctx context.Context, id string) (Subscription, error)
	List(ctx context.Context, offset, limit int) ([]Subscription, error)
	Update(ctx context.Context, sub Subscription) error
	Remove(ctx context.Context, id string) error
	Enable(ctx context.Context, id string) error
	Disable(ctx context.Context, id string) error
}

type Service struct {
	Repo Repository
}

// NewService creates a new subscription service with dependency injection
func NewService(repo Repository) *Service {
	return &Service{
		Repo: repo,
	}
}

// Add validates and stores a new subscription, assigning its ID
func (s *Service) Add(ctx context.Context, sub Subscription) (Subscription, error) {
	sub.ID = uuid.New().String()
	if sub.Status == None {
		sub.Status = Active
	}
	sub.CreatedAt = time.Now().UTC()
	sub.UpdatedAt = sub.CreatedAt

	if err := sub.Validate(); err != nil {
		return Subscription{}, fmt.Errorf("validating subscription: %w", err)
	}

	id, err := s.Repo.Store(ctx, sub)
	if err != nil {
		return Subscription{}, fmt.Errorf("storing subscription: %w", err)
	}
	sub.ID = id

	return sub, nil
}

// Get retrieves a subscription by ID
func (s *Service) Get(ctx context.Context, id string) (Subscription, error) {
	sub, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Subscription{}, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}

// List returns a page of subscriptions
func (s *Service) List(ctx context.Context, offset, limit int) ([]Subscription, error) {
	subs, err := s.Repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return subs, nil
}

// Update validates and replaces an existing subscription
func (s *Service) Update(ctx context.Context, sub Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("subscription ID is required for update")
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validating subscription: %w", err)
	}

	if err := s.Repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}
	return nil
}

// Remove deletes a subscription
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.Repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("removing subscription: %w", err)
	}
	return nil
}

// Enable transitions a subscription to Active
func (s *Service) Enable(ctx context.Context, id string) error {
	if err := s.Repo.SetStatus(ctx, id, Active); err != nil {
		return fmt.Errorf("enabling subscription: %w", err)
	}
	return nil
}

// Disable transitions a subscription to Suspended
func (s *Service) Disable(ctx context.Context, id string) error {
	if err := s.Repo.SetStatus(ctx, id, Suspended); err != nil {
		return fmt.Errorf("disabling subscription: %w", err)
	}
	return nil
}

/* Resolve satisfies the pipeline's Resolver seam directly from the
 * management service, so deployments don't need a separate component
 */
func (s *Service) Resolve(ctx context.Context, eventType string, activeOnly bool) ([]Subscription, error) {
	subs, err := s.Repo.FindByEventType(ctx, eventType, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("resolving subscriptions: %w", err)
	}
	return subs, nil
}
