package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-dispatch/subscription"
)

/* In-memory implementation of subscription.Repository
 * Used for tests and single-process deployments seeded from
 * subscriptions.yaml
 */

type Repository struct {
	mu   sync.RWMutex
	subs map[string]subscription.Subscription
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		subs: make(map[string]subscription.Subscription),
	}
}

// Store adds a subscription, assigning an ID when absent
func (r *Repository) Store(_ context.Context, sub subscription.Subscription) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	r.subs[sub.ID] = sub
	return sub.ID, nil
}

// Get retrieves a subscription by ID
func (r *Repository) Get(_ context.Context, id string) (subscription.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	if !ok {
		return subscription.Subscription{}, subscription.ErrNotFound
	}
	return sub, nil
}

// FindByEventType returns subscriptions interested in the event type
func (r *Repository) FindByEventType(_ context.Context, eventType string, activeOnly bool) ([]subscription.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]subscription.Subscription, 0)
	for _, sub := range r.subs {
		if !sub.ListensTo(eventType) {
			continue
		}
		if activeOnly && sub.Status != subscription.Active {
			continue
		}
		matched = append(matched, sub)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

// List returns a page of subscriptions ordered by ID
func (r *Repository) List(_ context.Context, offset, limit int) ([]subscription.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]subscription.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		all = append(all, sub)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return []subscription.Subscription{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Update replaces an existing subscription
func (r *Repository) Update(_ context.Context, sub subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.ID]; !ok {
		return subscription.ErrNotFound
	}
	r.subs[sub.ID] = sub
	return nil
}

// SetStatus updates only the status of a subscription
func (r *Repository) SetStatus(_ context.Context, id string, status subscription.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return subscription.ErrNotFound
	}
	sub.Status = status
	r.subs[id] = sub
	return nil
}

// Remove deletes a subscription
func (r *Repository) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return subscription.ErrNotFound
	}
	delete(r.subs, id)
	return nil
}

// Close is a no-op for the in-memory repository
func (r *Repository) Close(_ context.Context) error {
	return nil
}
