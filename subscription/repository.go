package subscription

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a subscription does not exist
var ErrNotFound = errors.New("subscription not found")

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// Reader provides read operations for subscriptions
type Reader interface {
	Get(ctx context.Context, id string) (Subscription, error)
	/* FindByEventType returns subscriptions whose interest set contains
	 * the event type. activeOnly is a hard filter on Status == Active
	 * A missing match is an empty slice, never an error
	 */
	FindByEventType(ctx context.Context, eventType string, activeOnly bool) ([]Subscription, error)
	List(ctx context.Context, offset, limit int) ([]Subscription, error)
}

// Writer provides write operations for subscriptions
type Writer interface {
	Store(ctx context.Context, sub Subscription) (string, error)
	Update(ctx context.Context, sub Subscription) error
	SetStatus(ctx context.Context, id string, status Status) error
	Remove(ctx context.Context, id string) error
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}

/* Resolver is the one mandatory seam between the dispatch pipeline and
 * subscription storage. The pipeline never depends on a storage-specific
 * representation
 */
type Resolver interface {
	Resolve(ctx context.Context, eventType string, activeOnly bool) ([]Subscription, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, eventType string, activeOnly bool) ([]Subscription, error)

func (f ResolverFunc) Resolve(ctx context.Context, eventType string, activeOnly bool) ([]Subscription, error) {
	return f(ctx, eventType, activeOnly)
}

/* TenantResolver scopes resolution to one tenant on top of the event-type
 * match. Deployments without tenancy use Resolver directly
 */
type TenantResolver interface {
	ResolveTenant(ctx context.Context, tenantID, eventType string, activeOnly bool) ([]Subscription, error)
}
