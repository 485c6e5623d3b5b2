package subscription

import (
	"fmt"
	"net/url"
	"time"

	"github.com/marcelsud/webhook-dispatch/event"
)

// WildcardFilter is the literal filter expression that matches every
// webhook regardless of format
const WildcardFilter = "*"

/* Filter is a boolean content filter attached to a subscription
 * Expression is evaluated against the materialized webhook by an
 * evaluator registered for the given format
 */
type Filter struct {
	Expression string
	Format     string
}

// Wildcard returns true if the filter expression matches everything
func (f Filter) Wildcard() bool {
	return f.Expression == WildcardFilter
}

// Validate checks that both expression and format are present
func (f Filter) Validate() error {
	if f.Expression == "" {
		return fmt.Errorf("filter expression cannot be empty")
	}
	if f.Format == "" {
		return fmt.Errorf("filter format cannot be empty")
	}
	return nil
}

/* Subscription represents a standing interest registration: event types,
 * destination, security, filters
 * Uses value semantics as it represents data, not behavior
 * The dispatch pipeline only reads subscriptions; mutation happens through
 * the management service
 */
type Subscription struct {
	ID             string
	TenantID       string
	Name           string
	EventTypes     []string
	DestinationURL string
	Secret         string
	Status         Status
	RetryCount     int // 0 means use the deployment default
	Filters        []Filter
	Headers        map[string]string
	Properties     map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the subscription is complete enough to deliver to
func (s Subscription) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("subscription name cannot be empty")
	}
	if len(s.EventTypes) == 0 {
		return fmt.Errorf("subscription must declare at least one event type")
	}
	for _, et := range s.EventTypes {
		if err := event.ValidateType(et); err != nil {
			return fmt.Errorf("invalid event type for subscription %s: %w", s.Name, err)
		}
	}
	if s.DestinationURL == "" {
		return fmt.Errorf("destination URL cannot be empty for subscription %s", s.Name)
	}
	u, err := url.Parse(s.DestinationURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid destination URL for subscription %s: %s", s.Name, s.DestinationURL)
	}
	if err := s.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status for subscription %s: %w", s.Name, err)
	}
	if s.RetryCount < 0 {
		return fmt.Errorf("retry count cannot be negative for subscription %s", s.Name)
	}
	for _, f := range s.Filters {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("invalid filter for subscription %s: %w", s.Name, err)
		}
	}
	return nil
}

// ListensTo returns true if the subscription is interested in the event type
func (s Subscription) ListensTo(eventType string) bool {
	for _, et := range s.EventTypes {
		if et == eventType {
			return true
		}
	}
	return false
}
