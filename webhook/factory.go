package webhook

import (
	"fmt"

	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/subscription"
)

/* CreationMode selects how notifications are turned into webhooks
 * OnePerNotification sends a single webhook per notification, batching
 * the event data into an array when the notification carries more than
 * one event. OnePerEvent fans out one webhook per event
 */
type CreationMode int

const (
	OnePerNotification CreationMode = iota + 1
	OnePerEvent
)

// String returns the string representation of the creation mode
func (m CreationMode) String() string {
	switch m {
	case OnePerNotification:
		return "one_per_notification"
	case OnePerEvent:
		return "one_per_event"
	default:
		return "unknown"
	}
}

// NewCreationMode creates a CreationMode from a string
func NewCreationMode(s string) CreationMode {
	switch s {
	case "one_per_event":
		return OnePerEvent
	default:
		return OnePerNotification
	}
}

// Validate checks if the creation mode is valid
func (m CreationMode) Validate() error {
	if m != OnePerNotification && m != OnePerEvent {
		return fmt.Errorf("invalid creation mode: %d", m)
	}
	return nil
}

/* Factory materializes webhooks from a notification and a subscription
 * Uses pointer semantics as it's an API, not data
 */
type Factory struct {
	mode CreationMode
}

// NewFactory creates a factory for the given creation mode
func NewFactory(mode CreationMode) (*Factory, error) {
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("validating creation mode: %w", err)
	}
	return &Factory{mode: mode}, nil
}

// Mode returns the configured creation mode
func (f *Factory) Mode() CreationMode {
	return f.mode
}

/* Create turns a notification into one or more webhooks for a subscription
 * Subscription identity, destination, secret, retry override, and custom
 * headers are copied onto every webhook
 */
func (f *Factory) Create(sub subscription.Subscription, n event.Notification) ([]Webhook, error) {
	if len(n.Events) == 0 {
		return nil, fmt.Errorf("notification %s has no events", n.ID)
	}

	switch f.mode {
	case OnePerNotification:
		wh := f.base(sub)
		wh.ID = n.ID
		wh.EventType = n.Type
		wh.Timestamp = n.Timestamp
		if n.Single() {
			wh.Data = n.First().Data
		} else {
			batch := make([]map[string]any, 0, len(n.Events))
			for _, e := range n.Events {
				batch = append(batch, e.Data)
			}
			wh.Data = batch
		}
		return []Webhook{wh}, nil

	case OnePerEvent:
		hooks := make([]Webhook, 0, len(n.Events))
		for _, e := range n.Events {
			wh := f.base(sub)
			wh.ID = e.ID
			wh.EventType = e.Type
			wh.Timestamp = e.Timestamp
			wh.Data = e.Data
			hooks = append(hooks, wh)
		}
		return hooks, nil

	default:
		return nil, fmt.Errorf("invalid creation mode: %d", f.mode)
	}
}

func (f *Factory) base(sub subscription.Subscription) Webhook {
	headers := make(map[string]string, len(sub.Headers))
	for k, v := range sub.Headers {
		headers[k] = v
	}

	return Webhook{
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		DestinationURL: sub.DestinationURL,
		Secret:         sub.Secret,
		RetryCount:     sub.RetryCount,
		Headers:        headers,
	}
}
