package webhook

import (
	"time"
)

/* Webhook is the materialized, deliverable unit: one addressed payload
 * instance built from a notification and a subscription
 * Uses value semantics as it represents data, not behavior
 * Created fresh per delivery by the Factory and never persisted by the core
 */
type Webhook struct {
	ID             string
	EventType      string
	SubscriptionID string
	Name           string
	DestinationURL string
	Secret         string
	RetryCount     int // 0 means use the deployment default
	Headers        map[string]string
	Timestamp      time.Time
	Data           any
}
