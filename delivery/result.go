package delivery

import (
	"time"

	"github.com/marcelsud/webhook-dispatch/webhook"
)

/* Attempt records one HTTP try against a destination for one webhook
 * Every attempt is kept, whether it succeeded, errored, or timed out
 */
type Attempt struct {
	Number          int
	StartedAt       time.Time
	EndedAt         time.Time // zero until the attempt finishes
	ResponseCode    int       // 0 when no response was received
	ResponseMessage string
	TimedOut        bool
}

// Failed reports whether the attempt ended in failure: an error status,
// a timeout, or no response at all
func (a Attempt) Failed() bool {
	return a.TimedOut || a.ResponseCode == 0 || a.ResponseCode >= 400
}

/* Result is the full attempt history and outcome for one webhook
 * A webhook recovers if a retry eventually succeeds: only the last
 * attempt decides the outcome
 */
type Result struct {
	Webhook  webhook.Webhook
	Attempts []Attempt
}

// Successful reports whether the attempt sequence ended in a non-failed state
func (r Result) Successful() bool {
	if len(r.Attempts) == 0 {
		return false
	}
	return !r.Attempts[len(r.Attempts)-1].Failed()
}

// LastAttempt returns the final attempt, or a zero Attempt when none were made
func (r Result) LastAttempt() Attempt {
	if len(r.Attempts) == 0 {
		return Attempt{}
	}
	return r.Attempts[len(r.Attempts)-1]
}

/* NotificationResult aggregates per-subscription outcomes for one
 * notification: subscription ID to the delivery results actually attempted
 * Empty when no subscription matched
 */
type NotificationResult struct {
	Results map[string][]Result
}

// NewNotificationResult creates an empty aggregate
func NewNotificationResult() NotificationResult {
	return NotificationResult{
		Results: make(map[string][]Result),
	}
}

// Add appends delivery results for a subscription
func (n *NotificationResult) Add(subscriptionID string, results ...Result) {
	n.Results[subscriptionID] = append(n.Results[subscriptionID], results...)
}

// IsEmpty reports whether no subscription was attempted
func (n NotificationResult) IsEmpty() bool {
	return len(n.Results) == 0
}

// Successful returns the subscription IDs whose deliveries all succeeded
func (n NotificationResult) Successful() []string {
	ids := make([]string, 0, len(n.Results))
	for id, results := range n.Results {
		if allSuccessful(results) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Failed returns the subscription IDs with at least one failed delivery
func (n NotificationResult) Failed() []string {
	ids := make([]string, 0)
	for id, results := range n.Results {
		if !allSuccessful(results) {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasSuccessful reports whether any delivery succeeded
func (n NotificationResult) HasSuccessful() bool {
	for _, results := range n.Results {
		for _, r := range results {
			if r.Successful() {
				return true
			}
		}
	}
	return false
}

// HasFailed reports whether any delivery failed
func (n NotificationResult) HasFailed() bool {
	for _, results := range n.Results {
		for _, r := range results {
			if !r.Successful() {
				return true
			}
		}
	}
	return false
}

func allSuccessful(results []Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Successful() {
			return false
		}
	}
	return true
}
