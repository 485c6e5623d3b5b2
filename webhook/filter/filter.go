package filter

import (
	"context"

	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/webhook"
)

/* Evaluator decides whether a webhook matches a subscription's content
 * filters. One implementation owns exactly one filter format and rejects
 * filters of any other format
 */
type Evaluator interface {
	// Format returns the filter format tag this evaluator owns
	Format() string
	/* Matches evaluates the given filters against the webhook, combining
	 * multiple expressions with logical AND. Wildcard expressions
	 * short-circuit to true without evaluating anything
	 */
	Matches(ctx context.Context, filters []subscription.Filter, wh webhook.Webhook) (bool, error)
}

/* Registry maps filter format tags to evaluators
 * A format with no registered evaluator makes the subscription
 * non-matching instead of erroring the whole run: one unresolvable
 * filter format must not block delivery to other subscriptions
 */
type Registry struct {
	evaluators map[string]Evaluator
}

// NewRegistry creates a registry with the given evaluators
func NewRegistry(evaluators ...Evaluator) *Registry {
	r := &Registry{evaluators: make(map[string]Evaluator)}
	for _, e := range evaluators {
		r.evaluators[e.Format()] = e
	}
	return r
}

// Register adds an evaluator for its format, replacing any previous one
func (r *Registry) Register(e Evaluator) {
	r.evaluators[e.Format()] = e
}

/* Matches evaluates all of a subscription's filters against a webhook
 * A subscription with zero filters always matches. Filters are grouped
 * by format and each group must match (logical AND across groups)
 */
func (r *Registry) Matches(ctx context.Context, sub subscription.Subscription, wh webhook.Webhook) (bool, error) {
	if len(sub.Filters) == 0 {
		return true, nil
	}

	// Wildcard short-circuits before any serialization or evaluation
	for _, f := range sub.Filters {
		if f.Wildcard() {
			return true, nil
		}
	}

	byFormat := make(map[string][]subscription.Filter)
	for _, f := range sub.Filters {
		byFormat[f.Format] = append(byFormat[f.Format], f)
	}

	for format, filters := range byFormat {
		evaluator, ok := r.evaluators[format]
		if !ok {
			// No evaluator for this format: non-matching, not an error
			return false, nil
		}

		matched, err := evaluator.Matches(ctx, filters, wh)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}

	return true, nil
}
