package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/metrics"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/webhook"
	"github.com/marcelsud/webhook-dispatch/webhook/filter"
)

// DefaultWorkers bounds concurrent subscription processing
const DefaultWorkers = 8

// Sender delivers one webhook and reports the full attempt history
type Sender interface {
	Send(ctx context.Context, wh webhook.Webhook) (delivery.Result, error)
}

/* Notifier orchestrates the dispatch pipeline:
 * resolve -> create -> filter -> send, per subscription
 * Subscriptions are independent units of work: a failure building or
 * sending for one subscription never aborts the others. Only a failure
 * of subscription resolution itself is fatal
 */
type Notifier struct {
	resolver subscription.Resolver
	factory  *webhook.Factory
	filters  *filter.Registry
	sender   Sender
	history  delivery.Writer
	recorder *metrics.Recorder
	log      *slog.Logger
	workers  int
}

// Option configures optional notifier collaborators
type Option func(*Notifier)

// WithHistory persists every delivery result through the writer
func WithHistory(w delivery.Writer) Option {
	return func(n *Notifier) { n.history = w }
}

// WithMetrics records delivery metrics
func WithMetrics(r *metrics.Recorder) Option {
	return func(n *Notifier) { n.recorder = r }
}

// WithLogger replaces the default logger
func WithLogger(log *slog.Logger) Option {
	return func(n *Notifier) { n.log = log }
}

// WithWorkers bounds the subscription fan-out
func WithWorkers(workers int) Option {
	return func(n *Notifier) {
		if workers > 0 {
			n.workers = workers
		}
	}
}

// New creates a notifier over the given pipeline components
func New(resolver subscription.Resolver, factory *webhook.Factory, filters *filter.Registry, sender Sender, opts ...Option) *Notifier {
	n := &Notifier{
		resolver: resolver,
		factory:  factory,
		filters:  filters,
		sender:   sender,
		log:      slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyEvent wraps a single event into a notification and dispatches it
func (n *Notifier) NotifyEvent(ctx context.Context, e event.Event) (delivery.NotificationResult, error) {
	notification, err := event.NewNotification(e)
	if err != nil {
		return delivery.NewNotificationResult(), fmt.Errorf("building notification: %w", err)
	}
	return n.Notify(ctx, notification)
}

/* Notify dispatches one notification to every interested subscription
 * Returns an error only when resolution fails or the context is
 * cancelled; per-subscription failures are reflected in the result
 */
func (n *Notifier) Notify(ctx context.Context, notification event.Notification) (delivery.NotificationResult, error) {
	result := delivery.NewNotificationResult()

	subs, err := n.resolver.Resolve(ctx, notification.Type, true)
	if err != nil {
		return result, fmt.Errorf("resolving subscriptions for %s: %w", notification.Type, err)
	}

	if n.recorder != nil {
		n.recorder.RecordNotification(ctx, notification.Type, len(subs))
	}

	if len(subs) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.workers)

	for _, sub := range subs {
		// New subscriptions are not started after cancellation; results
		// for already-finished subscriptions are preserved
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			results, err := n.process(ctx, sub, notification)
			if err != nil {
				if ctx.Err() != nil {
					// In-flight work abandoned on cancellation
					return nil
				}
				n.log.ErrorContext(ctx, "subscription processing failed",
					slog.String("subscription_id", sub.ID),
					slog.String("subscription", sub.Name),
					slog.String("notification_id", notification.ID),
					slog.String("error", err.Error()),
				)
				// Record a failed, empty outcome for this subscription only
				mu.Lock()
				result.Add(sub.ID)
				mu.Unlock()
				return nil
			}

			if len(results) == 0 {
				// No webhook matched the subscription's filters
				return nil
			}

			mu.Lock()
			result.Add(sub.ID, results...)
			mu.Unlock()
			return nil
		})
	}

	// Goroutines never return errors; the group is a bounded wait
	g.Wait()

	return result, ctx.Err()
}

/* process runs create -> filter -> send for one subscription
 * Panics are recovered here so a misbehaving filter or serializer
 * cannot take down the whole notification
 */
func (n *Notifier) process(ctx context.Context, sub subscription.Subscription, notification event.Notification) (results []delivery.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing subscription %s: %v", sub.ID, r)
		}
	}()

	hooks, err := n.factory.Create(sub, notification)
	if err != nil {
		return nil, fmt.Errorf("creating webhooks: %w", err)
	}

	for _, wh := range hooks {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		matched, err := n.filters.Matches(ctx, sub, wh)
		if err != nil {
			return results, fmt.Errorf("evaluating filters: %w", err)
		}
		if !matched {
			n.log.DebugContext(ctx, "webhook skipped by filter",
				slog.String("subscription_id", sub.ID),
				slog.String("webhook_id", wh.ID),
			)
			continue
		}

		started := time.Now()
		res, err := n.sender.Send(ctx, wh)
		if err != nil {
			if ctx.Err() != nil {
				// Keep whatever attempts were made before cancellation
				if len(res.Attempts) > 0 {
					results = append(results, res)
				}
				return results, ctx.Err()
			}
			return results, fmt.Errorf("sending webhook %s: %w", wh.ID, err)
		}

		results = append(results, res)

		if n.recorder != nil {
			n.recorder.RecordDelivery(ctx, wh.EventType, res.Successful(), len(res.Attempts), time.Since(started))
		}
		if n.history != nil {
			if err := n.history.StoreResult(ctx, notification.ID, res); err != nil {
				n.log.WarnContext(ctx, "storing delivery result failed",
					slog.String("webhook_id", wh.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return results, nil
}
