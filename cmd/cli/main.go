package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/marcelsud/webhook-dispatch/config"
	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/event"
	"github.com/marcelsud/webhook-dispatch/notifier"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/subscription/memory"
	"github.com/marcelsud/webhook-dispatch/webhook"
	"github.com/marcelsud/webhook-dispatch/webhook/filter"
	"github.com/marcelsud/webhook-dispatch/webhook/signature"
)

/* One-shot dispatcher: loads subscriptions from a YAML file and sends a
 * single event through the full pipeline. Event data is read from stdin
 * when present
 * Usage: cli -subscriptions subscriptions.yaml -type order.created -subject order-42
 */

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	subsFile := flag.String("subscriptions", "subscriptions.yaml", "path to subscriptions YAML")
	eventType := flag.String("type", "", "event type to dispatch")
	subject := flag.String("subject", "", "event subject")
	flag.Parse()

	if *eventType == "" {
		return fmt.Errorf("an event type is required")
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	var data map[string]any
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading event data: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parsing event data: %w", err)
			}
		}
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	loader := subscription.NewLoader()
	if err := loader.Load(*subsFile); err != nil {
		return err
	}
	repo := memory.NewRepository()
	if err := loader.Seed(ctx, repo); err != nil {
		return err
	}

	factory, err := webhook.NewFactory(webhook.NewCreationMode(cfg.CreationMode))
	if err != nil {
		return err
	}

	celEval, err := filter.NewCelEvaluator()
	if err != nil {
		return err
	}

	sender := delivery.NewSender(&http.Client{}, signature.DefaultRegistry(), delivery.Options{
		SignWebhooks:   cfg.SignWebhooks,
		Algorithm:      cfg.SignatureAlgorithm,
		Location:       delivery.NewSignatureLocation(cfg.SignatureLocation),
		HeaderName:     cfg.SignatureHeaderName,
		SignatureParam: cfg.SignatureQueryParam,
		AlgorithmParam: cfg.AlgorithmQueryParam,
		MaxAttempts:    cfg.MaxAttemptCount,
		BackoffUnit:    cfg.BackoffUnit(),
		RequestTimeout: cfg.RequestTimeout(),
		Format:         delivery.NewFormat(cfg.DefaultFormat),
	}, logger)

	dispatcher := notifier.New(
		subscription.NewService(repo),
		factory,
		filter.NewRegistry(celEval),
		sender,
		notifier.WithLogger(logger),
	)

	e, err := event.New(*subject, *eventType, data)
	if err != nil {
		return err
	}

	result, err := dispatcher.NotifyEvent(ctx, e)
	if err != nil {
		return err
	}

	if result.IsEmpty() {
		fmt.Println("no subscription matched the event")
		return nil
	}

	for subscriptionID, results := range result.Results {
		for _, res := range results {
			last := res.LastAttempt()
			fmt.Printf("%s -> %s: successful=%t attempts=%d code=%d\n",
				subscriptionID, res.Webhook.DestinationURL, res.Successful(), len(res.Attempts), last.ResponseCode)
		}
		if len(results) == 0 {
			fmt.Printf("%s: no delivery attempted\n", subscriptionID)
		}
	}

	if result.HasFailed() {
		return fmt.Errorf("some deliveries failed")
	}
	return nil
}
