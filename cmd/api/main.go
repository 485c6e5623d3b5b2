package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-dispatch/config"
	"github.com/marcelsud/webhook-dispatch/delivery"
	"github.com/marcelsud/webhook-dispatch/delivery/sqlite"
	"github.com/marcelsud/webhook-dispatch/internal/http/chi"
	"github.com/marcelsud/webhook-dispatch/metrics"
	"github.com/marcelsud/webhook-dispatch/notifier"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/marcelsud/webhook-dispatch/subscription/redis"
	"github.com/marcelsud/webhook-dispatch/webhook"
	"github.com/marcelsud/webhook-dispatch/webhook/filter"
	"github.com/marcelsud/webhook-dispatch/webhook/signature"
)

const TIMEOUT = 30 * time.Second

/*
 * As importações devem ser feitas apenas em uma direção: para baixo. O aplicativo (api, cli) importa camadas de negócios,
 * que importam a camada de armazenamento
 */

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	repo, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)
	service := subscription.NewService(repo)

	if cfg.SubscriptionsFile != "" {
		loader := subscription.NewLoader()
		if err := loader.Load(cfg.SubscriptionsFile); err != nil {
			return err
		}
		if err := loader.Seed(ctx, repo); err != nil {
			return err
		}
		logger.InfoContext(ctx, "subscriptions provisioned",
			slog.String("file", cfg.SubscriptionsFile),
			slog.Int("count", len(loader.List())),
		)
	}

	history, err := sqlite.NewRepository(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer history.Close(ctx)

	recorder, err := metrics.NewRecorder()
	if err != nil {
		return err
	}
	defer recorder.Shutdown(ctx)

	factory, err := webhook.NewFactory(webhook.NewCreationMode(cfg.CreationMode))
	if err != nil {
		return err
	}

	celEval, err := filter.NewCelEvaluator()
	if err != nil {
		return err
	}
	filters := filter.NewRegistry(celEval)

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

	dispatcher := notifier.New(service, factory, filters, sender,
		notifier.WithHistory(history),
		notifier.WithMetrics(recorder),
		notifier.WithWorkers(cfg.Workers),
		notifier.WithLogger(logger),
	)

	r := chi.Handlers(ctx, service, dispatcher, history, recorder.Handler())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return <-errShutdown
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
