// Package main запускает ядро клиента платформы пожертвований.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gokhantonkal0/payda-sub000/internal/api"
	"github.com/gokhantonkal0/payda-sub000/internal/app"
	"github.com/gokhantonkal0/payda-sub000/internal/config"
	"github.com/gokhantonkal0/payda-sub000/internal/model"
	"github.com/gokhantonkal0/payda-sub000/internal/notify"
	"github.com/gokhantonkal0/payda-sub000/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	client := api.NewClient(cfg.APIAddress, cfg.RequestTimeout)
	store := session.NewStore(cfg.SessionFile, cfg.ThemeFile)
	notes := notify.NewCenter()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ждём доступности бэкенда с экспоненциальной паузой между попытками.
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(client.Ping(ctx))
	}); err != nil {
		sugar.Fatalw("backend unreachable", "addr", cfg.APIAddress, "error", err.Error())
	}

	a := app.New(logger, client, store, notes, cfg.PoolPollInterval, cfg.StatsPollInterval)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if identity := a.Bootstrap(ctx); identity != nil {
			sugar.Infow("session restored",
				"userID", identity.ID,
				"role", identity.Role,
				"balance", model.FormatAmount(identity.BalanceCents))
		} else {
			sugar.Infow("no persisted session, starting at role selection",
				"screen", a.Machine().Screen())
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down client core...")
		a.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
	sugar.Info("client core stopped gracefully")
}
