// Package main запускает заглушечный бэкенд платформы для локальной разработки.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gokhantonkal0/payda-sub000/internal/stub"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	addr := flag.String("a", "localhost:8080", "address and port for the stub backend")
	flag.Parse()

	backend := stub.NewServer(logger)

	// Немного данных, чтобы клиенту было с чем работать.
	backend.SeedUser(stub.User{Username: "demo-donor", Password: "demo", Role: "donor", BalanceCents: 50000})
	backend.SeedUser(stub.User{Username: "demo-merchant", Password: "demo", Role: "merchant", BalanceCents: 12050})
	backend.SeedNeed(stub.Need{Title: "okul çantası", TargetCents: 20000, CollectedCents: 16000})
	backend.SeedPool(stub.Pool{CouponTypeID: 1, TargetCents: 50000, PotentialCoupons: 5})

	server := &http.Server{
		Addr:    *addr,
		Handler: backend.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting stub backend", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down stub backend...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("stub backend terminated with error", "error", err)
	}
	sugar.Info("stub backend stopped gracefully")
}
