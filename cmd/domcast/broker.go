package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"domcast/broker"
	"domcast/config"
	"domcast/state"
)

// brokerCommand runs the Handoff Broker's HTTP surface (§4.5, §6.1), loopback
// bound by default per config.BrokerConfig.
func brokerCommand() *cli.Command {
	return &cli.Command{
		Name:         "broker",
		Usage:        "Runs the handoff broker HTTP surface (capture submission and import long-poll)",
		OnUsageError: usageErrorHandler,
		Action:       runBroker,
	}
}

func runBroker(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)
	bc := env.Cfg.Broker

	srv := broker.NewServer(
		string(bc.APIKey),
		int64(bc.MaxChunkBytes),
		time.Duration(bc.LongPollTimeoutSeconds)*time.Second,
		config.ComponentLogger(env.Log, config.ComponentBroker),
	)

	httpServer := &http.Server{
		Addr:    bc.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		env.Log.Info("broker listening", zap.String("addr", bc.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("broker shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("broker listen: %w", err)
		}
		return nil
	}
}
