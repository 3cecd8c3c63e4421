package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// forceExit ends the process when a second shutdown signal arrives while
// the server is still draining.
func forceExit() {
	os.Exit(1)
}

// shutdownContext returns a context that cancels on the first SIGINT or
// SIGTERM so in-flight requests can drain. A second signal calls force.
func shutdownContext(parent context.Context, logger *slog.Logger, force func()) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, exiting without draining", slog.String("signal", sig.String()))
			force()
		case <-parent.Done():
		}
	}()

	return ctx
}
