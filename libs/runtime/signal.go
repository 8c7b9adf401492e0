package runtime

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ShutdownContext is cancelled on SIGINT or SIGTERM. The signal that ended
// the process is logged so a drained booking request can be traced to it.
func ShutdownContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := watchSignals(context.Background(), logger, sigs)
	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}

func watchSignals(parent context.Context, logger *slog.Logger, sigs <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	var once sync.Once
	stop := func() { once.Do(cancel) }
	go func() {
		select {
		case sig := <-sigs:
			logger.Info("shutdown signal received", "signal", sig.String())
			stop()
		case <-ctx.Done():
		}
	}()
	return ctx, stop
}
