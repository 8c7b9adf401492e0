package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchSignalsCancelsAndLogs(t *testing.T) {
	var logs syncBuffer
	sigs := make(chan os.Signal, 1)
	ctx, stop := watchSignals(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)), sigs)
	defer stop()

	sigs <- syscall.SIGTERM
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after signal")
	}
	if !strings.Contains(logs.String(), "shutdown signal received") {
		t.Fatalf("expected shutdown log, got %q", logs.String())
	}
}

func TestWatchSignalsStopWithoutSignal(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	ctx, stop := watchSignals(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), sigs)
	stop()
	stop()
	if ctx.Err() == nil {
		t.Fatal("expected cancelled context after stop")
	}
}
