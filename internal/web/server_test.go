package web

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/slidegate-dev/slidegate/internal/config"
	"github.com/slidegate-dev/slidegate/pkg/convert"
	"github.com/slidegate-dev/slidegate/pkg/upload"
)

func newRunServer(t *testing.T, addr string) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Address = addr
	cfg.BackendURL = "http://127.0.0.1:1"
	cfg.Spool.Dir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	store, err := upload.NewDiskStore(cfg.Spool.Dir, cfg.MaxUploadBytes())
	if err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, log, store, convert.NewClient(convert.Config{BackendURL: cfg.BackendURL}))
}

func TestRunReportsBindFailure(t *testing.T) {
	// Occupy an address so ListenAndServe fails immediately.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := newRunServer(t, ln.Addr().String())

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run returned nil for an occupied address")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after the listener failed to start")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newRunServer(t, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// Give the listener a moment to come up, then ask for shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on graceful shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after the context was canceled")
	}
}
