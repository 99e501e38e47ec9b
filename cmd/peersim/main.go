// peersim runs a local mesh controller stand-in for developing against meshlink.
// Usage: go run ./cmd/peersim --addr :8080 --path /websocket
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/meshlink/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	path := flag.String("path", "/websocket", "websocket endpoint path")
	loggedIn := flag.Bool("logged-in", true, "answer auth_status with true")
	interval := flag.Duration("interval", 10*time.Second, "node-current push interval (0 disables)")
	verbose := flag.Bool("verbose", false, "log every received frame")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	if envLevel, ok := logging.ParseLevel(os.Getenv(logging.EnvLogLevel)); ok {
		level = envLevel
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle(*path, NewPeer(*loggedIn, *interval, logger))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("peer listening", "addr", *addr, "path", *path)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("peer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("peer stopped")
}
