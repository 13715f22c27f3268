// liftd-syncd is the reference sync server: the pull/push wire contract over
// an in-memory dataset, for development and self-hosted single-user setups.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avery/liftd/internal/syncserver"
)

func main() {
	addr := flag.String("addr", ":8484", "listen address")
	apiKey := flag.String("api-key", os.Getenv("LIFTD_SYNCD_KEY"), "required Bearer token (empty disables auth)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	srv := syncserver.NewServer(syncserver.Config{ListenAddr: *addr, APIKey: *apiKey})
	if err := srv.Start(); err != nil {
		slog.Error("start server", "err", err)
		os.Exit(1)
	}
	slog.Info("liftd-syncd listening", "addr", *addr, "auth", *apiKey != "")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}
