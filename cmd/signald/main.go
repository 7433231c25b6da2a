// Command signald is the signaling relay the call agents connect to.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/yacall/internal/adapter/driving/relay"
	"github.com/Wyydra/yacall/internal/config"
	"github.com/Wyydra/yacall/internal/logging"
)

func main() {
	configPath := flag.String("config", "signald.json", "path to the config file")
	listen := flag.String("listen", "", "listen address, overrides relay.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	l := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		l.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if *listen != "" {
		cfg.Relay.Addr = *listen
	}

	hub := relay.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.Relay.Addr,
		Handler: relay.NewRouter(hub, cfg.Relay.Namespace),
	}

	go func() {
		l.Info().Str("addr", cfg.Relay.Addr).Str("namespace", cfg.Relay.Namespace).Msg("Starting signaling relay")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Stop()
	l.Info().Msg("Server exited")
}
