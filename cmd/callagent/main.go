// Command callagent runs the call subsystem of one user: the signaling
// client, the WebRTC media engine and the call manager, with a local
// control API for the app's call screens.
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

	"github.com/Wyydra/yacall/internal/adapter/driven/directory/rest"
	"github.com/Wyydra/yacall/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/yacall/internal/adapter/driven/media/pion"
	"github.com/Wyydra/yacall/internal/adapter/driven/telephony"
	handler "github.com/Wyydra/yacall/internal/adapter/driving/http"
	"github.com/Wyydra/yacall/internal/config"
	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/service"
	"github.com/Wyydra/yacall/internal/logging"
	"github.com/Wyydra/yacall/internal/metrics"
	"github.com/pion/webrtc/v4"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "callagent.json", "path to the config file")
	listen := flag.String("listen", "", "control API address, overrides http.addr")
	user := flag.String("user", "", "user id, overrides identity.user_id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	l := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		l.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if *listen != "" {
		cfg.HTTP.Addr = *listen
	}
	if *user != "" {
		cfg.Identity.UserID = *user
	}
	if cfg.Identity.UserID == "" {
		l.Fatal().Msg("identity.user_id is required")
	}

	m := metrics.New()

	transport := ws.NewClient(ws.Config{
		URL:          cfg.Signaling.URL,
		Namespace:    cfg.Signaling.Namespace,
		MinBackoff:   cfg.Signaling.MinBackoff(),
		MaxBackoff:   cfg.Signaling.MaxBackoff(),
		PingInterval: cfg.Signaling.PingInterval(),
		PongWait:     cfg.Signaling.PongWait(),
		Metrics:      m,
	})

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.Media.ICEServers))
	for _, s := range cfg.Media.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	engine, err := pion.NewEngine(pion.Config{
		ICEServers:             iceServers,
		ICEDisconnectedTimeout: cfg.Media.ICEDisconnected(),
		ICEFailedTimeout:       cfg.Media.ICEFailed(),
		ICEKeepaliveInterval:   cfg.Media.ICEKeepalive(),
		VideoDevices:           cfg.Media.VideoDevices,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to create media engine")
	}

	hub := handler.NewHub()
	deps := service.Deps{
		Transport: transport,
		Media:     engine,
		Observer:  hub,
	}

	var bridge *telephony.Bridge
	if cfg.Telephony.Native {
		bridge = telephony.NewBridge()
		deps.Telephony = bridge
	}

	if cfg.Directory.URL != "" {
		dir, err := rest.NewClient(rest.Config{
			BaseURL:   cfg.Directory.URL,
			Token:     cfg.Directory.Token,
			CacheSize: cfg.Directory.CacheSize,
			Timeout:   cfg.Directory.Timeout(),
		})
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to create directory client")
		}
		deps.Directory = dir
	}

	calls := service.NewCallManager(deps, service.Options{
		NoAnswerTimeout:    cfg.Call.NoAnswerTimeout(),
		NegotiationTimeout: cfg.Call.NegotiationTimeout(),
		Capabilities:       service.Capabilities{NativeTelephony: cfg.Telephony.Native},
		Metrics:            m,
	})

	h := handler.NewHandler(calls, hub, bridge, m, transport.Connected)
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: h.NewRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return calls.Run(ctx)
	})

	status, unwatch := transport.WatchStatus()
	g.Go(func() error {
		m.TrackSignaling(ctx, status)
		return nil
	})

	g.Go(func() error {
		l.Info().Str("addr", cfg.HTTP.Addr).Msg("Starting control API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		l.Info().Msg("Shutting down call agent...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Control API forced to shutdown")
		}
		return nil
	})

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Signaling.MaxBackoff())
	if err := transport.Connect(connectCtx, domain.UserID(cfg.Identity.UserID)); err != nil {
		l.Error().Err(err).Msg("Failed to start signaling")
		stop()
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Msg("Call agent stopped with error")
	}

	unwatch()
	transport.Disconnect()
	hub.Stop()
	l.Info().Msg("Call agent exited")
}
