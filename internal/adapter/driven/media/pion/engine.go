// Package pion implements the media negotiation engine on top of
// pion/webrtc: one PeerConnection per call, trickle ICE, offer/answer.
package pion

import (
	"context"
	"fmt"
	"time"

	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ICEServers []webrtc.ICEServer

	ICEDisconnectedTimeout time.Duration
	ICEFailedTimeout       time.Duration
	ICEKeepaliveInterval   time.Duration

	// VideoDevices are the camera ids SwitchCamera cycles through.
	VideoDevices []string
}

// Engine implements port.MediaEngine.
type Engine struct {
	api *webrtc.API
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{}
	if cfg.ICEDisconnectedTimeout > 0 && cfg.ICEFailedTimeout > 0 && cfg.ICEKeepaliveInterval > 0 {
		se.SetICETimeouts(cfg.ICEDisconnectedTimeout, cfg.ICEFailedTimeout, cfg.ICEKeepaliveInterval)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(se),
	)

	return &Engine{api: api, cfg: cfg}, nil
}

func (e *Engine) NewSession(ctx context.Context, cfg port.MediaSessionConfig, obs port.MediaObserver) (port.MediaSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pc, err := e.api.NewPeerConnection(webrtc.Configuration{ICEServers: e.cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	s := newSession(cfg, pc, obs, e.cfg.VideoDevices)
	if err := s.addLocalTracks(pc); err != nil {
		pc.Close()
		return nil, err
	}

	pc.OnICECandidate(s.onICECandidate)
	pc.OnICEConnectionStateChange(s.onICEState)
	pc.OnTrack(s.onTrack)

	log.Debug().Str("call_id", cfg.CallID.String()).Str("kind", string(cfg.Kind)).Msg("Media session created")
	return s, nil
}
