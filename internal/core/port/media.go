package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

// MediaObserver receives media engine reports. Calls arrive on engine
// goroutines.
type MediaObserver interface {
	OnLocalCandidate(c domain.ICECandidate)
	OnConnectionState(s domain.MediaState)
}

type MediaSessionConfig struct {
	CallID domain.CallID
	Kind   domain.MediaKind
}

type MediaEngine interface {
	NewSession(ctx context.Context, cfg MediaSessionConfig, obs MediaObserver) (MediaSession, error)
}

// MediaSession negotiates one peer-to-peer media path.
type MediaSession interface {
	CreateOffer(ctx context.Context) (string, error)
	CreateAnswer(ctx context.Context) (string, error)
	SetRemoteDescription(ctx context.Context, sdp string) error
	// AddRemoteCandidate queues c until a remote description is set.
	AddRemoteCandidate(c domain.ICECandidate) error
	// SetLocalMediaEnabled toggles outgoing tracks; nil leaves a track as is.
	SetLocalMediaEnabled(audio, video *bool)
	SwitchCamera()
	SetSpeaker(on bool)
	Stats() domain.MediaStats
	Close() error
}
