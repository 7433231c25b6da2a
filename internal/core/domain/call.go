package domain

import (
	"time"
)

type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

type MediaKind string

const (
	Audio MediaKind = "audio"
	Video MediaKind = "video"
)

// ParseMediaKind maps a wire callType to a MediaKind. An empty value means audio.
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case "", Audio:
		return Audio, nil
	case Video:
		return Video, nil
	default:
		return "", ErrUnknownMediaKind
	}
}

type CallState string

const (
	StateIdle       CallState = "idle"
	StateOutgoing   CallState = "outgoing"
	StateIncoming   CallState = "incoming"
	StateConnecting CallState = "connecting"
	StateActive     CallState = "active"
	StateEnded      CallState = "ended"
)

// IsRinging reports whether the call is waiting for an answer.
func (s CallState) IsRinging() bool {
	return s == StateOutgoing || s == StateIncoming
}

// EndReason is the short human readable reason shown when a call ends.
type EndReason string

const (
	ReasonNone             EndReason = ""
	ReasonEnded            EndReason = "Call ended"
	ReasonNoAnswer         EndReason = "No answer"
	ReasonConnectionFailed EndReason = "Connection failed"
	ReasonBusy             EndReason = "User busy"
	ReasonRejected         EndReason = "Call rejected"
)

// CallSession is the state of the single call the manager owns.
// It is not safe for concurrent use; the call manager serializes access.
type CallSession struct {
	ID        CallID
	Direction Direction
	Kind      MediaKind
	PeerID    UserID
	PeerName  string
	State     CallState

	AudioEnabled  bool
	VideoEnabled  bool
	Held          bool
	Speaker       bool
	RemoteRinging bool

	LocalSDP  string
	RemoteSDP string

	// Candidates from the peer that arrived before a media session with a
	// remote description existed. Replayed in arrival order.
	PendingRemoteCandidates []ICECandidate
	// Candidates gathered locally before our own SDP was sent.
	PendingLocalCandidates []ICECandidate

	EndReason   EndReason
	CreatedAt   time.Time
	ConnectedAt time.Time
}

func NewOutgoingSession(peer UserID, kind MediaKind, now time.Time) *CallSession {
	return &CallSession{
		ID:           NewCallID(),
		Direction:    Outgoing,
		Kind:         kind,
		PeerID:       peer,
		State:        StateIdle,
		AudioEnabled: true,
		VideoEnabled: kind == Video,
		Speaker:      kind == Video,
		CreatedAt:    now,
	}
}

func NewIncomingSession(id CallID, caller UserID, kind MediaKind, offer string, now time.Time) *CallSession {
	return &CallSession{
		ID:           id,
		Direction:    Incoming,
		Kind:         kind,
		PeerID:       caller,
		State:        StateIdle,
		AudioEnabled: true,
		VideoEnabled: kind == Video,
		Speaker:      kind == Video,
		RemoteSDP:    offer,
		CreatedAt:    now,
	}
}

func (s *CallSession) SetLocalSDP(sdp string) error {
	if s.LocalSDP != "" {
		return ErrSDPAlreadySet
	}
	s.LocalSDP = sdp
	return nil
}

func (s *CallSession) SetRemoteSDP(sdp string) error {
	if s.RemoteSDP != "" {
		return ErrSDPAlreadySet
	}
	s.RemoteSDP = sdp
	return nil
}

func (s *CallSession) QueueRemoteCandidate(c ICECandidate) {
	s.PendingRemoteCandidates = append(s.PendingRemoteCandidates, c)
}

// DrainRemoteCandidates returns the queued candidates in arrival order and
// empties the queue.
func (s *CallSession) DrainRemoteCandidates() []ICECandidate {
	out := s.PendingRemoteCandidates
	s.PendingRemoteCandidates = nil
	return out
}

func (s *CallSession) QueueLocalCandidate(c ICECandidate) {
	s.PendingLocalCandidates = append(s.PendingLocalCandidates, c)
}

func (s *CallSession) DrainLocalCandidates() []ICECandidate {
	out := s.PendingLocalCandidates
	s.PendingLocalCandidates = nil
	return out
}

func (s *CallSession) View() CallView {
	return CallView{
		CallID:        s.ID,
		Direction:     s.Direction,
		Kind:          s.Kind,
		PeerID:        s.PeerID,
		PeerName:      s.PeerName,
		State:         s.State,
		AudioEnabled:  s.AudioEnabled,
		VideoEnabled:  s.VideoEnabled,
		Held:          s.Held,
		Speaker:       s.Speaker,
		RemoteRinging: s.RemoteRinging,
		Reason:        s.EndReason,
		ConnectedAt:   s.ConnectedAt,
	}
}

// CallView is the coarse, read-only picture of a call handed to the UI.
type CallView struct {
	CallID        CallID    `json:"callId,omitempty"`
	Direction     Direction `json:"direction,omitempty"`
	Kind          MediaKind `json:"kind,omitempty"`
	PeerID        UserID    `json:"peerId,omitempty"`
	PeerName      string    `json:"peerName,omitempty"`
	State         CallState `json:"state"`
	AudioEnabled  bool      `json:"audioEnabled"`
	VideoEnabled  bool      `json:"videoEnabled"`
	Held          bool      `json:"held"`
	Speaker       bool      `json:"speaker"`
	RemoteRinging bool      `json:"remoteRinging"`
	Reason        EndReason `json:"reason,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt,omitempty"`
}

func IdleView() CallView {
	return CallView{State: StateIdle}
}
