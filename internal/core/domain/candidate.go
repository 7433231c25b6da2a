package domain

// ICECandidate is a trickled candidate in the RTCIceCandidateInit shape.
type ICECandidate struct {
	Candidate        string
	SDPMid           *string
	SDPMLineIndex    *uint16
	UsernameFragment *string
}

type MediaState string

const (
	MediaConnecting   MediaState = "connecting"
	MediaConnected    MediaState = "connected"
	MediaDisconnected MediaState = "disconnected"
	MediaFailed       MediaState = "failed"
	MediaClosed       MediaState = "closed"
)

// TrackStats counts what arrived on one remote track.
type TrackStats struct {
	Packets uint64 `json:"packets"`
	Bytes   uint64 `json:"bytes"`
	Lost    uint64 `json:"lost"`
}

type MediaStats struct {
	Audio   TrackStats `json:"audio"`
	Video   TrackStats `json:"video"`
	Camera  string     `json:"camera,omitempty"`
	Speaker bool       `json:"speaker"`
}
