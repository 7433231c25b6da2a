package pion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrOfferAlreadyCreated  = errors.New("offer already created for this negotiation round")
	ErrAnswerAlreadyCreated = errors.New("answer already created for this negotiation round")
	ErrNoRemoteOffer        = errors.New("cannot answer without a remote offer")
	ErrRemoteAlreadySet     = errors.New("remote description already set")
	ErrClosed               = errors.New("media session closed")
)

const keyframeInterval = 3 * time.Second

// peerConnection is the part of *webrtc.PeerConnection a session drives.
type peerConnection interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	WriteRTCP(pkts []rtcp.Packet) error
	Close() error
}

type trackAdder interface {
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
}

type trackSender interface {
	ReplaceTrack(track webrtc.TrackLocal) error
}

type localTrack struct {
	track   webrtc.TrackLocal
	sender  trackSender
	enabled bool
}

// setEnabled swaps the sender's track for nil and back, which stops and
// resumes sending without a new offer/answer.
func (t *localTrack) setEnabled(on bool) error {
	if t == nil || t.enabled == on {
		return nil
	}
	var next webrtc.TrackLocal
	if on {
		next = t.track
	}
	if err := t.sender.ReplaceTrack(next); err != nil {
		return err
	}
	t.enabled = on
	return nil
}

type trackCounter struct {
	stats   domain.TrackStats
	lastSeq uint16
	started bool
}

func (c *trackCounter) record(pkt *rtp.Packet) {
	if c.started {
		if gap := pkt.SequenceNumber - c.lastSeq - 1; gap > 0 && gap < 0x8000 {
			c.stats.Lost += uint64(gap)
		}
	}
	c.started = true
	c.lastSeq = pkt.SequenceNumber
	c.stats.Packets++
	c.stats.Bytes += uint64(len(pkt.Payload))
}

// Session implements port.MediaSession for one call.
type Session struct {
	callID domain.CallID
	kind   domain.MediaKind
	pc     peerConnection
	obs    port.MediaObserver
	log    zerolog.Logger

	mu        sync.Mutex
	offered   bool
	answered  bool
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	closed    bool
	done      chan struct{}

	audio   *localTrack
	video   *localTrack
	devices []string
	camera  int
	speaker bool

	statsMu sync.Mutex
	audioIn trackCounter
	videoIn trackCounter
}

func newSession(cfg port.MediaSessionConfig, pc peerConnection, obs port.MediaObserver, devices []string) *Session {
	return &Session{
		callID:  cfg.CallID,
		kind:    cfg.Kind,
		pc:      pc,
		obs:     obs,
		log:     log.With().Str("call_id", cfg.CallID.String()).Logger(),
		done:    make(chan struct{}),
		devices: devices,
		speaker: cfg.Kind == domain.Video,
	}
}

func (s *Session) addLocalTracks(pc trackAdder) error {
	stream := "yacall-" + s.callID.String()

	audio, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", stream)
	if err != nil {
		return fmt.Errorf("audio track: %w", err)
	}
	sender, err := pc.AddTrack(audio)
	if err != nil {
		return fmt.Errorf("add audio track: %w", err)
	}
	go drainRTCP(sender)
	s.audio = &localTrack{track: audio, sender: sender, enabled: true}

	if s.kind != domain.Video {
		return nil
	}

	video, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", stream)
	if err != nil {
		return fmt.Errorf("video track: %w", err)
	}
	sender, err = pc.AddTrack(video)
	if err != nil {
		return fmt.Errorf("add video track: %w", err)
	}
	go drainRTCP(sender)
	s.video = &localTrack{track: video, sender: sender, enabled: true}
	return nil
}

// drainRTCP keeps the sender's interceptors fed; pion needs the reads.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if s.offered || s.answered {
		return "", ErrOfferAlreadyCreated
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local offer: %w", err)
	}
	s.offered = true
	return offer.SDP, nil
}

func (s *Session) CreateAnswer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if s.answered {
		return "", ErrAnswerAlreadyCreated
	}
	if !s.remoteSet || s.offered {
		return "", ErrNoRemoteOffer
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local answer: %w", err)
	}
	s.answered = true
	return answer.SDP, nil
}

// SetRemoteDescription applies the peer's offer, or its answer when this
// session made the offer, then applies queued candidates in arrival order.
func (s *Session) SetRemoteDescription(ctx context.Context, raw string) error {
	if _, err := ParseSDP(raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.remoteSet {
		return ErrRemoteAlreadySet
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	typ := webrtc.SDPTypeOffer
	if s.offered {
		typ = webrtc.SDPTypeAnswer
	}
	if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: raw}); err != nil {
		return fmt.Errorf("set remote %s: %w", typ, err)
	}
	s.remoteSet = true

	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			s.log.Warn().Err(err).Str("candidate", c.Candidate).Msg("Queued remote candidate rejected")
		}
	}
	if len(pending) > 0 {
		s.log.Debug().Int("count", len(pending)).Msg("Applied queued remote candidates")
	}
	return nil
}

func (s *Session) AddRemoteCandidate(c domain.ICECandidate) error {
	init := webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.remoteSet {
		s.pending = append(s.pending, init)
		return nil
	}
	if err := s.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add remote candidate: %w", err)
	}
	return nil
}

func (s *Session) SetLocalMediaEnabled(audio, video *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if audio != nil {
		if err := s.audio.setEnabled(*audio); err != nil {
			s.log.Warn().Err(err).Bool("enabled", *audio).Msg("Toggle audio failed")
		}
	}
	if video != nil {
		if err := s.video.setEnabled(*video); err != nil {
			s.log.Warn().Err(err).Bool("enabled", *video).Msg("Toggle video failed")
		}
	}
}

// SwitchCamera moves to the next configured camera. It only tracks which
// device id is selected; no capture source is opened or swapped, and the
// outgoing video track is unchanged. Without a second camera it does
// nothing.
func (s *Session) SwitchCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.video == nil || len(s.devices) < 2 {
		s.log.Debug().Int("devices", len(s.devices)).Msg("No camera to switch to")
		return
	}
	s.camera = (s.camera + 1) % len(s.devices)
	s.log.Info().Str("device", s.devices[s.camera]).Msg("Camera switched")
}

func (s *Session) SetSpeaker(on bool) {
	s.mu.Lock()
	s.speaker = on
	s.mu.Unlock()
}

func (s *Session) Stats() domain.MediaStats {
	s.mu.Lock()
	var camera string
	if s.video != nil && len(s.devices) > 0 {
		camera = s.devices[s.camera]
	}
	speaker := s.speaker
	s.mu.Unlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return domain.MediaStats{
		Audio:   s.audioIn.stats,
		Video:   s.videoIn.stats,
		Camera:  camera,
		Speaker: speaker,
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	return s.pc.Close()
}

func (s *Session) onICECandidate(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	init := c.ToJSON()
	s.obs.OnLocalCandidate(domain.ICECandidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	})
}

func (s *Session) onICEState(state webrtc.ICEConnectionState) {
	s.log.Debug().Str("ice_state", state.String()).Msg("ICE state changed")

	var ms domain.MediaState
	switch state {
	case webrtc.ICEConnectionStateChecking:
		ms = domain.MediaConnecting
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		ms = domain.MediaConnected
	case webrtc.ICEConnectionStateDisconnected:
		ms = domain.MediaDisconnected
	case webrtc.ICEConnectionStateFailed:
		ms = domain.MediaFailed
	case webrtc.ICEConnectionStateClosed:
		ms = domain.MediaClosed
	default:
		return
	}
	s.obs.OnConnectionState(ms)
}

func (s *Session) onTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	kind := domain.Audio
	if track.Kind() == webrtc.RTPCodecTypeVideo {
		kind = domain.Video
		go s.requestKeyframes(uint32(track.SSRC()))
	}
	s.log.Debug().Str("kind", string(kind)).Str("codec", track.Codec().MimeType).Msg("Remote track started")

	go func() {
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				return
			}
			s.record(kind, pkt)
		}
	}()
}

func (s *Session) record(kind domain.MediaKind, pkt *rtp.Packet) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if kind == domain.Video {
		s.videoIn.record(pkt)
		return
	}
	s.audioIn.record(pkt)
}

// requestKeyframes sends a PLI right away and then periodically so the
// remote encoder refreshes the picture after losses.
func (s *Session) requestKeyframes(ssrc uint32) {
	send := func() {
		if err := s.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: ssrc}}); err != nil {
			s.log.Debug().Err(err).Msg("PLI not sent")
		}
	}
	send()

	ticker := time.NewTicker(keyframeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			send()
		}
	}
}
