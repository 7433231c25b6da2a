package pion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const audioSDP = "v=0\r\n" +
	"o=- 4215775240449105457 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:0\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n"

const videoSDP = audioSDP +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:1\r\n" +
	"a=rtpmap:96 VP8/90000\r\n"

type fakePC struct {
	mu         sync.Mutex
	remote     []webrtc.SessionDescription
	local      []webrtc.SessionDescription
	candidates []string
	rtcp       int
	closed     int
}

func (f *fakePC) CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: audioSDP}, nil
}

func (f *fakePC) CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: audioSDP}, nil
}

func (f *fakePC) SetLocalDescription(d webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = append(f.local, d)
	return nil
}

func (f *fakePC) SetRemoteDescription(d webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = append(f.remote, d)
	return nil
}

func (f *fakePC) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, c.Candidate)
	return nil
}

func (f *fakePC) WriteRTCP([]rtcp.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rtcp++
	return nil
}

func (f *fakePC) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeSender struct {
	tracks []webrtc.TrackLocal
}

func (f *fakeSender) ReplaceTrack(t webrtc.TrackLocal) error {
	f.tracks = append(f.tracks, t)
	return nil
}

type recordingObserver struct {
	mu         sync.Mutex
	candidates []domain.ICECandidate
	states     []domain.MediaState
}

func (o *recordingObserver) OnLocalCandidate(c domain.ICECandidate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.candidates = append(o.candidates, c)
}

func (o *recordingObserver) OnConnectionState(s domain.MediaState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) candidateCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.candidates)
}

func newFakeSession(kind domain.MediaKind) (*Session, *fakePC, *recordingObserver) {
	pc := &fakePC{}
	obs := &recordingObserver{}
	s := newSession(port.MediaSessionConfig{CallID: "c1", Kind: kind}, pc, obs, []string{"front", "back"})
	return s, pc, obs
}

func candidate(s string) domain.ICECandidate {
	return domain.ICECandidate{Candidate: s}
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	s, pc, _ := newFakeSession(domain.Audio)
	ctx := context.Background()

	require.NoError(t, s.AddRemoteCandidate(candidate("a")))
	require.NoError(t, s.AddRemoteCandidate(candidate("b")))
	assert.Empty(t, pc.candidates)

	require.NoError(t, s.SetRemoteDescription(ctx, audioSDP))
	assert.Equal(t, []string{"a", "b"}, pc.candidates)

	require.NoError(t, s.AddRemoteCandidate(candidate("c")))
	assert.Equal(t, []string{"a", "b", "c"}, pc.candidates)
}

func TestRemoteDescriptionTypeFollowsRole(t *testing.T) {
	ctx := context.Background()

	callee, pc, _ := newFakeSession(domain.Audio)
	require.NoError(t, callee.SetRemoteDescription(ctx, audioSDP))
	assert.Equal(t, webrtc.SDPTypeOffer, pc.remote[0].Type)

	caller, pc, _ := newFakeSession(domain.Audio)
	_, err := caller.CreateOffer(ctx)
	require.NoError(t, err)
	require.NoError(t, caller.SetRemoteDescription(ctx, audioSDP))
	assert.Equal(t, webrtc.SDPTypeAnswer, pc.remote[0].Type)
}

func TestOfferAnswerOncePerRound(t *testing.T) {
	ctx := context.Background()

	caller, _, _ := newFakeSession(domain.Audio)
	_, err := caller.CreateOffer(ctx)
	require.NoError(t, err)
	_, err = caller.CreateOffer(ctx)
	assert.ErrorIs(t, err, ErrOfferAlreadyCreated)
	_, err = caller.CreateAnswer(ctx)
	assert.ErrorIs(t, err, ErrNoRemoteOffer)

	callee, _, _ := newFakeSession(domain.Audio)
	_, err = callee.CreateAnswer(ctx)
	assert.ErrorIs(t, err, ErrNoRemoteOffer)
	require.NoError(t, callee.SetRemoteDescription(ctx, audioSDP))
	assert.ErrorIs(t, callee.SetRemoteDescription(ctx, audioSDP), ErrRemoteAlreadySet)
	_, err = callee.CreateAnswer(ctx)
	require.NoError(t, err)
	_, err = callee.CreateAnswer(ctx)
	assert.ErrorIs(t, err, ErrAnswerAlreadyCreated)
}

func TestInvalidRemoteDescription(t *testing.T) {
	s, pc, _ := newFakeSession(domain.Audio)
	err := s.SetRemoteDescription(context.Background(), "not an sdp")
	assert.ErrorIs(t, err, ErrInvalidSDP)
	assert.Empty(t, pc.remote)

	// A rejected description leaves the session able to take a valid one.
	require.NoError(t, s.SetRemoteDescription(context.Background(), audioSDP))
}

func TestCloseIsIdempotent(t *testing.T) {
	s, pc, _ := newFakeSession(domain.Audio)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, pc.closed)

	_, err := s.CreateOffer(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.AddRemoteCandidate(candidate("a")), ErrClosed)
}

func TestSetLocalMediaEnabled(t *testing.T) {
	s, _, _ := newFakeSession(domain.Video)
	audio, video := &fakeSender{}, &fakeSender{}
	s.audio = &localTrack{track: &webrtc.TrackLocalStaticSample{}, sender: audio, enabled: true}
	s.video = &localTrack{track: &webrtc.TrackLocalStaticSample{}, sender: video, enabled: true}

	off, on := false, true
	s.SetLocalMediaEnabled(&off, nil)
	require.Len(t, audio.tracks, 1)
	assert.Nil(t, audio.tracks[0])
	assert.Empty(t, video.tracks)

	// Same value again is a no-op.
	s.SetLocalMediaEnabled(&off, nil)
	assert.Len(t, audio.tracks, 1)

	s.SetLocalMediaEnabled(&on, &off)
	require.Len(t, audio.tracks, 2)
	assert.Equal(t, s.audio.track, audio.tracks[1])
	require.Len(t, video.tracks, 1)
	assert.Nil(t, video.tracks[0])
}

func TestAudioSessionIgnoresVideoToggle(t *testing.T) {
	s, _, _ := newFakeSession(domain.Audio)
	off := false
	assert.NotPanics(t, func() { s.SetLocalMediaEnabled(nil, &off) })
}

func TestSwitchCameraCyclesDevices(t *testing.T) {
	s, _, _ := newFakeSession(domain.Video)
	s.video = &localTrack{sender: &fakeSender{}, enabled: true}

	assert.Equal(t, "front", s.Stats().Camera)
	s.SwitchCamera()
	assert.Equal(t, "back", s.Stats().Camera)
	s.SwitchCamera()
	assert.Equal(t, "front", s.Stats().Camera)
}

func TestSpeakerDefaultsFollowKind(t *testing.T) {
	audio, _, _ := newFakeSession(domain.Audio)
	assert.False(t, audio.Stats().Speaker)
	audio.SetSpeaker(true)
	assert.True(t, audio.Stats().Speaker)

	video, _, _ := newFakeSession(domain.Video)
	assert.True(t, video.Stats().Speaker)
}

func TestICEStateMapping(t *testing.T) {
	s, _, obs := newFakeSession(domain.Audio)
	for _, st := range []webrtc.ICEConnectionState{
		webrtc.ICEConnectionStateNew,
		webrtc.ICEConnectionStateChecking,
		webrtc.ICEConnectionStateConnected,
		webrtc.ICEConnectionStateCompleted,
		webrtc.ICEConnectionStateDisconnected,
		webrtc.ICEConnectionStateFailed,
		webrtc.ICEConnectionStateClosed,
	} {
		s.onICEState(st)
	}
	assert.Equal(t, []domain.MediaState{
		domain.MediaConnecting,
		domain.MediaConnected,
		domain.MediaConnected,
		domain.MediaDisconnected,
		domain.MediaFailed,
		domain.MediaClosed,
	}, obs.states)
}

func TestEndOfCandidatesNotForwarded(t *testing.T) {
	s, _, obs := newFakeSession(domain.Audio)
	s.onICECandidate(nil)
	assert.Zero(t, obs.candidateCount())
}

func TestTrackCounterCountsGaps(t *testing.T) {
	var c trackCounter
	for _, seq := range []uint16{65534, 65535, 2, 3} {
		c.record(&rtp.Packet{Header: rtp.Header{SequenceNumber: seq}, Payload: make([]byte, 10)})
	}
	assert.Equal(t, uint64(4), c.stats.Packets)
	assert.Equal(t, uint64(40), c.stats.Bytes)
	assert.Equal(t, uint64(2), c.stats.Lost)
}

func TestKeyframeRequestsStopOnClose(t *testing.T) {
	s, pc, _ := newFakeSession(domain.Video)
	done := make(chan struct{})
	go func() {
		s.requestKeyframes(1234)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pc.mu.Lock()
		defer pc.mu.Unlock()
		return pc.rtcp >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keyframe loop still running")
	}
}

func TestKindOf(t *testing.T) {
	kind, err := KindOf(audioSDP)
	require.NoError(t, err)
	assert.Equal(t, domain.Audio, kind)

	kind, err = KindOf(videoSDP)
	require.NoError(t, err)
	assert.Equal(t, domain.Video, kind)

	_, err = KindOf("v=0\r\n")
	assert.ErrorIs(t, err, ErrInvalidSDP)
}

func TestNegotiationBetweenEngines(t *testing.T) {
	engine, err := NewEngine(Config{})
	require.NoError(t, err)
	ctx := context.Background()

	callerObs, calleeObs := &recordingObserver{}, &recordingObserver{}
	caller, err := engine.NewSession(ctx, port.MediaSessionConfig{CallID: "c1", Kind: domain.Video}, callerObs)
	require.NoError(t, err)
	defer caller.Close()
	callee, err := engine.NewSession(ctx, port.MediaSessionConfig{CallID: "c1", Kind: domain.Video}, calleeObs)
	require.NoError(t, err)
	defer callee.Close()

	offer, err := caller.CreateOffer(ctx)
	require.NoError(t, err)
	kind, err := KindOf(offer)
	require.NoError(t, err)
	assert.Equal(t, domain.Video, kind)

	require.NoError(t, callee.SetRemoteDescription(ctx, offer))
	answer, err := callee.CreateAnswer(ctx)
	require.NoError(t, err)
	require.NoError(t, caller.SetRemoteDescription(ctx, answer))

	_, err = caller.CreateOffer(ctx)
	assert.ErrorIs(t, err, ErrOfferAlreadyCreated)
}
