package service

import (
	"context"
	"errors"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/Wyydra/yacall/internal/metrics"
	"github.com/benbjohnson/clock"
	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("call manager stopped")

const (
	DefaultNoAnswerTimeout    = 30 * time.Second
	DefaultNegotiationTimeout = 15 * time.Second

	inboxSize     = 64
	reportTimeout = 5 * time.Second
	lookupTimeout = 3 * time.Second
)

// State machine events.
const (
	eventDial    = "dial"
	eventRing    = "ring"
	eventAnswer  = "answer"
	eventConnect = "connect"
	eventEnd     = "end"
	eventReset   = "reset"
)

// Capabilities are resolved once at startup.
type Capabilities struct {
	// NativeTelephony mirrors calls into the OS call UI. When false the
	// in-app observer is the only call UI.
	NativeTelephony bool
}

type Deps struct {
	Transport port.SignalingTransport
	Media     port.MediaEngine
	Telephony port.Telephony
	Directory port.Directory
	Observer  port.CallObserver
}

type Options struct {
	Clock              clock.Clock
	NoAnswerTimeout    time.Duration
	NegotiationTimeout time.Duration
	Capabilities       Capabilities
	Metrics            *metrics.Metrics
}

// CallManager owns the single call session. All state lives on the
// goroutine running Run; transport handlers, media reports, telephony
// actions, timers and public commands are posted to its inbox.
type CallManager struct {
	transport port.SignalingTransport
	engine    port.MediaEngine
	telephony port.Telephony
	directory port.Directory
	observer  port.CallObserver

	clock   clock.Clock
	opts    Options
	metrics *metrics.Metrics

	inbox   chan func()
	stopped chan struct{}
	ctx     context.Context

	machine *fsm.FSM
	session *domain.CallSession
	media   port.MediaSession
	timer   pendingTimeout
	reports *reportQueue
}

func NewCallManager(deps Deps, opts Options) *CallManager {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.NoAnswerTimeout <= 0 {
		opts.NoAnswerTimeout = DefaultNoAnswerTimeout
	}
	if opts.NegotiationTimeout <= 0 {
		opts.NegotiationTimeout = DefaultNegotiationTimeout
	}

	m := &CallManager{
		transport: deps.Transport,
		engine:    deps.Media,
		telephony: deps.Telephony,
		directory: deps.Directory,
		observer:  deps.Observer,
		clock:     opts.Clock,
		opts:      opts,
		metrics:   opts.Metrics,
		inbox:     make(chan func(), inboxSize),
		stopped:   make(chan struct{}),
		ctx:       context.Background(),
		reports:   newReportQueue(),
	}

	idle := string(domain.StateIdle)
	outgoing := string(domain.StateOutgoing)
	incoming := string(domain.StateIncoming)
	connecting := string(domain.StateConnecting)
	active := string(domain.StateActive)
	ended := string(domain.StateEnded)

	m.machine = fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: eventDial, Src: []string{idle}, Dst: outgoing},
			{Name: eventRing, Src: []string{idle}, Dst: incoming},
			{Name: eventAnswer, Src: []string{outgoing, incoming}, Dst: connecting},
			{Name: eventConnect, Src: []string{connecting}, Dst: active},
			{Name: eventEnd, Src: []string{outgoing, incoming, connecting, active}, Dst: ended},
			{Name: eventReset, Src: []string{ended}, Dst: idle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.onEnterState(e)
			},
		},
	)

	for _, name := range domain.InboundEvents {
		if !m.transport.On(name, m.onSignal) {
			log.Warn().Str("event", string(name)).Msg("Signaling handler already registered")
		}
	}

	return m
}

// Run processes the inbox until ctx is canceled. A call still in progress
// is ended on the way out.
func (m *CallManager) Run(ctx context.Context) error {
	m.ctx = ctx
	defer close(m.stopped)
	go m.reports.run(m.stopped)

	var actions <-chan domain.TelephonyAction
	if m.telephonyEnabled() {
		actions = m.telephony.Actions()
	}

	log.Info().Bool("native_telephony", m.telephonyEnabled()).Msg("Call manager started")
	for {
		select {
		case <-ctx.Done():
			if m.session != nil {
				m.hangUp()
			}
			log.Info().Msg("Call manager stopped")
			return nil

		case fn := <-m.inbox:
			fn()

		case a, ok := <-actions:
			if !ok {
				actions = nil
				continue
			}
			m.handleAction(a)
		}
	}
}

// StartCall places an outgoing call to peer. It returns once the call is
// ringing; the offer is created and sent in the background.
func (m *CallManager) StartCall(ctx context.Context, peer domain.UserID, kind domain.MediaKind) (domain.CallID, error) {
	if peer == "" {
		return "", domain.ErrInvalidPeer
	}
	kind, err := domain.ParseMediaKind(string(kind))
	if err != nil {
		return "", err
	}

	var id domain.CallID
	err = m.do(ctx, func() error {
		if m.session != nil {
			return domain.ErrCallInProgress
		}
		if !m.transport.Connected() {
			return domain.ErrTransportDisconnected
		}

		s := domain.NewOutgoingSession(peer, kind, m.clock.Now())
		m.session = s
		id = s.ID
		m.metrics.CallStarted(domain.Outgoing)
		log.Info().Str("call_id", s.ID.String()).Str("peer_id", peer.String()).Str("kind", string(kind)).Msg("Starting call")

		m.fire(eventDial)
		m.armNoAnswer()
		m.lookupPeer(s)
		if m.telephonyEnabled() {
			call := m.telephonyCall(s)
			m.report("outgoing", func(ctx context.Context) error { return m.telephony.ReportOutgoing(ctx, call) })
		}
		m.negotiateOffer(s)
		return nil
	})
	return id, err
}

// Answer accepts the ringing incoming call.
func (m *CallManager) Answer(ctx context.Context) error {
	return m.do(ctx, m.answer)
}

// Reject declines the ringing incoming call. Without a call it does nothing.
func (m *CallManager) Reject(ctx context.Context) error {
	return m.do(ctx, func() error {
		if m.session == nil {
			return nil
		}
		if m.session.State != domain.StateIncoming {
			return domain.ErrInvalidState
		}
		m.hangUp()
		return nil
	})
}

// End hangs up. Ending a ringing incoming call rejects it. Without a call
// it does nothing, so racing a remote hangup is harmless.
func (m *CallManager) End(ctx context.Context) error {
	return m.do(ctx, func() error {
		if m.session != nil {
			m.hangUp()
		}
		return nil
	})
}

func (m *CallManager) SetMuted(ctx context.Context, muted bool) error {
	return m.do(ctx, func() error { return m.setMuted(muted) })
}

func (m *CallManager) SetVideoEnabled(ctx context.Context, on bool) error {
	return m.do(ctx, func() error {
		s := m.session
		if s == nil {
			return domain.ErrNoActiveCall
		}
		if s.Kind != domain.Video {
			return domain.ErrInvalidState
		}
		s.VideoEnabled = on
		m.applyLocalMedia()
		m.notify()
		return nil
	})
}

// SetHeld pauses or resumes both outgoing tracks of a connected call.
func (m *CallManager) SetHeld(ctx context.Context, held bool) error {
	return m.do(ctx, func() error { return m.setHeld(held) })
}

func (m *CallManager) SwitchCamera(ctx context.Context) error {
	return m.do(ctx, func() error {
		s := m.session
		if s == nil {
			return domain.ErrNoActiveCall
		}
		if s.Kind != domain.Video {
			return domain.ErrInvalidState
		}
		if m.media != nil {
			m.media.SwitchCamera()
		}
		return nil
	})
}

func (m *CallManager) SetSpeaker(ctx context.Context, on bool) error {
	return m.do(ctx, func() error {
		s := m.session
		if s == nil {
			return domain.ErrNoActiveCall
		}
		s.Speaker = on
		if m.media != nil {
			m.media.SetSpeaker(on)
		}
		m.notify()
		return nil
	})
}

// Current returns the view of the call, or the idle view when there is none.
func (m *CallManager) Current(ctx context.Context) (domain.CallView, error) {
	view := domain.IdleView()
	err := m.do(ctx, func() error {
		if m.session != nil {
			view = m.session.View()
		}
		return nil
	})
	return view, err
}

// Stats returns receive counters of the media path.
func (m *CallManager) Stats(ctx context.Context) (domain.MediaStats, error) {
	var stats domain.MediaStats
	err := m.do(ctx, func() error {
		if m.media == nil {
			return domain.ErrNoActiveCall
		}
		stats = m.media.Stats()
		return nil
	})
	return stats, err
}

// do runs fn on the manager goroutine and waits for its result.
func (m *CallManager) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	select {
	case m.inbox <- func() { res <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrStopped
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrStopped
	}
}

func (m *CallManager) post(fn func()) {
	select {
	case m.inbox <- fn:
	case <-m.stopped:
	}
}

func (m *CallManager) telephonyEnabled() bool {
	return m.opts.Capabilities.NativeTelephony && m.telephony != nil
}

func (m *CallManager) fire(event string) {
	if err := m.machine.Event(context.Background(), event); err != nil {
		log.Error().Err(err).Str("event", event).Str("state", m.machine.Current()).Msg("Invalid call transition")
	}
}

func (m *CallManager) onEnterState(e *fsm.Event) {
	if m.session != nil {
		m.session.State = domain.CallState(e.Dst)
	}
	log.Debug().Str("from", e.Src).Str("to", e.Dst).Msg("Call state changed")
	m.notify()
}

func (m *CallManager) notify() {
	if m.observer == nil {
		return
	}
	if m.session == nil {
		m.observer.OnCallUpdate(domain.IdleView())
		return
	}
	m.observer.OnCallUpdate(m.session.View())
}

// current reports whether id refers to the live call. An empty id, as sent
// by servers that omit it, matches the live call.
func (m *CallManager) current(id domain.CallID) bool {
	return m.session != nil && (id == "" || id == m.session.ID)
}

func (m *CallManager) onSignal(ev domain.InboundEvent) {
	m.post(func() { m.handleSignal(ev) })
}

func (m *CallManager) handleSignal(ev domain.InboundEvent) {
	switch e := ev.(type) {
	case domain.IncomingCall:
		m.incoming(e)

	case domain.RemoteRinging:
		if m.current(e.CallID) && m.session.State == domain.StateOutgoing && !m.session.RemoteRinging {
			m.session.RemoteRinging = true
			m.notify()
		}

	case domain.RemoteAnswered:
		m.remoteAnswered(e)

	case domain.RemoteCandidate:
		if !m.current(e.CallID) {
			log.Debug().Str("call_id", e.CallID.String()).Msg("Dropping candidate for unknown call")
			return
		}
		m.addRemoteCandidate(e.Candidate)

	case domain.RemoteEnded:
		if m.current(e.CallID) {
			m.terminate(domain.ReasonEnded, false)
		}

	case domain.RemoteRejected:
		if m.current(e.CallID) {
			m.terminate(domain.ReasonRejected, false)
		}

	case domain.RemoteBusy:
		if m.current(e.CallID) {
			m.terminate(domain.ReasonBusy, false)
		}

	case domain.SignalingError:
		log.Warn().Str("message", e.Message).Msg("Signaling server reported an error")
		if m.session != nil {
			m.terminate(domain.ReasonConnectionFailed, false)
		}
	}
}

func (m *CallManager) incoming(e domain.IncomingCall) {
	if m.session != nil {
		if m.session.ID == e.CallID {
			log.Debug().Str("call_id", e.CallID.String()).Msg("Duplicate incoming call ignored")
			return
		}
		log.Info().Str("call_id", e.CallID.String()).Str("caller_id", e.CallerID.String()).Msg("Busy, declining incoming call")
		m.transport.Emit(domain.Busy{CallID: e.CallID})
		return
	}

	s := domain.NewIncomingSession(e.CallID, e.CallerID, e.Kind, e.SDP, m.clock.Now())
	m.session = s
	m.metrics.CallStarted(domain.Incoming)
	log.Info().Str("call_id", s.ID.String()).Str("caller_id", e.CallerID.String()).Str("kind", string(e.Kind)).Msg("Incoming call")

	m.fire(eventRing)
	m.armNoAnswer()
	m.lookupPeer(s)
	if m.telephonyEnabled() {
		call := m.telephonyCall(s)
		m.report("incoming", func(ctx context.Context) error { return m.telephony.ReportIncoming(ctx, call) })
	}
}

func (m *CallManager) remoteAnswered(e domain.RemoteAnswered) {
	if !m.current(e.CallID) || m.session.State != domain.StateOutgoing {
		return
	}
	s := m.session
	m.timer.cancel()

	if m.media == nil {
		log.Error().Str("call_id", s.ID.String()).Msg("Answer arrived before the offer was sent")
		m.terminate(domain.ReasonConnectionFailed, true)
		return
	}
	if err := s.SetRemoteSDP(e.SDP); err != nil {
		log.Warn().Err(err).Str("call_id", s.ID.String()).Msg("Ignoring second answer")
		return
	}
	m.fire(eventAnswer)

	id, ms, sdp := s.ID, m.media, e.SDP
	go func() {
		ctx, cancel := context.WithTimeout(m.ctx, m.opts.NegotiationTimeout)
		defer cancel()
		err := ms.SetRemoteDescription(ctx, sdp)
		m.post(func() { m.remoteApplied(id, err) })
	}()
}

func (m *CallManager) remoteApplied(id domain.CallID, err error) {
	if err == nil || !m.current(id) {
		return
	}
	log.Error().Err(err).Str("call_id", id.String()).Msg("Applying remote answer failed")
	m.terminate(domain.ReasonConnectionFailed, true)
}

func (m *CallManager) addRemoteCandidate(c domain.ICECandidate) {
	if m.media == nil {
		m.session.QueueRemoteCandidate(c)
		return
	}
	if err := m.media.AddRemoteCandidate(c); err != nil {
		log.Warn().Err(err).Str("call_id", m.session.ID.String()).Msg("Remote candidate rejected")
	}
}

func (m *CallManager) answer() error {
	s := m.session
	if s == nil {
		return domain.ErrNoActiveCall
	}
	if s.State != domain.StateIncoming {
		return domain.ErrInvalidState
	}
	m.timer.cancel()
	m.fire(eventAnswer)
	log.Info().Str("call_id", s.ID.String()).Msg("Answering call")

	id, kind, offer := s.ID, s.Kind, s.RemoteSDP
	obs := mediaObserver{m: m, callID: id}
	go func() {
		ctx, cancel := context.WithTimeout(m.ctx, m.opts.NegotiationTimeout)
		defer cancel()

		ms, err := m.engine.NewSession(ctx, port.MediaSessionConfig{CallID: id, Kind: kind}, obs)
		var sdp string
		if err == nil {
			err = ms.SetRemoteDescription(ctx, offer)
		}
		if err == nil {
			sdp, err = ms.CreateAnswer(ctx)
		}
		m.post(func() { m.answerReady(id, ms, sdp, err) })
	}()
	return nil
}

func (m *CallManager) answerReady(id domain.CallID, ms port.MediaSession, sdp string, err error) {
	if !m.adopt(id, ms, sdp, err, domain.StateConnecting) {
		return
	}
	m.transport.Emit(domain.Answer{CallID: id, SDP: sdp})
	m.flushLocalCandidates()
}

func (m *CallManager) negotiateOffer(s *domain.CallSession) {
	id, kind := s.ID, s.Kind
	obs := mediaObserver{m: m, callID: id}
	go func() {
		ctx, cancel := context.WithTimeout(m.ctx, m.opts.NegotiationTimeout)
		defer cancel()

		ms, err := m.engine.NewSession(ctx, port.MediaSessionConfig{CallID: id, Kind: kind}, obs)
		var sdp string
		if err == nil {
			sdp, err = ms.CreateOffer(ctx)
		}
		m.post(func() { m.offerReady(id, ms, sdp, err) })
	}()
}

func (m *CallManager) offerReady(id domain.CallID, ms port.MediaSession, sdp string, err error) {
	if !m.adopt(id, ms, sdp, err, domain.StateOutgoing) {
		return
	}
	s := m.session
	m.transport.Emit(domain.Offer{CallID: id, RecipientID: s.PeerID, Kind: s.Kind, SDP: sdp})
	m.flushLocalCandidates()
}

// adopt attaches the media session produced by an async negotiation step
// to the live call. Results for a call that is gone or has moved on are
// discarded and their media session closed.
func (m *CallManager) adopt(id domain.CallID, ms port.MediaSession, sdp string, err error, want domain.CallState) bool {
	if m.session == nil || m.session.ID != id || m.session.State != want || m.media != nil {
		if ms != nil {
			closeMedia(id, ms)
		}
		return false
	}
	s := m.session
	if err != nil {
		log.Error().Err(err).Str("call_id", id.String()).Msg("Negotiation failed")
		if ms != nil {
			closeMedia(id, ms)
		}
		m.terminate(domain.ReasonConnectionFailed, true)
		return false
	}
	if err := s.SetLocalSDP(sdp); err != nil {
		closeMedia(id, ms)
		m.terminate(domain.ReasonConnectionFailed, true)
		return false
	}

	m.media = ms
	m.applyLocalMedia()
	ms.SetSpeaker(s.Speaker)
	for _, c := range s.DrainRemoteCandidates() {
		if err := ms.AddRemoteCandidate(c); err != nil {
			log.Warn().Err(err).Str("call_id", id.String()).Msg("Queued remote candidate rejected")
		}
	}
	return true
}

func (m *CallManager) flushLocalCandidates() {
	s := m.session
	for _, c := range s.DrainLocalCandidates() {
		m.transport.Emit(domain.LocalCandidate{CallID: s.ID, Candidate: c})
	}
}

func (m *CallManager) localCandidate(id domain.CallID, c domain.ICECandidate) {
	if m.session == nil || m.session.ID != id {
		return
	}
	if m.session.LocalSDP == "" {
		m.session.QueueLocalCandidate(c)
		return
	}
	m.transport.Emit(domain.LocalCandidate{CallID: id, Candidate: c})
}

func (m *CallManager) mediaState(id domain.CallID, st domain.MediaState) {
	if m.session == nil || m.session.ID != id {
		return
	}
	s := m.session

	switch st {
	case domain.MediaConnected:
		m.timer.cancel()
		if s.State != domain.StateConnecting {
			return
		}
		s.ConnectedAt = m.clock.Now()
		log.Info().Str("call_id", id.String()).Msg("Call connected")
		m.fire(eventConnect)
		if m.telephonyEnabled() {
			m.report("answered", func(ctx context.Context) error { return m.telephony.ReportAnswered(ctx, id) })
		}

	case domain.MediaFailed, domain.MediaDisconnected:
		if s.State != domain.StateConnecting && s.State != domain.StateActive {
			return
		}
		log.Warn().Str("call_id", id.String()).Str("media_state", string(st)).Msg("Media path lost")
		m.terminate(domain.ReasonConnectionFailed, true)
	}
}

func (m *CallManager) armNoAnswer() {
	id := m.session.ID
	m.timer.start(m.clock, m.opts.NoAnswerTimeout, func(seq uint64) {
		m.post(func() { m.noAnswer(id, seq) })
	})
}

func (m *CallManager) noAnswer(id domain.CallID, seq uint64) {
	if !m.timer.claim(seq) {
		return
	}
	if m.session == nil || m.session.ID != id || !m.session.State.IsRinging() {
		return
	}
	log.Info().Str("call_id", id.String()).Dur("after", m.opts.NoAnswerTimeout).Msg("Call not answered")
	m.terminate(domain.ReasonNoAnswer, m.session.Direction == domain.Outgoing)
}

// hangUp ends the call on local request and tells the peer.
func (m *CallManager) hangUp() {
	s := m.session
	if s.State == domain.StateIncoming {
		m.transport.Emit(domain.Reject{CallID: s.ID})
		m.terminate(domain.ReasonRejected, false)
		return
	}
	m.terminate(domain.ReasonEnded, true)
}

// terminate moves the live call through Ended back to Idle in one step.
func (m *CallManager) terminate(reason domain.EndReason, sendEnd bool) {
	s := m.session
	if s == nil {
		return
	}
	m.timer.cancel()
	if sendEnd {
		m.transport.Emit(domain.End{CallID: s.ID})
	}
	if m.media != nil {
		closeMedia(s.ID, m.media)
		m.media = nil
	}

	s.EndReason = reason
	m.fire(eventEnd)
	m.metrics.CallEnded(reason)
	log.Info().Str("call_id", s.ID.String()).Str("reason", string(reason)).Msg("Call ended")

	if m.telephonyEnabled() {
		id := s.ID
		m.report("ended", func(ctx context.Context) error { return m.telephony.ReportEnded(ctx, id, reason) })
	}

	m.session = nil
	m.fire(eventReset)
}

func (m *CallManager) setMuted(muted bool) error {
	s := m.session
	if s == nil {
		return domain.ErrNoActiveCall
	}
	s.AudioEnabled = !muted
	m.applyLocalMedia()
	m.notify()
	return nil
}

func (m *CallManager) setHeld(held bool) error {
	s := m.session
	if s == nil {
		return domain.ErrNoActiveCall
	}
	if s.State != domain.StateConnecting && s.State != domain.StateActive {
		return domain.ErrInvalidState
	}
	s.Held = held
	m.applyLocalMedia()
	m.notify()
	return nil
}

func (m *CallManager) applyLocalMedia() {
	if m.media == nil {
		return
	}
	s := m.session
	audio := s.AudioEnabled && !s.Held
	video := s.Kind == domain.Video && s.VideoEnabled && !s.Held
	m.media.SetLocalMediaEnabled(&audio, &video)
}

func (m *CallManager) handleAction(a domain.TelephonyAction) {
	if a.Fulfill != nil {
		defer a.Fulfill()
	}
	m.metrics.TelephonyAction(string(a.Kind))

	l := log.With().Str("action_id", a.ID.String()).Str("action", string(a.Kind)).Str("call_id", a.CallID.String()).Logger()
	if !m.current(a.CallID) {
		l.Debug().Msg("Telephony action for unknown call")
		return
	}

	var err error
	switch a.Kind {
	case domain.ActionAnswer:
		err = m.answer()
	case domain.ActionEnd:
		m.hangUp()
	case domain.ActionHold:
		err = m.setHeld(a.Held)
	case domain.ActionMute:
		err = m.setMuted(a.Muted)
	default:
		l.Warn().Msg("Unknown telephony action")
		return
	}
	if err != nil {
		l.Warn().Err(err).Msg("Telephony action failed")
	}
}

func (m *CallManager) telephonyCall(s *domain.CallSession) domain.TelephonyCall {
	return domain.TelephonyCall{
		CallID:    s.ID,
		Handle:    s.PeerID.String(),
		Kind:      s.Kind,
		Direction: s.Direction,
	}
}

// report queues a telephony report. Reports reach the bridge in order,
// off the manager goroutine; failures are logged and the in-app state stays
// authoritative.
func (m *CallManager) report(what string, fn func(ctx context.Context) error) {
	m.reports.push(telephonyReport{what: what, fn: fn})
}

// lookupPeer resolves the peer's display name in the background.
func (m *CallManager) lookupPeer(s *domain.CallSession) {
	if m.directory == nil {
		return
	}
	id, peer := s.ID, s.PeerID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		p, err := m.directory.Lookup(ctx, peer)
		if err != nil {
			log.Debug().Err(err).Str("peer_id", peer.String()).Msg("Directory lookup failed")
			p = domain.PlaceholderProfile(peer)
		}
		m.post(func() {
			if m.session == nil || m.session.ID != id {
				return
			}
			m.session.PeerName = p.DisplayName
			m.notify()
		})
	}()
}

func closeMedia(id domain.CallID, ms port.MediaSession) {
	go func() {
		if err := ms.Close(); err != nil {
			log.Warn().Err(err).Str("call_id", id.String()).Msg("Closing media session failed")
		}
	}()
}

// mediaObserver forwards engine reports for one call onto the manager inbox.
type mediaObserver struct {
	m      *CallManager
	callID domain.CallID
}

func (o mediaObserver) OnLocalCandidate(c domain.ICECandidate) {
	o.m.post(func() { o.m.localCandidate(o.callID, c) })
}

func (o mediaObserver) OnConnectionState(s domain.MediaState) {
	o.m.post(func() { o.m.mediaState(o.callID, s) })
}
