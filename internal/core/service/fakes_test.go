package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
)

type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[domain.EventName]port.EventHandler
	connected bool
	emitted   []domain.OutboundEvent
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[domain.EventName]port.EventHandler), connected: true}
}

func (f *fakeTransport) Connect(context.Context, domain.UserID) error { return nil }
func (f *fakeTransport) Disconnect()                                  {}

func (f *fakeTransport) On(event domain.EventName, h port.EventHandler) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.handlers[event]; ok {
		return false
	}
	f.handlers[event] = h
	return true
}

func (f *fakeTransport) Emit(ev domain.OutboundEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, ev)
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

// deliver hands ev to the registered handler, like the read pump does.
func (f *fakeTransport) deliver(ev domain.InboundEvent) {
	f.mu.Lock()
	h := f.handlers[ev.Name()]
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeTransport) events() []domain.OutboundEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OutboundEvent(nil), f.emitted...)
}

func (f *fakeTransport) count(name domain.EventName) int {
	n := 0
	for _, ev := range f.events() {
		if ev.Name() == name {
			n++
		}
	}
	return n
}

type fakeEngine struct {
	mu       sync.Mutex
	sessions []*fakeMedia
	offerErr error
	// gate, when set, blocks offer and answer creation until closed.
	gate chan struct{}
	// onOffer runs inside CreateOffer, after the local description is set.
	onOffer func(obs port.MediaObserver)
}

func (e *fakeEngine) NewSession(_ context.Context, cfg port.MediaSessionConfig, obs port.MediaObserver) (port.MediaSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms := &fakeMedia{cfg: cfg, obs: obs, engine: e, audio: true, video: cfg.Kind == domain.Video}
	e.sessions = append(e.sessions, ms)
	return ms, nil
}

func (e *fakeEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *fakeEngine) last() *fakeMedia {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

type fakeMedia struct {
	cfg    port.MediaSessionConfig
	obs    port.MediaObserver
	engine *fakeEngine

	mu       sync.Mutex
	remote   string
	pending  []string
	applied  []string
	audio    bool
	video    bool
	speaker  bool
	switched int
	closed   int
}

func (f *fakeMedia) wait(ctx context.Context) error {
	if f.engine.gate == nil {
		return nil
	}
	select {
	case <-f.engine.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeMedia) CreateOffer(ctx context.Context) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.engine.offerErr != nil {
		return "", f.engine.offerErr
	}
	if f.engine.onOffer != nil {
		f.engine.onOffer(f.obs)
	}
	return "offer-sdp", nil
}

func (f *fakeMedia) CreateAnswer(ctx context.Context) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == "" {
		return "", errors.New("no remote offer")
	}
	return "answer-sdp", nil
}

func (f *fakeMedia) SetRemoteDescription(_ context.Context, sdp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = sdp
	f.applied = append(f.applied, f.pending...)
	f.pending = nil
	return nil
}

func (f *fakeMedia) AddRemoteCandidate(c domain.ICECandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == "" {
		f.pending = append(f.pending, c.Candidate)
		return nil
	}
	f.applied = append(f.applied, c.Candidate)
	return nil
}

func (f *fakeMedia) SetLocalMediaEnabled(audio, video *bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if audio != nil {
		f.audio = *audio
	}
	if video != nil {
		f.video = *video
	}
}

func (f *fakeMedia) SwitchCamera() {
	f.mu.Lock()
	f.switched++
	f.mu.Unlock()
}

func (f *fakeMedia) SetSpeaker(on bool) {
	f.mu.Lock()
	f.speaker = on
	f.mu.Unlock()
}

func (f *fakeMedia) Stats() domain.MediaStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.MediaStats{Speaker: f.speaker}
}

func (f *fakeMedia) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeMedia) snapshot() (remote string, applied []string, audio, video bool, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote, append([]string(nil), f.applied...), f.audio, f.video, f.closed
}

type fakeTelephony struct {
	mu          sync.Mutex
	reports     []string
	incomingErr error
	// delay slows down the reports that open a call.
	delay   time.Duration
	actions chan domain.TelephonyAction
}

func newFakeTelephony() *fakeTelephony {
	return &fakeTelephony{actions: make(chan domain.TelephonyAction, 4)}
}

func (f *fakeTelephony) record(r string) {
	f.mu.Lock()
	f.reports = append(f.reports, r)
	f.mu.Unlock()
}

func (f *fakeTelephony) ReportIncoming(_ context.Context, c domain.TelephonyCall) error {
	time.Sleep(f.delay)
	f.record("incoming:" + c.Handle)
	return f.incomingErr
}

func (f *fakeTelephony) ReportOutgoing(_ context.Context, c domain.TelephonyCall) error {
	time.Sleep(f.delay)
	f.record("outgoing:" + c.Handle)
	return nil
}

func (f *fakeTelephony) ReportAnswered(context.Context, domain.CallID) error {
	f.record("answered")
	return nil
}

func (f *fakeTelephony) ReportEnded(_ context.Context, _ domain.CallID, reason domain.EndReason) error {
	f.record("ended:" + string(reason))
	return nil
}

func (f *fakeTelephony) Actions() <-chan domain.TelephonyAction {
	return f.actions
}

func (f *fakeTelephony) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reports...)
}

type recordingObserver struct {
	mu    sync.Mutex
	views []domain.CallView
}

func (o *recordingObserver) OnCallUpdate(v domain.CallView) {
	o.mu.Lock()
	o.views = append(o.views, v)
	o.mu.Unlock()
}

func (o *recordingObserver) states() []domain.CallState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.CallState, 0, len(o.views))
	for i, v := range o.views {
		if i > 0 && o.views[i-1].State == v.State {
			continue
		}
		out = append(out, v.State)
	}
	return out
}

func (o *recordingObserver) endedReasons() []domain.EndReason {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []domain.EndReason
	for _, v := range o.views {
		if v.State == domain.StateEnded {
			out = append(out, v.Reason)
		}
	}
	return out
}

type fakeDirectory struct {
	profiles map[domain.UserID]domain.Profile
}

func (d fakeDirectory) Lookup(_ context.Context, id domain.UserID) (domain.Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return domain.Profile{}, errors.New("not found")
	}
	return p, nil
}
