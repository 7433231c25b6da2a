// Package telephony mirrors the call into a companion native call UI that
// attaches over a websocket, and turns the actions taken there into
// call manager commands.
package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrUnavailable = errors.New("telephony: native call UI not attached")

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message types pushed to the call UI.
const (
	TypeIncoming  = "incoming"
	TypeOutgoing  = "outgoing"
	TypeAnswered  = "answered"
	TypeEnded     = "ended"
	TypeFulfilled = "fulfilled"
	TypeFailed    = "failed"
)

// Report is a message to the call UI.
type Report struct {
	Type      string `json:"type"`
	CallID    string `json:"callId,omitempty"`
	Handle    string `json:"handle,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Direction string `json:"direction,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ActionID  string `json:"actionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ActionMessage is an action taken by the user in the call UI.
type ActionMessage struct {
	ActionID string `json:"actionId"`
	Action   string `json:"action"`
	CallID   string `json:"callId"`
	Muted    bool   `json:"muted"`
	Held     bool   `json:"held"`
}

// Bridge implements port.Telephony. At most one call UI is attached; a new
// one replaces the previous.
type Bridge struct {
	mu      sync.Mutex
	ui      *uiConn
	actions chan domain.TelephonyAction
}

func NewBridge() *Bridge {
	return &Bridge{actions: make(chan domain.TelephonyAction, sendBuffer)}
}

func (b *Bridge) Actions() <-chan domain.TelephonyAction {
	return b.actions
}

func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ui != nil
}

func (b *Bridge) ReportIncoming(ctx context.Context, call domain.TelephonyCall) error {
	return b.push(ctx, callReport(TypeIncoming, call))
}

func (b *Bridge) ReportOutgoing(ctx context.Context, call domain.TelephonyCall) error {
	return b.push(ctx, callReport(TypeOutgoing, call))
}

func (b *Bridge) ReportAnswered(ctx context.Context, id domain.CallID) error {
	return b.push(ctx, Report{Type: TypeAnswered, CallID: id.String()})
}

func (b *Bridge) ReportEnded(ctx context.Context, id domain.CallID, reason domain.EndReason) error {
	return b.push(ctx, Report{Type: TypeEnded, CallID: id.String(), Reason: string(reason)})
}

func callReport(typ string, call domain.TelephonyCall) Report {
	return Report{
		Type:      typ,
		CallID:    call.CallID.String(),
		Handle:    call.Handle,
		Kind:      string(call.Kind),
		Direction: string(call.Direction),
	}
}

func (b *Bridge) push(ctx context.Context, r Report) error {
	b.mu.Lock()
	ui := b.ui
	b.mu.Unlock()
	if ui == nil {
		return ErrUnavailable
	}
	return ui.write(ctx, r)
}

// Attach serves conn as the call UI until it disconnects or ctx is done.
func (b *Bridge) Attach(ctx context.Context, conn *websocket.Conn) {
	ui := newUIConn(conn)

	b.mu.Lock()
	prev := b.ui
	b.ui = ui
	b.mu.Unlock()
	if prev != nil {
		log.Info().Msg("Call UI replaced")
		prev.close()
	}

	log.Info().Msg("Call UI attached")
	defer func() {
		b.mu.Lock()
		if b.ui == ui {
			b.ui = nil
		}
		b.mu.Unlock()
		ui.close()
		log.Info().Msg("Call UI detached")
	}()

	go ui.writePump()
	go func() {
		select {
		case <-ctx.Done():
			ui.close()
		case <-ui.closed:
		}
	}()

	ui.ws.SetReadDeadline(time.Now().Add(pongWait))
	ui.ws.SetPongHandler(func(string) error {
		return ui.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ActionMessage
		if err := ui.ws.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				log.Warn().Err(err).Msg("Undecodable call UI message")
				ui.ack(Report{Type: TypeFailed, Error: "malformed message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Call UI connection lost")
			}
			return
		}
		ui.ws.SetReadDeadline(time.Now().Add(pongWait))

		action, err := ui.translate(msg)
		if err != nil {
			log.Warn().Err(err).Str("action", msg.Action).Msg("Rejecting call UI action")
			ui.ack(Report{Type: TypeFailed, ActionID: msg.ActionID, Error: err.Error()})
			continue
		}

		select {
		case b.actions <- action:
		case <-ui.closed:
			return
		}
	}
}

var errUnknownAction = errors.New("unknown action")

// translate maps a UI message 1:1 to a call manager action. The action's
// Fulfill acknowledges it back to the UI.
func (ui *uiConn) translate(msg ActionMessage) (domain.TelephonyAction, error) {
	var kind domain.ActionKind
	switch domain.ActionKind(msg.Action) {
	case domain.ActionAnswer, domain.ActionEnd, domain.ActionHold, domain.ActionMute:
		kind = domain.ActionKind(msg.Action)
	default:
		return domain.TelephonyAction{}, errUnknownAction
	}

	id := domain.ActionID(msg.ActionID)
	if id == "" {
		id = domain.NewActionID()
	}

	var once sync.Once
	return domain.TelephonyAction{
		ID:     id,
		Kind:   kind,
		CallID: domain.CallID(msg.CallID),
		Muted:  msg.Muted,
		Held:   msg.Held,
		Fulfill: func() {
			once.Do(func() {
				ui.ack(Report{Type: TypeFulfilled, ActionID: id.String(), CallID: msg.CallID})
			})
		},
	}, nil
}

type uiConn struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newUIConn(ws *websocket.Conn) *uiConn {
	return &uiConn{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (ui *uiConn) close() {
	ui.once.Do(func() {
		close(ui.closed)
		ui.ws.Close()
	})
}

func (ui *uiConn) write(ctx context.Context, r Report) error {
	msg, err := json.Marshal(r)
	if err != nil {
		return err
	}
	select {
	case ui.send <- msg:
		return nil
	case <-ui.closed:
		return ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ack never blocks the caller; acks to a gone UI are dropped.
func (ui *uiConn) ack(r Report) {
	msg, err := json.Marshal(r)
	if err != nil {
		return
	}
	select {
	case ui.send <- msg:
	case <-ui.closed:
	default:
		log.Warn().Str("type", r.Type).Str("action_id", r.ActionID).Msg("Call UI send buffer full, dropping ack")
	}
}

func (ui *uiConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-ui.send:
			ui.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ui.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				ui.close()
				return
			}
		case <-ticker.C:
			ui.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ui.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				ui.close()
				return
			}
		case <-ui.closed:
			return
		}
	}
}
