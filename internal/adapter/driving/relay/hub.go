// Package relay is the signaling server: it keeps one websocket per user
// and routes call events between the two parties of each call.
package relay

import (
	"encoding/json"

	"github.com/Wyydra/yacall/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/yacall/internal/adapter/driven/media/pion"
	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/rs/zerolog/log"
)

const (
	msgUserOffline = "user offline"
	msgInvalidSDP  = "invalid session description"
)

type call struct {
	id     domain.CallID
	caller domain.UserID
	callee domain.UserID
}

func (c *call) other(u domain.UserID) (domain.UserID, bool) {
	switch u {
	case c.caller:
		return c.callee, true
	case c.callee:
		return c.caller, true
	default:
		return "", false
	}
}

type frame struct {
	from *Client
	env  ws.Envelope
}

// Hub owns the connected users and the calls between them. All state is
// touched only by Run.
type Hub struct {
	clients    map[domain.UserID]*Client
	calls      map[domain.CallID]*call
	register   chan *Client
	unregister chan *Client
	inbound    chan frame
	ask        chan func()
	quit       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[domain.UserID]*Client),
		calls:      make(map[domain.CallID]*call),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan frame, 64),
		ask:        make(chan func()),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			return

		case client := <-h.register:
			if prev, ok := h.clients[client.userID]; ok {
				log.Info().Str("user_id", client.userID.String()).Msg("User reconnected, closing previous connection")
				prev.close()
			}
			h.clients[client.userID] = client
			log.Info().Str("user_id", client.userID.String()).Int("online", len(h.clients)).Msg("User connected")

		case client := <-h.unregister:
			if h.clients[client.userID] != client {
				continue
			}
			delete(h.clients, client.userID)
			client.close()
			h.dropCallsOf(client.userID)
			log.Info().Str("user_id", client.userID.String()).Int("online", len(h.clients)).Msg("User disconnected")

		case f := <-h.inbound:
			h.route(f.from, f.env)

		case fn := <-h.ask:
			fn()
		}
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Online reports whether user has a signaling connection.
func (h *Hub) Online(user domain.UserID) bool {
	res := make(chan bool, 1)
	select {
	case h.ask <- func() { _, ok := h.clients[user]; res <- ok }:
		return <-res
	case <-h.quit:
		return false
	}
}

// ActiveCalls returns how many calls are being relayed.
func (h *Hub) ActiveCalls() int {
	res := make(chan int, 1)
	select {
	case h.ask <- func() { res <- len(h.calls) }:
		return <-res
	case <-h.quit:
		return 0
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) receive(from *Client, env ws.Envelope) {
	select {
	case h.inbound <- frame{from: from, env: env}:
	case <-h.quit:
	}
}

func (h *Hub) route(from *Client, env ws.Envelope) {
	l := log.With().Str("user_id", from.userID.String()).Str("event", env.Event).Logger()

	switch domain.EventName(env.Event) {
	case domain.EventOffer:
		var p ws.OfferPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RecipientID == "" {
			l.Warn().Msg("Dropping malformed offer")
			return
		}
		h.offer(from, p)

	case domain.EventAnswer:
		var p ws.AnswerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			l.Warn().Err(err).Msg("Dropping malformed answer")
			return
		}
		if _, err := pion.ParseSDP(p.SDP); err != nil {
			l.Warn().Err(err).Msg("Dropping answer with invalid sdp")
			return
		}
		h.forward(from, domain.CallID(p.CallID), domain.EventAnswered, p, false)

	case domain.EventICECandidate:
		var p ws.CandidatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Candidate == nil {
			l.Warn().Msg("Dropping malformed candidate")
			return
		}
		h.forward(from, domain.CallID(p.CallID), domain.EventICECandidate, p, false)

	case domain.EventReject, domain.EventEnd, domain.EventBusy:
		var p ws.CallRefPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			l.Warn().Err(err).Msg("Dropping malformed event")
			return
		}
		out := map[domain.EventName]domain.EventName{
			domain.EventReject: domain.EventRejected,
			domain.EventEnd:    domain.EventEnded,
			domain.EventBusy:   domain.EventBusy,
		}[domain.EventName(env.Event)]
		h.forward(from, domain.CallID(p.CallID), out, p, true)

	default:
		l.Debug().Msg("Ignoring unknown event")
	}
}

func (h *Hub) offer(from *Client, p ws.OfferPayload) {
	kind, err := pion.KindOf(p.SDP)
	if err != nil {
		log.Warn().Err(err).Str("user_id", from.userID.String()).Msg("Offer with invalid sdp")
		from.emit(domain.EventError, ws.ErrorPayload{Message: msgInvalidSDP})
		return
	}
	if p.CallType != "" {
		if kind, err = domain.ParseMediaKind(p.CallType); err != nil {
			from.emit(domain.EventError, ws.ErrorPayload{Message: err.Error()})
			return
		}
	}

	callee, ok := h.clients[domain.UserID(p.RecipientID)]
	if !ok {
		from.emit(domain.EventError, ws.ErrorPayload{Message: msgUserOffline})
		return
	}

	id := domain.CallID(p.CallID)
	if id == "" {
		id = domain.NewCallID()
	}
	if _, exists := h.calls[id]; exists {
		log.Warn().Str("call_id", id.String()).Msg("Duplicate offer ignored")
		return
	}
	h.calls[id] = &call{id: id, caller: from.userID, callee: callee.userID}
	log.Info().Str("call_id", id.String()).Str("caller_id", from.userID.String()).Str("callee_id", callee.userID.String()).Msg("Call offered")

	callee.emit(domain.EventIncoming, ws.IncomingPayload{
		CallID:   id.String(),
		CallerID: from.userID.String(),
		CallType: string(kind),
		SDP:      p.SDP,
	})
	from.emit(domain.EventRinging, ws.CallRefPayload{CallID: id.String()})
}

// forward relays payload to the other party of the call. Terminal events
// forget the call.
func (h *Hub) forward(from *Client, id domain.CallID, event domain.EventName, payload any, terminal bool) {
	c, ok := h.calls[id]
	if !ok {
		log.Debug().Str("call_id", id.String()).Str("event", string(event)).Msg("Event for unknown call")
		return
	}
	peer, ok := c.other(from.userID)
	if !ok {
		log.Warn().Str("call_id", id.String()).Str("user_id", from.userID.String()).Msg("Event from a non participant")
		return
	}
	if terminal {
		delete(h.calls, id)
	}
	if to, ok := h.clients[peer]; ok {
		to.emit(event, payload)
	}
}

func (h *Hub) dropCallsOf(user domain.UserID) {
	for id, c := range h.calls {
		peer, ok := c.other(user)
		if !ok {
			continue
		}
		delete(h.calls, id)
		if to, ok := h.clients[peer]; ok {
			to.emit(domain.EventEnded, ws.CallRefPayload{CallID: id.String()})
		}
	}
}
