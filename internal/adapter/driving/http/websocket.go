package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The control API listens on loopback only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient is an in-app call screen following the call state.
type WSClient struct {
	id   string
	conn *websocket.Conn
}

func (c *WSClient) ID() string {
	return c.id
}

func (c *WSClient) Send(view domain.CallView) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(view)
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// Hub fans call updates out to every connected call screen. It implements
// port.CallObserver.
type Hub struct {
	clients    map[*WSClient]bool
	updated    chan struct{}
	register   chan *WSClient
	unregister chan *WSClient
	quit       chan struct{}

	// Views are full snapshots: only the newest one is worth sending.
	mu      sync.Mutex
	pending *domain.CallView

	last domain.CallView
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		updated:    make(chan struct{}, 1),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		quit:       make(chan struct{}),
		last:       domain.IdleView(),
	}
}

// OnCallUpdate never blocks the call manager. When the hub falls behind,
// older views are replaced by the newest one.
func (h *Hub) OnCallUpdate(view domain.CallView) {
	h.mu.Lock()
	h.pending = &view
	h.mu.Unlock()

	select {
	case h.updated <- struct{}{}:
	default:
	}
}

func (h *Hub) takePending() (domain.CallView, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return domain.CallView{}, false
	}
	view := *h.pending
	h.pending = nil
	return view, true
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Info().Str("client_id", client.ID()).Msg("Call screen registered")
			if err := client.Send(h.last); err != nil {
				client.Close()
				delete(h.clients, client)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.Info().Str("client_id", client.ID()).Msg("Call screen unregistered")
			}

		case <-h.updated:
			view, ok := h.takePending()
			if !ok {
				continue
			}
			h.last = view
			for client := range h.clients {
				if err := client.Send(view); err != nil {
					log.Error().Err(err).Str("client_id", client.ID()).Msg("Error sending call update")
					client.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *Hub) Register(c *WSClient) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

func (h *Hub) Unregister(c *WSClient) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// ServeUI streams call updates to an in-app call screen.
func (h *Handler) ServeUI(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := &WSClient{id: uuid.NewString(), conn: conn}
	l := log.With().Str("client_id", client.id).Logger()
	l.Info().Msg("Call screen connected")

	h.Hub.Register(client)
	defer func() {
		l.Info().Msg("Call screen disconnected")
		h.Hub.Unregister(client)
		conn.Close()
	}()

	// The screen only listens; reading detects when it goes away.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}
	}
}

// ServeTelephony attaches the companion native call UI.
func (h *Handler) ServeTelephony(w http.ResponseWriter, r *http.Request) {
	if h.Telephony == nil {
		http.Error(w, "native telephony disabled", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}
	h.Telephony.Attach(r.Context(), conn)
}
