package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/Wyydra/yacall/internal/metrics"
	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrNoIdentity = errors.New("signaling: identity is required")

const sendBuffer = 64

type Config struct {
	URL          string
	Namespace    string
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration

	Dialer  *websocket.Dialer
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

func (c *Config) setDefaults() {
	if c.Namespace == "" {
		c.Namespace = "call"
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff < c.MinBackoff {
		c.MaxBackoff = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = c.PingInterval * 12 / 5
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}

// Client is the signaling transport. Handlers registered with On live in
// the client, not in the underlying websocket, and are bound again to every
// new connection. It implements port.SignalingTransport.
type Client struct {
	cfg Config

	mu       sync.Mutex
	handlers map[domain.EventName]port.EventHandler
	current  *conn
	cancel   context.CancelFunc
	done     chan struct{}

	connected atomic.Bool

	watchMu  sync.Mutex
	watchers map[chan bool]struct{}
}

func NewClient(cfg Config) *Client {
	cfg.setDefaults()
	return &Client{
		cfg:      cfg,
		handlers: make(map[domain.EventName]port.EventHandler),
		watchers: make(map[chan bool]struct{}),
	}
}

func (c *Client) endpoint(identity domain.UserID) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("signaling url: %w", err)
	}
	u.Path = path.Join("/", u.Path, c.cfg.Namespace)
	q := u.Query()
	q.Set("userId", identity.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect opens the channel for identity and keeps it open, reconnecting
// with bounded backoff, until Disconnect. A first dial failure is not an
// error: the client keeps retrying and reports through Connected.
func (c *Client) Connect(ctx context.Context, identity domain.UserID) error {
	if identity == "" {
		return ErrNoIdentity
	}
	endpoint, err := c.endpoint(identity)
	if err != nil {
		return err
	}

	c.Disconnect()

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	l := log.With().Str("user_id", identity.String()).Logger()

	first, err := c.dial(ctx, endpoint)
	if err != nil {
		l.Warn().Err(err).Msg("Signaling connect failed, retrying in background")
	}

	go c.run(runCtx, endpoint, first, done)
	return nil
}

// Disconnect closes the connection and stops reconnecting. Registered
// handlers are kept.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, done, cn := c.cancel, c.done, c.current
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if cn != nil {
		cn.close()
	}
	<-done
}

func (c *Client) On(event domain.EventName, handler port.EventHandler) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.handlers[event]; ok {
		log.Debug().Str("event", string(event)).Msg("Handler already registered, ignoring")
		return false
	}
	c.handlers[event] = handler
	if c.current != nil {
		c.current.bind(event, handler)
	}
	return true
}

func (c *Client) Emit(ev domain.OutboundEvent) {
	name := string(ev.Name())
	data, err := EncodeOutbound(ev)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("Failed to encode signaling event")
		return
	}

	c.mu.Lock()
	cn := c.current
	c.mu.Unlock()

	if cn == nil {
		log.Debug().Str("event", name).Msg("Signaling disconnected, dropping event")
		c.cfg.Metrics.Dropped(name)
		return
	}

	select {
	case cn.send <- data:
		c.cfg.Metrics.Sent(name)
	case <-cn.closed:
		c.cfg.Metrics.Dropped(name)
	default:
		log.Warn().Str("event", name).Msg("Signaling send buffer full, dropping event")
		c.cfg.Metrics.Dropped(name)
	}
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

// ActiveHandlers returns how many handlers are bound to the live connection.
func (c *Client) ActiveHandlers() int {
	c.mu.Lock()
	cn := c.current
	c.mu.Unlock()
	if cn == nil {
		return 0
	}
	return cn.listenerCount()
}

// WatchStatus returns a channel carrying the latest connection status.
// Only the most recent value is kept.
func (c *Client) WatchStatus() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	ch <- c.Connected()

	c.watchMu.Lock()
	c.watchers[ch] = struct{}{}
	c.watchMu.Unlock()

	return ch, func() {
		c.watchMu.Lock()
		delete(c.watchers, ch)
		c.watchMu.Unlock()
	}
}

func (c *Client) setConnected(v bool) {
	if c.connected.Swap(v) == v {
		return
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (c *Client) dial(ctx context.Context, endpoint string) (*conn, error) {
	ws, _, err := c.cfg.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws), nil
}

func (c *Client) run(ctx context.Context, endpoint string, cn *conn, done chan struct{}) {
	defer close(done)

	delay := c.cfg.MinBackoff
	for {
		if cn != nil {
			delay = c.cfg.MinBackoff
			c.attach(cn)
			log.Info().Str("url", endpoint).Msg("Signaling connected")
			cn.serve(ctx, c)
			c.detach(cn)
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-c.cfg.Clock.After(delay):
		}

		c.cfg.Metrics.Reconnect()
		var err error
		cn, err = c.dial(ctx, endpoint)
		if err != nil {
			delay = min(delay*2, c.cfg.MaxBackoff)
			log.Warn().Err(err).Dur("retry_in", delay).Msg("Signaling reconnect failed")
		}
	}
}

func (c *Client) attach(cn *conn) {
	c.mu.Lock()
	for name, h := range c.handlers {
		cn.bind(name, h)
	}
	c.current = cn
	c.mu.Unlock()
	c.setConnected(true)
}

func (c *Client) detach(cn *conn) {
	c.mu.Lock()
	if c.current == cn {
		c.current = nil
	}
	c.mu.Unlock()
	c.setConnected(false)
	log.Info().Msg("Signaling disconnected")
}

// conn is one websocket and the handlers bound to it.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once

	mu        sync.RWMutex
	listeners map[domain.EventName]port.EventHandler
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		closed:    make(chan struct{}),
		listeners: make(map[domain.EventName]port.EventHandler),
	}
}

func (cn *conn) bind(name domain.EventName, h port.EventHandler) {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if _, ok := cn.listeners[name]; ok {
		return
	}
	cn.listeners[name] = h
}

func (cn *conn) listener(name domain.EventName) port.EventHandler {
	cn.mu.RLock()
	defer cn.mu.RUnlock()
	return cn.listeners[name]
}

func (cn *conn) listenerCount() int {
	cn.mu.RLock()
	defer cn.mu.RUnlock()
	return len(cn.listeners)
}

func (cn *conn) close() {
	cn.once.Do(func() {
		close(cn.closed)
		cn.ws.Close()
	})
}

// serve pumps the connection until it breaks or ctx is canceled.
func (cn *conn) serve(ctx context.Context, c *Client) {
	go cn.writePump(c.cfg)
	go func() {
		select {
		case <-ctx.Done():
			cn.close()
		case <-cn.closed:
		}
	}()
	cn.readPump(c)
}

func (cn *conn) readPump(c *Client) {
	defer cn.close()

	pongWait := c.cfg.PongWait
	cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	cn.ws.SetPongHandler(func(string) error {
		return cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := cn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Signaling connection lost")
			}
			return
		}
		cn.ws.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Warn().Err(err).Msg("Dropping undecodable signaling frame")
			c.cfg.Metrics.Dropped("invalid")
			continue
		}

		ev, err := DecodeInbound(env)
		if err != nil {
			log.Warn().Err(err).Str("event", env.Event).Msg("Dropping signaling event")
			c.cfg.Metrics.Dropped(eventLabel(env.Event))
			continue
		}
		c.cfg.Metrics.Received(string(ev.Name()))

		if h := cn.listener(ev.Name()); h != nil {
			h(ev)
		}
	}
}

func (cn *conn) writePump(cfg Config) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-cn.send:
			cn.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := cn.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn().Err(err).Msg("Signaling write failed")
				cn.close()
				return
			}
		case <-ticker.C:
			cn.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := cn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				cn.close()
				return
			}
		case <-cn.closed:
			return
		}
	}
}
