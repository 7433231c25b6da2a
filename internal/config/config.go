package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type Config struct {
	Identity  Identity  `json:"identity"`
	Signaling Signaling `json:"signaling"`
	Media     Media     `json:"media"`
	Call      Call      `json:"call"`
	Telephony Telephony `json:"telephony"`
	Directory Directory `json:"directory"`
	HTTP      HTTP      `json:"http"`
	Relay     Relay     `json:"relay"`
	Log       Log       `json:"log"`
}

type Identity struct {
	UserID string `json:"user_id"`
}

type Signaling struct {
	// Base websocket URL of the signaling server, e.g. ws://localhost:8090
	URL       string `json:"url"`
	Namespace string `json:"namespace"`

	MinBackoffMS   int `json:"min_backoff_ms"`
	MaxBackoffMS   int `json:"max_backoff_ms"`
	PingIntervalMS int `json:"ping_interval_ms"`
	PongWaitMS     int `json:"pong_wait_ms"`
}

type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type Media struct {
	ICEServers []ICEServer `json:"ice_servers"`

	// ICE agent timeouts, in seconds.
	ICEDisconnectedSec int `json:"ice_disconnected_sec"`
	ICEFailedSec       int `json:"ice_failed_sec"`
	ICEKeepaliveSec    int `json:"ice_keepalive_sec"`

	// Device ids the camera switch cycles through. Empty means no camera.
	VideoDevices []string `json:"video_devices"`
}

type Call struct {
	NoAnswerTimeoutSec int `json:"no_answer_timeout_sec"`
	NegotiationSec     int `json:"negotiation_timeout_sec"`
}

type Telephony struct {
	// Native enables the companion call UI bridge. When false the in-app
	// UI stream is the only call UI.
	Native bool `json:"native"`
}

type Directory struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	CacheSize int    `json:"cache_size"`
	TimeoutMS int    `json:"timeout_ms"`
}

type HTTP struct {
	Addr string `json:"addr"`
}

type Relay struct {
	Addr      string `json:"addr"`
	Namespace string `json:"namespace"`
}

type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"` // console or json
}

func Default() Config {
	return Config{
		Signaling: Signaling{
			URL:            "ws://127.0.0.1:8090",
			Namespace:      "call",
			MinBackoffMS:   500,
			MaxBackoffMS:   10_000,
			PingIntervalMS: 25_000,
			PongWaitMS:     60_000,
		},
		Media: Media{
			ICEServers: []ICEServer{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
			},
			ICEDisconnectedSec: 5,
			ICEFailedSec:       25,
			ICEKeepaliveSec:    2,
		},
		Call: Call{
			NoAnswerTimeoutSec: 30,
			NegotiationSec:     15,
		},
		Directory: Directory{
			CacheSize: 256,
			TimeoutMS: 3000,
		},
		HTTP: HTTP{
			Addr: "127.0.0.1:8080",
		},
		Relay: Relay{
			Addr:      ":8090",
			Namespace: "call",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Signaling.URL) == "" {
		return errors.New("signaling.url is required")
	}
	u, err := url.Parse(c.Signaling.URL)
	if err != nil {
		return fmt.Errorf("signaling.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("signaling.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if strings.Trim(c.Signaling.Namespace, "/") == "" {
		return errors.New("signaling.namespace is required")
	}
	if c.Signaling.MinBackoffMS <= 0 || c.Signaling.MaxBackoffMS < c.Signaling.MinBackoffMS {
		return errors.New("signaling: backoff must satisfy 0 < min_backoff_ms <= max_backoff_ms")
	}
	if c.Signaling.PingIntervalMS <= 0 || c.Signaling.PongWaitMS <= c.Signaling.PingIntervalMS {
		return errors.New("signaling: pong_wait_ms must be greater than ping_interval_ms")
	}
	if c.Call.NoAnswerTimeoutSec <= 0 {
		return errors.New("call.no_answer_timeout_sec must be positive")
	}
	if c.Call.NegotiationSec <= 0 {
		return errors.New("call.negotiation_timeout_sec must be positive")
	}
	for i, s := range c.Media.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("media.ice_servers[%d]: urls is required", i)
		}
	}
	if c.Directory.URL != "" {
		if _, err := url.ParseRequestURI(c.Directory.URL); err != nil {
			return fmt.Errorf("directory.url: %w", err)
		}
	}
	if c.Directory.CacheSize <= 0 {
		return errors.New("directory.cache_size must be positive")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, err
	}

	b = stripBOM(b)

	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func ms(v int) time.Duration  { return time.Duration(v) * time.Millisecond }
func sec(v int) time.Duration { return time.Duration(v) * time.Second }

func (s Signaling) MinBackoff() time.Duration   { return ms(s.MinBackoffMS) }
func (s Signaling) MaxBackoff() time.Duration   { return ms(s.MaxBackoffMS) }
func (s Signaling) PingInterval() time.Duration { return ms(s.PingIntervalMS) }
func (s Signaling) PongWait() time.Duration     { return ms(s.PongWaitMS) }

func (m Media) ICEDisconnected() time.Duration { return sec(m.ICEDisconnectedSec) }
func (m Media) ICEFailed() time.Duration       { return sec(m.ICEFailedSec) }
func (m Media) ICEKeepalive() time.Duration    { return sec(m.ICEKeepaliveSec) }

func (c Call) NoAnswerTimeout() time.Duration    { return sec(c.NoAnswerTimeoutSec) }
func (c Call) NegotiationTimeout() time.Duration { return sec(c.NegotiationSec) }

func (d Directory) Timeout() time.Duration { return ms(d.TimeoutMS) }
