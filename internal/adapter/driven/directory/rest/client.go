// Package rest resolves user ids into display profiles through the
// directory REST API. Results are cached; lookups are best effort.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNotFound = errors.New("directory: user not found")

type Config struct {
	BaseURL   string
	Token     string
	CacheSize int
	Timeout   time.Duration
	HTTP      *http.Client
}

// Client implements port.Directory.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *lru.Cache[domain.UserID, domain.Profile]
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.HTTP == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		cfg.HTTP = &http.Client{Timeout: timeout}
	}
	cache, err := lru.New[domain.UserID, domain.Profile](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   cfg.Token,
		http:    cfg.HTTP,
		cache:   cache,
	}, nil
}

type profileDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatarUrl"`
}

func (c *Client) Lookup(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}

	u := c.baseURL + "/users/" + url.PathEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Profile{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Profile{}, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Profile{}, ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return domain.Profile{}, fmt.Errorf("GET %s: status %s", u, resp.Status)
	}

	var dto profileDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	p := domain.Profile{ID: id, DisplayName: dto.DisplayName, AvatarURL: dto.AvatarURL}
	if p.DisplayName == "" {
		p.DisplayName = dto.Username
	}
	if p.DisplayName == "" {
		p.DisplayName = id.String()
	}
	c.cache.Add(id, p)
	return p, nil
}
