package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectory(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/users/bob":
			w.Write([]byte(`{"id":"bob","displayName":"Bob Marley","avatarUrl":"http://img/bob.png"}`))
		case "/users/anon":
			w.Write([]byte(`{"id":"anon","username":"anon42"}`))
		case "/users/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", CacheSize: 8})
	require.NoError(t, err)
	return c, &hits
}

func TestLookupCachesProfiles(t *testing.T) {
	c, hits := newDirectory(t)
	ctx := context.Background()

	p, err := c.Lookup(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.Profile{ID: "bob", DisplayName: "Bob Marley", AvatarURL: "http://img/bob.png"}, p)

	_, err = c.Lookup(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLookupFallsBackToUsername(t *testing.T) {
	c, _ := newDirectory(t)
	p, err := c.Lookup(context.Background(), "anon")
	require.NoError(t, err)
	assert.Equal(t, "anon42", p.DisplayName)
}

func TestLookupErrors(t *testing.T) {
	c, hits := newDirectory(t)
	ctx := context.Background()

	_, err := c.Lookup(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "broken")
	assert.Error(t, err)

	// Failures are not cached.
	_, err = c.Lookup(ctx, "broken")
	assert.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}
