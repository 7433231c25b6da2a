package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CallStarted(domain.Outgoing)
		m.CallEnded(domain.ReasonNoAnswer)
		m.Reconnect()
		m.Dropped("call:end")
	})
	assert.Nil(t, m.Registry())
}

func TestCallCounters(t *testing.T) {
	m := New()

	m.CallStarted(domain.Outgoing)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.callActive))

	m.CallEnded(domain.ReasonBusy)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.callActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.callsEnded.WithLabelValues(string(domain.ReasonBusy))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.callsStarted.WithLabelValues("outgoing")))
}

func TestTrackSignaling(t *testing.T) {
	m := New()
	status := make(chan bool)
	done := make(chan struct{})
	go func() {
		m.TrackSignaling(context.Background(), status)
		close(done)
	}()

	status <- true
	require.Eventually(t, func() bool { return testutil.ToFloat64(m.connected) == 1 }, time.Second, time.Millisecond)
	status <- false
	require.Eventually(t, func() bool { return testutil.ToFloat64(m.connected) == 0 }, time.Second, time.Millisecond)

	close(status)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracking did not stop")
	}
}
