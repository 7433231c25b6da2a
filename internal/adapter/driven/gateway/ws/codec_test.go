package ws

import (
	"encoding/json"
	"testing"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, event string, data string) Envelope {
	t.Helper()
	env := Envelope{Event: event}
	if data != "" {
		env.Data = json.RawMessage(data)
	}
	return env
}

func TestDecodeIncoming(t *testing.T) {
	ev, err := DecodeInbound(envelope(t, "call:incoming", `{"callId":"c1","callerId":"bob","callType":"video","sdp":"v=0"}`))
	require.NoError(t, err)

	in, ok := ev.(domain.IncomingCall)
	require.True(t, ok)
	assert.Equal(t, domain.CallID("c1"), in.CallID)
	assert.Equal(t, domain.UserID("bob"), in.CallerID)
	assert.Equal(t, domain.Video, in.Kind)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	tests := []struct {
		event string
		data  string
	}{
		{"call:incoming", `{"callId":"c1","callerId":"bob"}`},
		{"call:incoming", `{"callId":"c1","callerId":"bob","sdp":"v=0","callType":"fax"}`},
		{"call:answered", `{"callId":"c1"}`},
		{"call:ice-candidate", `{"callId":"c1"}`},
		{"call:ended", `[1,2]`},
		{"call:unknown", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			_, err := DecodeInbound(envelope(t, tt.event, tt.data))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeEventsWithoutPayload(t *testing.T) {
	for name, want := range map[string]domain.InboundEvent{
		"call:ringing":  domain.RemoteRinging{},
		"call:ended":    domain.RemoteEnded{},
		"call:rejected": domain.RemoteRejected{},
		"call:busy":     domain.RemoteBusy{},
		"call:error":    domain.SignalingError{},
	} {
		ev, err := DecodeInbound(envelope(t, name, ""))
		require.NoError(t, err, name)
		assert.Equal(t, want, ev, name)
	}
}

func TestDecodeCandidate(t *testing.T) {
	ev, err := DecodeInbound(envelope(t, "call:ice-candidate",
		`{"candidate":{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host","sdpMid":"0","sdpMLineIndex":0}}`))
	require.NoError(t, err)

	c := ev.(domain.RemoteCandidate)
	assert.Empty(t, c.CallID)
	require.NotNil(t, c.Candidate.SDPMid)
	assert.Equal(t, "0", *c.Candidate.SDPMid)
	require.NotNil(t, c.Candidate.SDPMLineIndex)
	assert.Equal(t, uint16(0), *c.Candidate.SDPMLineIndex)
}

func TestEncodeOffer(t *testing.T) {
	msg, err := EncodeOutbound(domain.Offer{CallID: "c1", RecipientID: "bob", Kind: domain.Audio, SDP: "v=0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"call:offer","data":{"callId":"c1","recipientId":"bob","callType":"audio","sdp":"v=0"}}`, string(msg))
}
