package domain_test

import (
	"testing"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSDPSetOncePerRound(t *testing.T) {
	s := domain.NewOutgoingSession("peer", domain.Audio, time.Now())

	require.NoError(t, s.SetLocalSDP("v=0 local"))
	assert.ErrorIs(t, s.SetLocalSDP("v=0 again"), domain.ErrSDPAlreadySet)
	assert.Equal(t, "v=0 local", s.LocalSDP)

	require.NoError(t, s.SetRemoteSDP("v=0 remote"))
	assert.ErrorIs(t, s.SetRemoteSDP("v=0 other"), domain.ErrSDPAlreadySet)
}

func TestIncomingSessionKeepsOffer(t *testing.T) {
	s := domain.NewIncomingSession("call-1", "caller", domain.Video, "v=0 offer", time.Now())

	assert.Equal(t, domain.Incoming, s.Direction)
	assert.Equal(t, "v=0 offer", s.RemoteSDP)
	assert.True(t, s.VideoEnabled)
	assert.ErrorIs(t, s.SetRemoteSDP("v=0 second"), domain.ErrSDPAlreadySet)
}

func TestDrainRemoteCandidatesKeepsArrivalOrder(t *testing.T) {
	s := domain.NewOutgoingSession("peer", domain.Audio, time.Now())
	for _, c := range []string{"a", "b", "c"} {
		s.QueueRemoteCandidate(domain.ICECandidate{Candidate: c})
	}

	got := s.DrainRemoteCandidates()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Candidate)
	assert.Equal(t, "c", got[2].Candidate)
	assert.Empty(t, s.DrainRemoteCandidates())
}

func TestParseMediaKind(t *testing.T) {
	k, err := domain.ParseMediaKind("")
	require.NoError(t, err)
	assert.Equal(t, domain.Audio, k)

	k, err = domain.ParseMediaKind("video")
	require.NoError(t, err)
	assert.Equal(t, domain.Video, k)

	_, err = domain.ParseMediaKind("hologram")
	assert.ErrorIs(t, err, domain.ErrUnknownMediaKind)
}

func TestViewCarriesReason(t *testing.T) {
	s := domain.NewOutgoingSession("peer", domain.Audio, time.Now())
	s.State = domain.StateEnded
	s.EndReason = domain.ReasonNoAnswer

	v := s.View()
	assert.Equal(t, domain.StateEnded, v.State)
	assert.Equal(t, domain.ReasonNoAnswer, v.Reason)
	assert.Equal(t, s.ID, v.CallID)
}
