package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Wyydra/yacall/internal/core/domain"
)

var ErrMalformed = errors.New("malformed signaling event")

// Envelope is the frame exchanged with the signaling server.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type CandidateDTO struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

type OfferPayload struct {
	CallID      string `json:"callId"`
	RecipientID string `json:"recipientId"`
	CallType    string `json:"callType"`
	SDP         string `json:"sdp"`
}

type IncomingPayload struct {
	CallID   string `json:"callId"`
	CallerID string `json:"callerId"`
	CallType string `json:"callType"`
	SDP      string `json:"sdp"`
}

type AnswerPayload struct {
	CallID string `json:"callId"`
	SDP    string `json:"sdp"`
}

type CandidatePayload struct {
	CallID    string        `json:"callId,omitempty"`
	Candidate *CandidateDTO `json:"candidate"`
}

// CallRefPayload carries only the call id: reject, end, busy, ringing,
// ended, rejected.
type CallRefPayload struct {
	CallID string `json:"callId,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// eventLabel bounds metric labels to the event names this client knows.
func eventLabel(name string) string {
	if slices.Contains(domain.InboundEvents, domain.EventName(name)) {
		return name
	}
	return "unknown"
}

// Marshal wraps payload in an envelope.
func Marshal(event domain.EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: string(event), Data: data})
}

func CandidateToDTO(c domain.ICECandidate) *CandidateDTO {
	return &CandidateDTO{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func (c CandidateDTO) toDomain() domain.ICECandidate {
	return domain.ICECandidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

// EncodeOutbound turns an outbound event into a wire frame.
func EncodeOutbound(ev domain.OutboundEvent) ([]byte, error) {
	switch e := ev.(type) {
	case domain.Offer:
		return Marshal(e.Name(), OfferPayload{
			CallID:      e.CallID.String(),
			RecipientID: e.RecipientID.String(),
			CallType:    string(e.Kind),
			SDP:         e.SDP,
		})
	case domain.Answer:
		return Marshal(e.Name(), AnswerPayload{CallID: e.CallID.String(), SDP: e.SDP})
	case domain.LocalCandidate:
		return Marshal(e.Name(), CandidatePayload{CallID: e.CallID.String(), Candidate: CandidateToDTO(e.Candidate)})
	case domain.Reject:
		return Marshal(e.Name(), CallRefPayload{CallID: e.CallID.String()})
	case domain.End:
		return Marshal(e.Name(), CallRefPayload{CallID: e.CallID.String()})
	case domain.Busy:
		return Marshal(e.Name(), CallRefPayload{CallID: e.CallID.String()})
	default:
		return nil, fmt.Errorf("encode %T: unsupported event", ev)
	}
}

// DecodeInbound validates a frame from the server and returns its typed
// event. Missing required fields yield ErrMalformed.
func DecodeInbound(env Envelope) (domain.InboundEvent, error) {
	data := env.Data
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	switch domain.EventName(env.Event) {
	case domain.EventIncoming:
		var p IncomingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
		if p.CallID == "" || p.CallerID == "" || p.SDP == "" {
			return nil, fmt.Errorf("%w: %s: callId, callerId and sdp are required", ErrMalformed, env.Event)
		}
		kind, err := domain.ParseMediaKind(p.CallType)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
		return domain.IncomingCall{
			CallID:   domain.CallID(p.CallID),
			CallerID: domain.UserID(p.CallerID),
			Kind:     kind,
			SDP:      p.SDP,
		}, nil

	case domain.EventAnswered:
		var p AnswerPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
		if p.SDP == "" {
			return nil, fmt.Errorf("%w: %s: sdp is required", ErrMalformed, env.Event)
		}
		return domain.RemoteAnswered{CallID: domain.CallID(p.CallID), SDP: p.SDP}, nil

	case domain.EventICECandidate:
		var p CandidatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
		if p.Candidate == nil {
			return nil, fmt.Errorf("%w: %s: candidate is required", ErrMalformed, env.Event)
		}
		return domain.RemoteCandidate{CallID: domain.CallID(p.CallID), Candidate: p.Candidate.toDomain()}, nil

	case domain.EventRinging, domain.EventEnded, domain.EventRejected, domain.EventBusy:
		var p CallRefPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
		id := domain.CallID(p.CallID)
		switch domain.EventName(env.Event) {
		case domain.EventRinging:
			return domain.RemoteRinging{CallID: id}, nil
		case domain.EventEnded:
			return domain.RemoteEnded{CallID: id}, nil
		case domain.EventRejected:
			return domain.RemoteRejected{CallID: id}, nil
		default:
			return domain.RemoteBusy{CallID: id}, nil
		}

	case domain.EventError:
		var p ErrorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Event, err)
		}
		return domain.SignalingError{Message: p.Message}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformed, env.Event)
	}
}
