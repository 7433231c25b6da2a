package domain

type EventName string

// Events sent by this client.
const (
	EventOffer        EventName = "call:offer"
	EventAnswer       EventName = "call:answer"
	EventICECandidate EventName = "call:ice-candidate"
	EventReject       EventName = "call:reject"
	EventEnd          EventName = "call:end"
	EventBusy         EventName = "call:busy"
)

// Events received from the signaling server. call:ice-candidate and
// call:busy travel in both directions.
const (
	EventIncoming EventName = "call:incoming"
	EventRinging  EventName = "call:ringing"
	EventAnswered EventName = "call:answered"
	EventEnded    EventName = "call:ended"
	EventRejected EventName = "call:rejected"
	EventError    EventName = "call:error"
)

// InboundEvents lists every event name the call manager listens to.
var InboundEvents = []EventName{
	EventIncoming,
	EventRinging,
	EventAnswered,
	EventICECandidate,
	EventEnded,
	EventRejected,
	EventBusy,
	EventError,
}

// InboundEvent is a decoded server event. The set of implementations is
// closed; consumers switch on the concrete type.
type InboundEvent interface {
	Name() EventName
	inbound()
}

type IncomingCall struct {
	CallID   CallID
	CallerID UserID
	Kind     MediaKind
	SDP      string
}

type RemoteRinging struct {
	CallID CallID
}

type RemoteAnswered struct {
	CallID CallID
	SDP    string
}

type RemoteCandidate struct {
	CallID    CallID
	Candidate ICECandidate
}

type RemoteEnded struct {
	CallID CallID
}

type RemoteRejected struct {
	CallID CallID
}

type RemoteBusy struct {
	CallID CallID
}

type SignalingError struct {
	Message string
}

func (IncomingCall) Name() EventName    { return EventIncoming }
func (RemoteRinging) Name() EventName   { return EventRinging }
func (RemoteAnswered) Name() EventName  { return EventAnswered }
func (RemoteCandidate) Name() EventName { return EventICECandidate }
func (RemoteEnded) Name() EventName     { return EventEnded }
func (RemoteRejected) Name() EventName  { return EventRejected }
func (RemoteBusy) Name() EventName      { return EventBusy }
func (SignalingError) Name() EventName  { return EventError }

func (IncomingCall) inbound()    {}
func (RemoteRinging) inbound()   {}
func (RemoteAnswered) inbound()  {}
func (RemoteCandidate) inbound() {}
func (RemoteEnded) inbound()     {}
func (RemoteRejected) inbound()  {}
func (RemoteBusy) inbound()      {}
func (SignalingError) inbound()  {}

// OutboundEvent is an event this client emits.
type OutboundEvent interface {
	Name() EventName
	outbound()
}

type Offer struct {
	CallID      CallID
	RecipientID UserID
	Kind        MediaKind
	SDP         string
}

type Answer struct {
	CallID CallID
	SDP    string
}

type LocalCandidate struct {
	CallID    CallID
	Candidate ICECandidate
}

type Reject struct {
	CallID CallID
}

type End struct {
	CallID CallID
}

type Busy struct {
	CallID CallID
}

func (Offer) Name() EventName          { return EventOffer }
func (Answer) Name() EventName         { return EventAnswer }
func (LocalCandidate) Name() EventName { return EventICECandidate }
func (Reject) Name() EventName         { return EventReject }
func (End) Name() EventName            { return EventEnd }
func (Busy) Name() EventName           { return EventBusy }

func (Offer) outbound()          {}
func (Answer) outbound()         {}
func (LocalCandidate) outbound() {}
func (Reject) outbound()         {}
func (End) outbound()            {}
func (Busy) outbound()           {}
