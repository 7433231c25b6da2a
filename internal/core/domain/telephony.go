package domain

// TelephonyCall is what the native call UI needs to show a call.
type TelephonyCall struct {
	CallID    CallID
	Handle    string
	Kind      MediaKind
	Direction Direction
}

type ActionKind string

const (
	ActionAnswer ActionKind = "answer"
	ActionEnd    ActionKind = "end"
	ActionHold   ActionKind = "hold"
	ActionMute   ActionKind = "mute"
)

// TelephonyAction is a user action taken in the native call UI. Fulfill
// must be called exactly once after the action was handled, whatever the
// outcome; it is safe to call more than once.
type TelephonyAction struct {
	ID      ActionID
	Kind    ActionKind
	CallID  CallID
	Muted   bool
	Held    bool
	Fulfill func()
}
