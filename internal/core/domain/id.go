package domain

import (
	"github.com/google/uuid"
)

// UserID identifies a participant on the signaling server. Ids are opaque
// strings issued by the remote API, so they are not parsed.
type UserID string

func (id UserID) String() string {
	return string(id)
}

type CallID string

// NewCallID returns a fresh identifier for an outgoing call.
func NewCallID() CallID {
	return CallID(uuid.New().String())
}

func (id CallID) String() string {
	return string(id)
}

type ActionID string

func NewActionID() ActionID {
	return ActionID(uuid.New().String())
}

func (id ActionID) String() string {
	return string(id)
}
