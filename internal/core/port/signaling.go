package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type EventHandler func(ev domain.InboundEvent)

// SignalingTransport is the persistent event channel to the signaling server.
type SignalingTransport interface {
	// Connect is idempotent: an existing connection is torn down first.
	// Registered handlers are replayed onto the new connection.
	Connect(ctx context.Context, identity domain.UserID) error
	// Disconnect keeps registered handlers for the next Connect.
	Disconnect()
	// On registers handler for event. The first registration for a name
	// wins; later ones are ignored and On returns false.
	On(event domain.EventName, handler EventHandler) bool
	// Emit is fire-and-forget. Events emitted while disconnected are dropped.
	Emit(ev domain.OutboundEvent)
	Connected() bool
}
