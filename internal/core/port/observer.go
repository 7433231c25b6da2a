package port

import "github.com/Wyydra/yacall/internal/core/domain"

// CallObserver is the in-app call UI. It is called from the call manager's
// goroutine and must not block.
type CallObserver interface {
	OnCallUpdate(view domain.CallView)
}
