package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

// Telephony mirrors the call into the native call UI and delivers the
// actions the user takes there.
type Telephony interface {
	ReportIncoming(ctx context.Context, call domain.TelephonyCall) error
	ReportOutgoing(ctx context.Context, call domain.TelephonyCall) error
	ReportAnswered(ctx context.Context, id domain.CallID) error
	ReportEnded(ctx context.Context, id domain.CallID, reason domain.EndReason) error
	Actions() <-chan domain.TelephonyAction
}
