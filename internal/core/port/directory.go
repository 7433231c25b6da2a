package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type Directory interface {
	Lookup(ctx context.Context, id domain.UserID) (domain.Profile, error)
}
