package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/tenancydeposit/internal/models"
)

type callerKey struct{}

// WithCaller returns a context carrying the authenticated caller. The ledger
// trusts it; verifying the identity is the transport's job.
func WithCaller(ctx context.Context, caller models.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller stored by WithCaller.
func CallerFrom(ctx context.Context) (models.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(models.Address)
	return caller, ok && !caller.IsZero()
}

func requireCaller(ctx context.Context) (models.Address, error) {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return models.NoAddress, fmt.Errorf("%w: no caller identity", ErrUnauthorized)
	}
	return caller, nil
}
