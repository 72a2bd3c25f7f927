package identity

import (
	"context"
	"errors"
)

type contextKey string

const callerKey contextKey = "caller"

// ErrNoCaller is returned when the context carries no caller identity.
var ErrNoCaller = errors.New("no caller in context")

// WithCaller attaches the calling principal to the context.
func WithCaller(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, callerKey, p)
}

// WithAddress attaches a bare caller address to the context.
func WithAddress(ctx context.Context, addr Address) context.Context {
	return WithCaller(ctx, Caller{Addr: addr})
}

// CallerFrom retrieves the calling principal from the context.
func CallerFrom(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(callerKey).(Principal)
	if !ok {
		return nil, ErrNoCaller
	}
	return p, nil
}

// AddressFrom retrieves the caller address, or Zero if none is attached.
func AddressFrom(ctx context.Context) Address {
	p, err := CallerFrom(ctx)
	if err != nil {
		return Zero
	}
	return p.Address()
}
