package proxy

import (
	"context"

	"network_controller/internal/app/port"
)

// Requester forwards every call to the requester of the currently active network.
type Requester struct {
	*Handle[port.Requester]
}

var _ port.Requester = (*Requester)(nil)

// NewRequester wraps initial.
func NewRequester(initial port.Requester) *Requester {
	return &Requester{Handle: NewHandle(initial)}
}

// Call implements port.Requester.
func (r *Requester) Call(ctx context.Context, result any, method string, params ...any) error {
	return r.Target().Call(ctx, result, method, params...)
}
