// Package proxy provides stable references to network primitives whose implementation is
// replaced every time the active network changes.
package proxy

import "sync/atomic"

// Handle is a stable reference to a swappable target. Holders keep the *Handle; SetTarget
// redirects every later Target call. A swap is a single atomic store, so readers see either
// the old or the new target, never a partially installed one.
type Handle[T any] struct {
	target atomic.Pointer[T]
}

// NewHandle creates a handle wrapping initial.
func NewHandle[T any](initial T) *Handle[T] {
	h := &Handle[T]{}
	h.target.Store(&initial)
	return h
}

// Target returns the current target.
func (h *Handle[T]) Target() T {
	return *h.target.Load()
}

// SetTarget replaces the target.
func (h *Handle[T]) SetTarget(next T) {
	h.target.Store(&next)
}
