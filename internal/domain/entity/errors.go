package entity

import (
	"errors"
	"fmt"
)

// Controller errors. Callers match them with errors.Is; details are added with %w wrapping.
var (
	// ErrConfiguration is returned when connection parameters are invalid or missing.
	ErrConfiguration = errors.New("invalid network configuration")

	// ErrValidation is returned when a registry entry fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a registry entry or configuration id does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrNotInitialized is returned when an operation needs a provider that was never installed.
	ErrNotInitialized = errors.New("network provider not initialized")

	// ErrAlreadyInitialized is returned when the provider is initialized a second time.
	ErrAlreadyInitialized = errors.New("network provider already initialized")
)

// JSON-RPC error codes the controller cares about.
const (
	RPCErrorCodeInternal = -32603
	RPCErrorCodeServer   = -32000
)

// RPCError is a structured error returned by a requester: either a JSON-RPC error object
// or an HTTP error whose body was preserved in Message.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the JSON-RPC error code.
func (e *RPCError) ErrorCode() int {
	return e.Code
}
