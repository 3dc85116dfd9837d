package port

import (
	"context"

	"network_controller/internal/domain/entity"
)

// Requester executes JSON-RPC calls against one network.
// Failures carrying a JSON-RPC error object or an HTTP error body are returned as *entity.RPCError;
// anything else (dial errors, timeouts, decoding problems) is returned unstructured.
type Requester interface {
	Call(ctx context.Context, result any, method string, params ...any) error
}

// PollerEvent names a block poller notification.
type PollerEvent string

const (
	PollerEventLatest PollerEvent = "latest"
	PollerEventSync   PollerEvent = "sync"
	PollerEventError  PollerEvent = "error"

	// Bookkeeping events, emitted when listeners come and go.
	PollerEventNewListener    PollerEvent = "newListener"
	PollerEventRemoveListener PollerEvent = "removeListener"
)

// IsInternal reports whether the event is listener bookkeeping rather than chain data.
func (e PollerEvent) IsInternal() bool {
	return e == PollerEventNewListener || e == PollerEventRemoveListener
}

// PollerListener receives a block poller notification. The payload depends on the event:
// *entity.BlockHeader for latest and sync, error for error, PollerEvent for bookkeeping events.
type PollerListener func(payload any)

// BlockPoller tracks the head of one network.
type BlockPoller interface {
	// GetLatestBlock returns the most recent header, fetching it if nothing fresh is cached.
	GetLatestBlock(ctx context.Context) (*entity.BlockHeader, error)
	// Subscribe registers l for event and returns a function that removes it.
	Subscribe(event PollerEvent, l PollerListener) (unsubscribe func())
	Start()
	Stop()
}

// NetworkClient is a (requester, block poller) pair bound to one network.
type NetworkClient interface {
	Requester() Requester
	BlockPoller() BlockPoller
	// Close stops the poller and releases transport resources.
	Close()
}

// NetworkClientParams selects the network a client is built for: either a well-known Type,
// or RPCURL and ChainID for a custom network.
type NetworkClientParams struct {
	Type    entity.NetworkType
	RPCURL  string
	ChainID string
}

// NetworkClientFactory builds network clients.
type NetworkClientFactory interface {
	// Create returns entity.ErrConfiguration when params name neither a supported well-known
	// network nor a valid URL and chain id pair.
	Create(ctx context.Context, params NetworkClientParams) (NetworkClient, error)
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all well-known network definitions.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinition returns the definition for a well-known type.
	GetNetworkDefinition(t entity.NetworkType) (entity.NetworkDefinition, bool)
}
