package port

import (
	"context"

	"network_controller/internal/domain/entity"
)

// UpsertOptions carries the attribution and activation flags for a registry upsert.
type UpsertOptions struct {
	Referrer  string `validate:"required"`
	Source    string `validate:"required"`
	SetActive bool
}

// NetworkService is the controller surface consumed by transports such as the HTTP API.
type NetworkService interface {
	State() entity.ControllerState
	ProviderConfig() entity.ProviderConfiguration
	NetworkStatus() entity.NetworkStatus

	SetProviderType(ctx context.Context, t entity.NetworkType) error
	SetActiveNetwork(ctx context.Context, id string) error
	ResetConnection(ctx context.Context) error
	RollbackToPreviousProvider(ctx context.Context) error
	LookupNetwork(ctx context.Context)
	GetEIP1559Compatibility(ctx context.Context) (bool, error)
	GetLatestBlock(ctx context.Context) (*entity.BlockHeader, error)

	UpsertNetworkConfiguration(ctx context.Context, entry entity.NetworkRegistryEntry, opts UpsertOptions) (string, error)
	RemoveNetworkConfiguration(id string) error
}
