package statestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"network_controller/internal/domain/entity"
	"network_controller/internal/pkg/logger"
)

func mainnetState() entity.ControllerState {
	return entity.NewControllerState(entity.ProviderConfiguration{
		Type:    entity.NetworkTypeMainnet,
		ChainID: "0x1",
		Ticker:  "ETH",
	})
}

func TestStore_UpdateNotifiesWithCopies(t *testing.T) {
	s := New(mainnetState(), nil, logger.NewSlogAdapter())

	var seen []entity.NetworkStatus
	unsub := s.Subscribe(func(state entity.ControllerState) {
		seen = append(seen, state.NetworkStatus)
		state.NetworkConfigurations = append(state.NetworkConfigurations, entity.NetworkRegistryEntry{ID: "leak"})
	})

	id := "1"
	got := s.Update(func(state *entity.ControllerState) {
		state.NetworkStatus = entity.NetworkStatusAvailable
		state.NetworkID = &id
	})
	assert.Equal(t, entity.NetworkStatusAvailable, got.NetworkStatus)
	assert.Empty(t, s.Get().NetworkConfigurations)

	unsub()
	s.Update(func(state *entity.ControllerState) { state.NetworkStatus = entity.NetworkStatusUnknown })

	assert.Equal(t, []entity.NetworkStatus{entity.NetworkStatusAvailable}, seen)
	assert.Equal(t, entity.NetworkStatusUnknown, s.Get().NetworkStatus)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New(mainnetState(), nil, logger.NewSlogAdapter())
	state := s.Get()
	state.NetworkDetails.EIPS[entity.EIP1559] = new(bool)

	_, set := s.Get().NetworkDetails.EIP(entity.EIP1559)
	assert.False(t, set)
}

func TestBoltPersister_RoundTripThroughRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "network.db")
	p, err := OpenBolt(path)
	require.NoError(t, err)

	loaded, err := p.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	s, err := Restore(mainnetState(), p, logger.NewSlogAdapter())
	require.NoError(t, err)
	id := "11155111"
	s.Update(func(state *entity.ControllerState) {
		state.ProviderConfig = entity.ProviderConfiguration{Type: entity.NetworkTypeSepolia, ChainID: "0xaa36a7"}
		state.NetworkStatus = entity.NetworkStatusAvailable
		state.NetworkID = &id
		state.NetworkConfigurations = append(state.NetworkConfigurations, entity.NetworkRegistryEntry{
			ID: "abc", RPCURL: "https://rpc.example", ChainID: "0x539", Ticker: "TST",
		})
	})
	require.NoError(t, p.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	restored, err := Restore(mainnetState(), reopened, logger.NewSlogAdapter())
	require.NoError(t, err)
	state := restored.Get()
	assert.Equal(t, entity.NetworkTypeSepolia, state.ProviderConfig.Type)
	assert.Equal(t, entity.NetworkStatusUnknown, state.NetworkStatus)
	assert.Nil(t, state.NetworkID)
	require.Len(t, state.NetworkConfigurations, 1)
	assert.Equal(t, "abc", state.NetworkConfigurations[0].ID)
}

func TestBoltPersister_Closed(t *testing.T) {
	p, err := OpenBolt(filepath.Join(t.TempDir(), "network.db"))
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Load()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Save(mainnetState()), ErrClosed)
}
