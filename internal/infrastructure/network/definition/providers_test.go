package networkdefinition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"network_controller/internal/domain/entity"
	"network_controller/internal/pkg/logger"
)

func TestNetworkDefinitionProvider(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewSlogAdapter())

	defs := p.GetAllNetworkDefinitions()
	require.Len(t, defs, 5)
	assert.Equal(t, entity.NetworkTypeMainnet, defs[0].Type)
	for _, def := range defs {
		assert.True(t, def.Managed, def.Type)
	}

	sepolia, ok := p.GetNetworkDefinition(entity.NetworkTypeSepolia)
	require.True(t, ok)
	assert.Equal(t, "0xaa36a7", sepolia.ChainID)

	_, ok = p.GetNetworkDefinition(entity.NetworkTypeRPC)
	assert.False(t, ok)

	assert.Equal(t, []string{"goerli", "linea-goerli", "linea-mainnet", "mainnet", "sepolia"}, p.SupportedTypes())
}
