package networkdefinition

import (
	"sort"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

// NetworkDefinitionProvider serves the built-in table of well-known networks.
type NetworkDefinitionProvider struct {
	logger   port.Logger
	defs     map[entity.NetworkType]entity.NetworkDefinition
	ordering []entity.NetworkType
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Mainnet = entity.NetworkDefinition{
		Type:             entity.NetworkTypeMainnet,
		ChainID:          "0x1",
		Name:             "Ethereum Mainnet",
		Ticker:           "ETH",
		BlockExplorerURL: "https://etherscan.io",
		Managed:          true,
	}
	Goerli = entity.NetworkDefinition{
		Type:             entity.NetworkTypeGoerli,
		ChainID:          "0x5",
		Name:             "Goerli",
		Ticker:           "GoerliETH",
		BlockExplorerURL: "https://goerli.etherscan.io",
		Managed:          true,
	}
	Sepolia = entity.NetworkDefinition{
		Type:             entity.NetworkTypeSepolia,
		ChainID:          "0xaa36a7",
		Name:             "Sepolia",
		Ticker:           "SepoliaETH",
		BlockExplorerURL: "https://sepolia.etherscan.io",
		Managed:          true,
	}
	LineaGoerli = entity.NetworkDefinition{
		Type:             entity.NetworkTypeLineaGoerli,
		ChainID:          "0xe704",
		Name:             "Linea Goerli",
		Ticker:           "LineaETH",
		BlockExplorerURL: "https://goerli.lineascan.build",
		Managed:          true,
	}
	LineaMainnet = entity.NetworkDefinition{
		Type:             entity.NetworkTypeLineaMainnet,
		ChainID:          "0xe708",
		Name:             "Linea Mainnet",
		Ticker:           "ETH",
		BlockExplorerURL: "https://lineascan.build",
		Managed:          true,
	}
)

var allKnownDefinitions = []entity.NetworkDefinition{Mainnet, Goerli, Sepolia, LineaGoerli, LineaMainnet}

// NewNetworkDefinitionProvider creates a provider over the built-in table.
func NewNetworkDefinitionProvider(log port.Logger) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger: log,
		defs:   make(map[entity.NetworkType]entity.NetworkDefinition, len(allKnownDefinitions)),
	}
	for _, def := range allKnownDefinitions {
		p.defs[def.Type] = def
		p.ordering = append(p.ordering, def.Type)
	}
	p.logger.Debug("Well-known networks loaded", "count", len(p.defs))
	return p
}

// GetAllNetworkDefinitions returns the well-known networks in table order.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defs := make([]entity.NetworkDefinition, 0, len(p.ordering))
	for _, t := range p.ordering {
		defs = append(defs, p.defs[t])
	}
	return defs
}

// GetNetworkDefinition returns the definition for a well-known network type.
func (p *NetworkDefinitionProvider) GetNetworkDefinition(t entity.NetworkType) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	def, ok := p.defs[t]
	return def, ok
}

// SupportedTypes returns the well-known network types, sorted by name.
func (p *NetworkDefinitionProvider) SupportedTypes() []string {
	types := make([]string, 0, len(p.ordering))
	for _, t := range p.ordering {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}
