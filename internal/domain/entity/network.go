package entity

import "strings"

// NetworkType identifies either one of the built-in networks or a custom RPC network.
type NetworkType string

// Known network types.
const (
	NetworkTypeMainnet      NetworkType = "mainnet"
	NetworkTypeGoerli       NetworkType = "goerli"
	NetworkTypeSepolia      NetworkType = "sepolia"
	NetworkTypeLineaGoerli  NetworkType = "linea-goerli"
	NetworkTypeLineaMainnet NetworkType = "linea-mainnet"
	NetworkTypeRPC          NetworkType = "rpc"
)

// IsCustom reports whether the type refers to a user supplied RPC endpoint.
func (t NetworkType) IsCustom() bool {
	return t == NetworkTypeRPC
}

// NetworkDefinition holds the built-in metadata for a well-known network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	Type             NetworkType `json:"type" yaml:"type"`
	ChainID          string      `json:"chainId" yaml:"chainId"` // 0x-prefixed, EIP-155
	Name             string      `json:"name" yaml:"name"`
	Ticker           string      `json:"ticker" yaml:"ticker"`
	BlockExplorerURL string      `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	// Managed networks are routed through Infura and may answer with a region-block signal.
	Managed bool `json:"managed" yaml:"managed"`
}

// RPCPrefs holds user preferences attached to a network.
type RPCPrefs struct {
	BlockExplorerURL string `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// ProviderConfiguration is an immutable snapshot describing the network the controller points at.
type ProviderConfiguration struct {
	Type     NetworkType `json:"type" yaml:"type"`
	ChainID  string      `json:"chainId" yaml:"chainId"`
	RPCURL   string      `json:"rpcUrl,omitempty" yaml:"rpcUrl,omitempty"`
	Ticker   string      `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	Nickname string      `json:"nickname,omitempty" yaml:"nickname,omitempty"`
	RPCPrefs *RPCPrefs   `json:"rpcPrefs,omitempty" yaml:"rpcPrefs,omitempty"`
	// ID points back at the registry entry the configuration was built from, if any.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}

// Clone returns a deep copy of the configuration.
func (c ProviderConfiguration) Clone() ProviderConfiguration {
	if c.RPCPrefs != nil {
		prefs := *c.RPCPrefs
		c.RPCPrefs = &prefs
	}
	return c
}

// NetworkRegistryEntry is a persisted custom network.
type NetworkRegistryEntry struct {
	ID       string    `json:"id"`
	RPCURL   string    `json:"rpcUrl" validate:"required,url"`
	ChainID  string    `json:"chainId" validate:"required"`
	Ticker   string    `json:"ticker" validate:"required"`
	Nickname string    `json:"nickname,omitempty"`
	RPCPrefs *RPCPrefs `json:"rpcPrefs,omitempty"`
}

// MatchesURL compares endpoint URLs the way the registry keys them: case-insensitively.
func (e NetworkRegistryEntry) MatchesURL(rpcURL string) bool {
	return strings.EqualFold(e.RPCURL, rpcURL)
}

// Clone returns a deep copy of the entry.
func (e NetworkRegistryEntry) Clone() NetworkRegistryEntry {
	if e.RPCPrefs != nil {
		prefs := *e.RPCPrefs
		e.RPCPrefs = &prefs
	}
	return e
}

// ProviderConfiguration builds the configuration used to switch to this entry.
func (e NetworkRegistryEntry) ProviderConfiguration() ProviderConfiguration {
	cfg := ProviderConfiguration{
		Type:     NetworkTypeRPC,
		ChainID:  e.ChainID,
		RPCURL:   e.RPCURL,
		Ticker:   e.Ticker,
		Nickname: e.Nickname,
		ID:       e.ID,
	}
	if e.RPCPrefs != nil {
		prefs := *e.RPCPrefs
		cfg.RPCPrefs = &prefs
	}
	return cfg
}
