package entity

// NetworkStatus is the outcome of the last completed network lookup.
type NetworkStatus string

const (
	NetworkStatusUnknown     NetworkStatus = "unknown"
	NetworkStatusAvailable   NetworkStatus = "available"
	NetworkStatusUnavailable NetworkStatus = "unavailable"
	NetworkStatusBlocked     NetworkStatus = "blocked"
)

// EIP1559 is the only EIP tracked in NetworkDetails today.
const EIP1559 = 1559

// NetworkDetails caches capability checks for the active network. A nil entry means "not checked yet".
type NetworkDetails struct {
	EIPS map[int]*bool `json:"EIPS"`
}

// NewNetworkDetails returns details with every tracked EIP unset.
func NewNetworkDetails() NetworkDetails {
	return NetworkDetails{EIPS: map[int]*bool{EIP1559: nil}}
}

// EIP returns the cached value for the given EIP and whether it was set.
func (d NetworkDetails) EIP(eip int) (bool, bool) {
	v, ok := d.EIPS[eip]
	if !ok || v == nil {
		return false, false
	}
	return *v, true
}

// WithEIP returns a copy of the details with the given EIP set.
func (d NetworkDetails) WithEIP(eip int, supported bool) NetworkDetails {
	next := d.Clone()
	next.EIPS[eip] = &supported
	return next
}

// Clone returns a deep copy of the details.
func (d NetworkDetails) Clone() NetworkDetails {
	eips := make(map[int]*bool, len(d.EIPS))
	for k, v := range d.EIPS {
		if v != nil {
			b := *v
			eips[k] = &b
		} else {
			eips[k] = nil
		}
	}
	return NetworkDetails{EIPS: eips}
}

// ControllerState is the aggregate persisted by the network controller.
// NetworkID and EIP flags are only meaningful while NetworkStatus is available.
type ControllerState struct {
	ProviderConfig        ProviderConfiguration  `json:"providerConfig"`
	NetworkID             *string                `json:"networkId"`
	NetworkStatus         NetworkStatus          `json:"networkStatus"`
	NetworkDetails        NetworkDetails         `json:"networkDetails"`
	NetworkConfigurations []NetworkRegistryEntry `json:"networkConfigurations"`
}

// NewControllerState returns the initial state for the given provider configuration.
func NewControllerState(providerConfig ProviderConfiguration) ControllerState {
	return ControllerState{
		ProviderConfig:        providerConfig,
		NetworkStatus:         NetworkStatusUnknown,
		NetworkDetails:        NewNetworkDetails(),
		NetworkConfigurations: []NetworkRegistryEntry{},
	}
}

// Clone returns a deep copy of the state.
func (s ControllerState) Clone() ControllerState {
	next := s
	next.ProviderConfig = s.ProviderConfig.Clone()
	if s.NetworkID != nil {
		id := *s.NetworkID
		next.NetworkID = &id
	}
	next.NetworkDetails = s.NetworkDetails.Clone()
	next.NetworkConfigurations = make([]NetworkRegistryEntry, len(s.NetworkConfigurations))
	for i, entry := range s.NetworkConfigurations {
		next.NetworkConfigurations[i] = entry.Clone()
	}
	return next
}

// FindNetworkConfiguration returns the registry entry with the given id.
func (s ControllerState) FindNetworkConfiguration(id string) (NetworkRegistryEntry, bool) {
	for _, entry := range s.NetworkConfigurations {
		if entry.ID == id {
			return entry.Clone(), true
		}
	}
	return NetworkRegistryEntry{}, false
}
