package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
	"network_controller/internal/infrastructure/network/proxy"
	"network_controller/internal/pkg/events"
)

const countryBlockedSignal = "countryBlocked"

// NetworkController owns the active network connection: it switches between networks,
// observes their availability and exposes stable proxies to the live requester and poller.
//
// Switches and lookup commits are serialized by switchMu. A lookup records a change
// watcher before dispatching its requests and drops its result if a switch completed in
// the meantime.
type NetworkController struct {
	store       port.StateStore
	factory     port.NetworkClientFactory
	definitions port.NetworkDefinitionProvider
	metrics     port.MetricsRecorder
	bus         *events.Bus
	registry    *NetworkRegistry
	logger      *zap.Logger

	switchMu sync.Mutex
	client   port.NetworkClient
	previous *entity.ProviderConfiguration

	requester atomic.Pointer[proxy.Requester]
	poller    atomic.Pointer[proxy.BlockPoller]

	lookups sync.WaitGroup
}

var _ port.NetworkService = (*NetworkController)(nil)

// NewNetworkController creates a controller over store. The controller starts without a
// provider; call InitializeProvider to connect to the configured network.
func NewNetworkController(
	store port.StateStore,
	factory port.NetworkClientFactory,
	definitions port.NetworkDefinitionProvider,
	metrics port.MetricsRecorder,
	registryLogger port.Logger,
	logger *zap.Logger,
) *NetworkController {
	c := &NetworkController{
		store:       store,
		factory:     factory,
		definitions: definitions,
		metrics:     metrics,
		bus:         events.NewBus(),
		logger:      logger.Named("NetworkController"),
	}
	c.registry = NewNetworkRegistry(store, metrics, c, registryLogger)
	return c
}

// Subscribe registers h for a lifecycle topic. Handlers run synchronously while the
// controller lock is held, so they must not switch networks or run lookups themselves.
// The same holds for the MetricsRecorder.
func (c *NetworkController) Subscribe(topic events.Topic, h events.Handler) (unsubscribe func()) {
	return c.bus.Subscribe(topic, h)
}

// State returns a copy of the controller state.
func (c *NetworkController) State() entity.ControllerState {
	return c.store.Get()
}

// ProviderConfig returns the configuration of the active network.
func (c *NetworkController) ProviderConfig() entity.ProviderConfiguration {
	return c.store.Get().ProviderConfig
}

// NetworkStatus returns the outcome of the last committed lookup.
func (c *NetworkController) NetworkStatus() entity.NetworkStatus {
	return c.store.Get().NetworkStatus
}

// GetProviderAndBlockTracker returns the stable proxies. Both are nil until a provider has
// been installed; afterwards the same objects are returned for the controller's lifetime.
func (c *NetworkController) GetProviderAndBlockTracker() (*proxy.Requester, *proxy.BlockPoller) {
	return c.requester.Load(), c.poller.Load()
}

// GetLatestBlock returns the head of the active network through the block poller proxy.
func (c *NetworkController) GetLatestBlock(ctx context.Context) (*entity.BlockHeader, error) {
	poller := c.poller.Load()
	if poller == nil {
		return nil, entity.ErrNotInitialized
	}
	return poller.GetLatestBlock(ctx)
}

// InitializeProvider connects to the network in the current state and waits for the
// first lookup. Configuration errors are returned; lookup failures only show up in the
// network status. It may be called once; later calls return ErrAlreadyInitialized and
// switching goes through the switch operations.
func (c *NetworkController) InitializeProvider(ctx context.Context) error {
	c.switchMu.Lock()
	if c.requester.Load() != nil {
		c.switchMu.Unlock()
		return entity.ErrAlreadyInitialized
	}
	cfg, err := c.normalize(c.store.Get().ProviderConfig)
	if err != nil {
		c.switchMu.Unlock()
		return err
	}
	client, err := c.factory.Create(ctx, clientParams(cfg))
	if err != nil {
		c.switchMu.Unlock()
		return fmt.Errorf("initialize provider %s: %w", cfg.Type, err)
	}
	c.store.Update(func(state *entity.ControllerState) {
		state.ProviderConfig = cfg
		resetLookupState(state)
	})
	old := c.installClient(client)
	c.switchMu.Unlock()
	closeClient(old)

	c.logger.Info("Provider initialized", zap.String("type", string(cfg.Type)), zap.String("chainId", cfg.ChainID))
	c.LookupNetwork(ctx)
	return nil
}

// SetProviderType switches to a well-known network. The chain id and ticker come from the
// built-in table.
func (c *NetworkController) SetProviderType(ctx context.Context, t entity.NetworkType) error {
	if t.IsCustom() {
		return fmt.Errorf("%w: use SetActiveNetwork to switch to a custom network", entity.ErrConfiguration)
	}
	if _, ok := c.definitions.GetNetworkDefinition(t); !ok {
		return fmt.Errorf("%w: unknown network type %q", entity.ErrConfiguration, t)
	}
	return c.switchTo(ctx, func() (entity.ProviderConfiguration, error) {
		return c.normalize(entity.ProviderConfiguration{Type: t})
	})
}

// SetActiveNetwork switches to the registry entry with the given id.
func (c *NetworkController) SetActiveNetwork(ctx context.Context, id string) error {
	return c.switchTo(ctx, func() (entity.ProviderConfiguration, error) {
		entry, ok := c.store.Get().FindNetworkConfiguration(id)
		if !ok {
			return entity.ProviderConfiguration{}, fmt.Errorf("%w: network configuration %q", entity.ErrNotFound, id)
		}
		return entry.ProviderConfiguration(), nil
	})
}

// ResetConnection rebuilds the client for the current network and looks it up again.
func (c *NetworkController) ResetConnection(ctx context.Context) error {
	return c.switchTo(ctx, func() (entity.ProviderConfiguration, error) {
		return c.store.Get().ProviderConfig, nil
	})
}

// RollbackToPreviousProvider switches back to the network active before the last switch.
// Without a previous switch it behaves like ResetConnection.
func (c *NetworkController) RollbackToPreviousProvider(ctx context.Context) error {
	return c.switchTo(ctx, func() (entity.ProviderConfiguration, error) {
		if c.previous == nil {
			return c.store.Get().ProviderConfig, nil
		}
		return c.previous.Clone(), nil
	})
}

// UpsertNetworkConfiguration adds or updates a custom network, see NetworkRegistry.Upsert.
func (c *NetworkController) UpsertNetworkConfiguration(
	ctx context.Context,
	entry entity.NetworkRegistryEntry,
	opts port.UpsertOptions,
) (string, error) {
	return c.registry.Upsert(ctx, entry, opts)
}

// RemoveNetworkConfiguration deletes a custom network, see NetworkRegistry.Remove.
func (c *NetworkController) RemoveNetworkConfiguration(id string) error {
	return c.registry.Remove(id)
}

// switchTo runs the switch protocol for the configuration returned by resolve, which is
// evaluated under the controller lock. The client is built before anything is published
// so a configuration error leaves state and listeners untouched. The lookup runs in the
// background; WaitForLookups joins it.
func (c *NetworkController) switchTo(ctx context.Context, resolve func() (entity.ProviderConfiguration, error)) error {
	c.switchMu.Lock()

	cfg, err := resolve()
	if err == nil {
		cfg, err = c.normalize(cfg)
	}
	if err != nil {
		c.switchMu.Unlock()
		return err
	}

	client, err := c.factory.Create(ctx, clientParams(cfg))
	if err != nil {
		c.switchMu.Unlock()
		return fmt.Errorf("switch to %s: %w", describe(cfg), err)
	}

	c.bus.Publish(events.NetworkWillChange)

	previous := c.store.Get().ProviderConfig
	c.previous = &previous
	c.store.Update(func(state *entity.ControllerState) {
		state.ProviderConfig = cfg
		resetLookupState(state)
	})
	old := c.installClient(client)

	c.bus.Publish(events.NetworkDidChange)
	c.metrics.IncNetworkSwitch(cfg.Type)
	c.metrics.SetNetworkStatus(entity.NetworkStatusUnknown)

	watcher := c.watchNetworkChange()
	c.switchMu.Unlock()
	closeClient(old)

	c.logger.Info("Network switched",
		zap.String("from", describe(previous)),
		zap.String("to", describe(cfg)),
	)

	c.lookups.Add(1)
	go func() {
		defer c.lookups.Done()
		c.lookup(context.WithoutCancel(ctx), watcher)
	}()
	return nil
}

// installClient points the proxies at client, creating them on first use, and returns the
// client it replaced. Callers hold switchMu and close the old client after releasing it:
// closing waits for the old poller, whose listeners may be calling back into the controller.
func (c *NetworkController) installClient(client port.NetworkClient) (old port.NetworkClient) {
	if r := c.requester.Load(); r != nil {
		r.SetTarget(client.Requester())
		c.poller.Load().SetTarget(client.BlockPoller())
	} else {
		c.requester.Store(proxy.NewRequester(client.Requester()))
		c.poller.Store(proxy.NewBlockPoller(client.BlockPoller()))
	}

	old = c.client
	c.client = client
	return old
}

func closeClient(client port.NetworkClient) {
	if client != nil {
		client.Close()
	}
}

// LookupNetwork fetches the network id and latest block of the active network and records
// the resulting status. It never fails: errors are classified into the network status.
func (c *NetworkController) LookupNetwork(ctx context.Context) {
	c.switchMu.Lock()
	watcher := c.watchNetworkChange()
	c.switchMu.Unlock()

	c.lookup(ctx, watcher)
}

// WaitForLookups blocks until the background lookups started by switches have finished.
func (c *NetworkController) WaitForLookups() {
	c.lookups.Wait()
}

type changeWatcher struct {
	changed atomic.Bool
	stop    func()
}

func (c *NetworkController) watchNetworkChange() *changeWatcher {
	w := &changeWatcher{}
	w.stop = c.bus.Subscribe(events.NetworkDidChange, func() { w.changed.Store(true) })
	return w
}

type lookupResult struct {
	status    entity.NetworkStatus
	networkID string
	eip1559   bool
}

func (c *NetworkController) lookup(ctx context.Context, watcher *changeWatcher) {
	defer watcher.stop()

	requester := c.requester.Load()
	if requester == nil {
		return
	}
	cfg := c.store.Get().ProviderConfig
	if cfg.ChainID == "" {
		c.logger.Debug("Skipping lookup, no chain id for current network", zap.String("type", string(cfg.Type)))
		return
	}

	started := time.Now()
	result := c.queryNetwork(ctx, requester, cfg)

	// Commit, metrics and the infura event form one step under switchMu so that no
	// later switch can be observed before them.
	c.switchMu.Lock()
	if watcher.changed.Load() {
		c.switchMu.Unlock()
		c.logger.Debug("Discarding lookup result, network changed mid-flight",
			zap.String("network", describe(cfg)),
			zap.String("status", string(result.status)),
		)
		return
	}
	c.store.Update(func(state *entity.ControllerState) {
		state.NetworkStatus = result.status
		if result.status == entity.NetworkStatusAvailable {
			id := result.networkID
			state.NetworkID = &id
			state.NetworkDetails = state.NetworkDetails.WithEIP(entity.EIP1559, result.eip1559)
			return
		}
		state.NetworkID = nil
		state.NetworkDetails = entity.NewNetworkDetails()
	})
	c.metrics.SetNetworkStatus(result.status)
	c.metrics.ObserveLookup(result.status, time.Since(started))
	if topic, ok := c.infuraTopic(cfg, result.status); ok {
		c.bus.Publish(topic)
	}
	c.switchMu.Unlock()

	c.logger.Debug("Lookup committed",
		zap.String("network", describe(cfg)),
		zap.String("status", string(result.status)),
		zap.String("networkId", result.networkID),
	)
}

// infuraTopic picks the blocked/unblocked signal for a committed lookup, if any.
func (c *NetworkController) infuraTopic(cfg entity.ProviderConfiguration, status entity.NetworkStatus) (events.Topic, bool) {
	managed := c.isManaged(cfg)
	switch {
	case managed && status == entity.NetworkStatusBlocked:
		return events.InfuraBlocked, true
	case managed && status == entity.NetworkStatusAvailable:
		return events.InfuraUnblocked, true
	case !managed && status != entity.NetworkStatusBlocked:
		// Un-sticks consumers left blocked by a previous managed network.
		return events.InfuraUnblocked, true
	default:
		return "", false
	}
}

// queryNetwork issues the network id and latest block requests concurrently and classifies the
// outcome.
func (c *NetworkController) queryNetwork(ctx context.Context, requester port.Requester, cfg entity.ProviderConfiguration) lookupResult {
	var (
		g       errgroup.Group
		version any
		header  *entity.BlockHeader
	)
	g.Go(func() error {
		return requester.Call(ctx, &version, "net_version")
	})
	g.Go(func() error {
		return requester.Call(ctx, &header, "eth_getBlockByNumber", "latest", false)
	})

	err := g.Wait()
	var networkID string
	if err == nil {
		networkID, err = parseNetworkID(version)
	}
	if err == nil {
		return lookupResult{
			status:    entity.NetworkStatusAvailable,
			networkID: networkID,
			eip1559:   header.SupportsEIP1559(),
		}
	}
	return lookupResult{status: c.classify(cfg, err)}
}

func (c *NetworkController) classify(cfg entity.ProviderConfiguration, err error) entity.NetworkStatus {
	var rpcErr *entity.RPCError
	if !errors.As(err, &rpcErr) {
		c.logger.Warn("Network lookup failed with an unexpected error",
			zap.String("network", describe(cfg)),
			zap.Error(err),
		)
		return entity.NetworkStatusUnknown
	}
	switch {
	case c.isManaged(cfg) && isCountryBlocked(rpcErr):
		return entity.NetworkStatusBlocked
	case rpcErr.Code == entity.RPCErrorCodeInternal:
		return entity.NetworkStatusUnknown
	default:
		return entity.NetworkStatusUnavailable
	}
}

// GetEIP1559Compatibility reports whether the active network supports EIP-1559. A cached
// answer is returned without I/O; otherwise the latest block is fetched and the answer is
// cached until the next switch. Without a provider it returns false.
// The fetched answer is cached even when the network status is not available.
func (c *NetworkController) GetEIP1559Compatibility(ctx context.Context) (bool, error) {
	if supported, ok := c.store.Get().NetworkDetails.EIP(entity.EIP1559); ok {
		return supported, nil
	}
	requester := c.requester.Load()
	if requester == nil {
		return false, nil
	}

	c.switchMu.Lock()
	watcher := c.watchNetworkChange()
	c.switchMu.Unlock()
	defer watcher.stop()

	var header *entity.BlockHeader
	if err := requester.Call(ctx, &header, "eth_getBlockByNumber", "latest", false); err != nil {
		return false, fmt.Errorf("fetch latest block: %w", err)
	}
	supported := header.SupportsEIP1559()

	c.switchMu.Lock()
	if !watcher.changed.Load() {
		c.store.Update(func(state *entity.ControllerState) {
			state.NetworkDetails = state.NetworkDetails.WithEIP(entity.EIP1559, supported)
		})
	}
	c.switchMu.Unlock()
	return supported, nil
}

// Destroy waits for background lookups and closes the active client.
func (c *NetworkController) Destroy() {
	c.lookups.Wait()

	c.switchMu.Lock()
	client := c.client
	c.client = nil
	c.switchMu.Unlock()
	closeClient(client)
}

// normalize pins the chain id, ticker and explorer of well-known networks and checks that
// custom networks carry an endpoint and chain id.
func (c *NetworkController) normalize(cfg entity.ProviderConfiguration) (entity.ProviderConfiguration, error) {
	if cfg.Type.IsCustom() {
		if cfg.RPCURL == "" || cfg.ChainID == "" {
			return cfg, fmt.Errorf("%w: custom network requires rpc url and chain id", entity.ErrConfiguration)
		}
		return cfg.Clone(), nil
	}

	def, ok := c.definitions.GetNetworkDefinition(cfg.Type)
	if !ok {
		return cfg, fmt.Errorf("%w: unknown network type %q", entity.ErrConfiguration, cfg.Type)
	}
	return entity.ProviderConfiguration{
		Type:     def.Type,
		ChainID:  def.ChainID,
		Ticker:   def.Ticker,
		RPCPrefs: &entity.RPCPrefs{BlockExplorerURL: def.BlockExplorerURL},
	}, nil
}

func (c *NetworkController) isManaged(cfg entity.ProviderConfiguration) bool {
	if cfg.Type.IsCustom() {
		return false
	}
	def, ok := c.definitions.GetNetworkDefinition(cfg.Type)
	return ok && def.Managed
}

func resetLookupState(state *entity.ControllerState) {
	state.NetworkID = nil
	state.NetworkStatus = entity.NetworkStatusUnknown
	state.NetworkDetails = entity.NewNetworkDetails()
}

func clientParams(cfg entity.ProviderConfiguration) port.NetworkClientParams {
	if cfg.Type.IsCustom() {
		return port.NetworkClientParams{Type: cfg.Type, RPCURL: cfg.RPCURL, ChainID: cfg.ChainID}
	}
	return port.NetworkClientParams{Type: cfg.Type, ChainID: cfg.ChainID}
}

func describe(cfg entity.ProviderConfiguration) string {
	if cfg.Type.IsCustom() {
		return fmt.Sprintf("rpc(%s)", cfg.ChainID)
	}
	return string(cfg.Type)
}

// isCountryBlocked detects Infura's region block, signalled by a JSON body of
// {"error":"countryBlocked"} carried in the error message.
func isCountryBlocked(err *entity.RPCError) bool {
	var body struct {
		Error string `json:"error"`
	}
	if jsoniter.UnmarshalFromString(strings.TrimSpace(err.Message), &body) != nil {
		return false
	}
	return body.Error == countryBlockedSignal
}

// parseNetworkID accepts net_version answers encoded either as a decimal string or as a
// JSON number.
func parseNetworkID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return "", fmt.Errorf("malformed network id %q: %w", id, err)
		}
		return id, nil
	case float64:
		if id < 0 || id != math.Trunc(id) || id > math.MaxUint64 {
			return "", fmt.Errorf("malformed network id %v", id)
		}
		return strconv.FormatUint(uint64(id), 10), nil
	default:
		return "", fmt.Errorf("unexpected network id type %T", v)
	}
}
