package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
	networkdefinition "network_controller/internal/infrastructure/network/definition"
	"network_controller/internal/infrastructure/statestore"
	"network_controller/internal/pkg/events"
	"network_controller/internal/pkg/logger"
)

var testJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type response struct {
	result any
	err    error
}

// fakeRequester answers per method. With a gate set, calls block until it is closed.
type fakeRequester struct {
	mu        sync.Mutex
	responses map[string]response
	calls     map[string]int
	gate      chan struct{}
	started   chan string
}

func newFakeRequester(responses map[string]response) *fakeRequester {
	return &fakeRequester{responses: responses, calls: map[string]int{}}
}

// gated makes every call wait for release and reports dispatched methods on started.
func (r *fakeRequester) gated() (started <-chan string, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.started = make(chan string, 8)
	var once sync.Once
	gate := r.gate
	return r.started, func() { once.Do(func() { close(gate) }) }
}

func (r *fakeRequester) Call(_ context.Context, result any, method string, _ ...any) error {
	r.mu.Lock()
	r.calls[method]++
	resp, ok := r.responses[method]
	gate, started := r.gate, r.started
	r.mu.Unlock()

	if started != nil {
		started <- method
	}
	if gate != nil {
		<-gate
	}
	if !ok {
		return fmt.Errorf("no response configured for %s", method)
	}
	if resp.err != nil {
		return resp.err
	}
	data, err := testJSON.Marshal(resp.result)
	if err != nil {
		return err
	}
	return testJSON.Unmarshal(data, result)
}

func (r *fakeRequester) setResponses(responses map[string]response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = responses
}

func (r *fakeRequester) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

type fakePoller struct {
	mu        sync.Mutex
	listeners map[port.PollerEvent][]port.PollerListener
	latest    *entity.BlockHeader
}

func newFakePoller() *fakePoller {
	return &fakePoller{listeners: map[port.PollerEvent][]port.PollerListener{}}
}

func (p *fakePoller) GetLatestBlock(context.Context) (*entity.BlockHeader, error) {
	if p.latest == nil {
		return nil, errors.New("no block")
	}
	return p.latest, nil
}

func (p *fakePoller) Subscribe(event port.PollerEvent, l port.PollerListener) func() {
	p.mu.Lock()
	p.listeners[event] = append(p.listeners[event], l)
	idx := len(p.listeners[event]) - 1
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.listeners[event][idx] = nil
		p.mu.Unlock()
	}
}

func (p *fakePoller) Start() {}
func (p *fakePoller) Stop()  {}

func (p *fakePoller) emit(event port.PollerEvent, payload any) {
	p.mu.Lock()
	ls := append([]port.PollerListener(nil), p.listeners[event]...)
	p.mu.Unlock()
	for _, l := range ls {
		if l != nil {
			l(payload)
		}
	}
}

type fakeNetwork struct {
	requester *fakeRequester
	poller    *fakePoller
}

func newFakeNetwork(responses map[string]response) *fakeNetwork {
	return &fakeNetwork{requester: newFakeRequester(responses), poller: newFakePoller()}
}

type fakeClient struct {
	network *fakeNetwork
	factory *fakeFactory
}

func (c *fakeClient) Requester() port.Requester     { return c.network.requester }
func (c *fakeClient) BlockPoller() port.BlockPoller { return c.network.poller }
func (c *fakeClient) Close() {
	c.factory.mu.Lock()
	c.factory.closed++
	c.factory.mu.Unlock()
}

// fakeFactory serves networks keyed by well-known type or, for custom networks, RPC URL.
type fakeFactory struct {
	mu       sync.Mutex
	networks map[string]*fakeNetwork
	created  []port.NetworkClientParams
	closed   int
}

func (f *fakeFactory) Create(_ context.Context, params port.NetworkClientParams) (port.NetworkClient, error) {
	key := string(params.Type)
	if params.Type.IsCustom() {
		key = params.RPCURL
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.networks[key]
	if !ok {
		return nil, fmt.Errorf("%w: no network for %q", entity.ErrConfiguration, key)
	}
	f.created = append(f.created, params)
	return &fakeClient{network: n, factory: f}, nil
}

func (f *fakeFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeFactory) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeMetrics struct {
	mu       sync.Mutex
	events   []entity.MetricsEvent
	switches []entity.NetworkType
	statuses []entity.NetworkStatus

	// onStatus, when set, runs after every recorded status.
	onStatus func(entity.NetworkStatus)
}

func (m *fakeMetrics) TrackEvent(e entity.MetricsEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *fakeMetrics) IncNetworkSwitch(t entity.NetworkType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switches = append(m.switches, t)
}

func (m *fakeMetrics) SetNetworkStatus(s entity.NetworkStatus) {
	m.mu.Lock()
	m.statuses = append(m.statuses, s)
	hook := m.onStatus
	m.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

func (m *fakeMetrics) lastStatus() entity.NetworkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

func (m *fakeMetrics) ObserveLookup(entity.NetworkStatus, time.Duration) {}

func (m *fakeMetrics) trackedEvents() []entity.MetricsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.MetricsEvent(nil), m.events...)
}

// eventLog records controller lifecycle publications.
type eventLog struct {
	mu     sync.Mutex
	topics []events.Topic
}

func recordEvents(c *NetworkController) *eventLog {
	log := &eventLog{}
	for _, topic := range []events.Topic{
		events.NetworkWillChange, events.NetworkDidChange, events.InfuraBlocked, events.InfuraUnblocked,
	} {
		topic := topic
		c.Subscribe(topic, func() {
			log.mu.Lock()
			log.topics = append(log.topics, topic)
			log.mu.Unlock()
		})
	}
	return log
}

func (l *eventLog) all() []events.Topic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.Topic(nil), l.topics...)
}

func (l *eventLog) count(topic events.Topic) int {
	n := 0
	for _, t := range l.all() {
		if t == topic {
			n++
		}
	}
	return n
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.topics = nil
}

type testEnv struct {
	controller *NetworkController
	factory    *fakeFactory
	metrics    *fakeMetrics
	store      *statestore.Store
}

func newTestEnv(t *testing.T, initial entity.ProviderConfiguration, networks map[string]*fakeNetwork) *testEnv {
	t.Helper()
	store := statestore.New(entity.NewControllerState(initial), nil, logger.NewSlogAdapter())
	factory := &fakeFactory{networks: networks}
	metrics := &fakeMetrics{}
	defs := networkdefinition.NewNetworkDefinitionProvider(logger.NewSlogAdapter())
	c := NewNetworkController(store, factory, defs, metrics, logger.NewSlogAdapter(), zap.NewNop())
	t.Cleanup(c.Destroy)
	return &testEnv{controller: c, factory: factory, metrics: metrics, store: store}
}

func mainnetConfig() entity.ProviderConfiguration {
	return entity.ProviderConfiguration{Type: entity.NetworkTypeMainnet, ChainID: "0x1"}
}

func block(baseFee string) map[string]any {
	b := map[string]any{
		"number":     "0x10",
		"hash":       "0x00000000000000000000000000000000000000000000000000000000000000aa",
		"parentHash": "0x00000000000000000000000000000000000000000000000000000000000000bb",
		"timestamp":  "0x5",
	}
	if baseFee != "" {
		b["baseFeePerGas"] = baseFee
	}
	return b
}

func healthy(networkID string, baseFee string) map[string]response {
	return map[string]response{
		"net_version":          {result: networkID},
		"eth_getBlockByNumber": {result: block(baseFee)},
	}
}

func waitStarted(t *testing.T, started <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			require.FailNow(t, "lookup requests were not dispatched")
		}
	}
}
