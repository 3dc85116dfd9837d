package client

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

const (
	latestBlockKey         = "latest"
	defaultPollingInterval = 20 * time.Second
)

// ErrEmptyBlock is reported when the node answers eth_getBlockByNumber with null.
var ErrEmptyBlock = errors.New("node returned no block")

// blockPoller polls eth_getBlockByNumber("latest") while it has chain-data listeners.
// Listeners are invoked on the polling goroutine, outside the poller's lock.
type blockPoller struct {
	requester port.Requester
	interval  time.Duration
	cache     *cache.Cache
	logger    *zap.Logger

	mu        sync.Mutex
	nextID    uint64
	listeners map[port.PollerEvent]map[uint64]port.PollerListener
	cancel    context.CancelFunc
	done      chan struct{}
	last      *entity.BlockHeader
}

var _ port.BlockPoller = (*blockPoller)(nil)

func newBlockPoller(requester port.Requester, interval, cacheTTL time.Duration, logger *zap.Logger) *blockPoller {
	if interval <= 0 {
		interval = defaultPollingInterval
	}
	if cacheTTL <= 0 {
		cacheTTL = interval
	}
	return &blockPoller{
		requester: requester,
		interval:  interval,
		cache:     cache.New(cacheTTL, 2*cacheTTL),
		logger:    logger,
		listeners: make(map[port.PollerEvent]map[uint64]port.PollerListener),
	}
}

// GetLatestBlock implements port.BlockPoller. A header younger than the cache TTL is served
// without I/O.
func (p *blockPoller) GetLatestBlock(ctx context.Context) (*entity.BlockHeader, error) {
	if cached, ok := p.cache.Get(latestBlockKey); ok {
		return cached.(*entity.BlockHeader), nil
	}
	return p.fetchLatest(ctx)
}

func (p *blockPoller) fetchLatest(ctx context.Context) (*entity.BlockHeader, error) {
	var header *entity.BlockHeader
	if err := p.requester.Call(ctx, &header, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, ErrEmptyBlock
	}
	p.cache.SetDefault(latestBlockKey, header)
	return header, nil
}

// Subscribe implements port.BlockPoller. The first chain-data listener starts polling and
// removing the last one stops it.
func (p *blockPoller) Subscribe(event port.PollerEvent, l port.PollerListener) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	if p.listeners[event] == nil {
		p.listeners[event] = make(map[uint64]port.PollerListener)
	}
	p.listeners[event][id] = l
	first := !event.IsInternal() && p.chainListenersLocked() == 1
	p.mu.Unlock()

	p.emit(port.PollerEventNewListener, event)
	if first {
		p.Start()
	}

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(event, id) })
	}
}

func (p *blockPoller) unsubscribe(event port.PollerEvent, id uint64) {
	p.mu.Lock()
	delete(p.listeners[event], id)
	if len(p.listeners[event]) == 0 {
		delete(p.listeners, event)
	}
	idle := !event.IsInternal() && p.chainListenersLocked() == 0
	p.mu.Unlock()

	p.emit(port.PollerEventRemoveListener, event)
	if idle {
		p.Stop()
	}
}

func (p *blockPoller) chainListenersLocked() int {
	n := 0
	for event, ls := range p.listeners {
		if !event.IsInternal() {
			n += len(ls)
		}
	}
	return n
}

// Start implements port.BlockPoller.
func (p *blockPoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop implements port.BlockPoller. It does not wait for an in-flight poll, so it is safe
// to call from a listener.
func (p *blockPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// wait blocks until the last started polling goroutine has exited.
func (p *blockPoller) wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *blockPoller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *blockPoller) poll(ctx context.Context) {
	header, err := p.fetchLatest(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Debug("Failed to poll latest block", zap.Error(err))
		p.emit(port.PollerEventError, err)
		return
	}

	p.mu.Lock()
	changed := p.last == nil || p.last.NumberUint64() != header.NumberUint64()
	if changed {
		p.last = header
	}
	p.mu.Unlock()

	if changed {
		p.emit(port.PollerEventLatest, header)
		p.emit(port.PollerEventSync, header)
	}
}

func (p *blockPoller) emit(event port.PollerEvent, payload any) {
	p.mu.Lock()
	ls := make([]port.PollerListener, 0, len(p.listeners[event]))
	ids := make([]uint64, 0, len(p.listeners[event]))
	for id := range p.listeners[event] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		ls = append(ls, p.listeners[event][id])
	}
	p.mu.Unlock()

	for _, l := range ls {
		l(payload)
	}
}
