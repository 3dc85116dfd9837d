package proxy

import (
	"context"
	"sync"
	"sync/atomic"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

type pollerSubscription struct {
	event    port.PollerEvent
	listener port.PollerListener
	detach   func()
}

// BlockPoller forwards to the block poller of the currently active network and keeps its
// own listener list so subscriptions survive target swaps.
//
// On SetTarget every chain-data listener is detached from the old poller and attached to the
// new one. Listeners of bookkeeping events (newListener, removeListener) are dropped: the
// swap itself adds and removes listeners, and consumers must not observe that churn.
type BlockPoller struct {
	mu       sync.Mutex
	target   atomic.Pointer[port.BlockPoller]
	subs     []*pollerSubscription
	swapping atomic.Bool
}

var _ port.BlockPoller = (*BlockPoller)(nil)

// NewBlockPoller wraps initial.
func NewBlockPoller(initial port.BlockPoller) *BlockPoller {
	p := &BlockPoller{}
	p.target.Store(&initial)
	return p
}

// Target returns the current target.
func (p *BlockPoller) Target() port.BlockPoller {
	return *p.target.Load()
}

// SetTarget moves all chain-data listeners from the current target to next.
func (p *BlockPoller) SetTarget(next port.BlockPoller) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.swapping.Store(true)
	defer p.swapping.Store(false)

	kept := p.subs[:0]
	for _, sub := range p.subs {
		sub.detach()
		if sub.event.IsInternal() {
			continue
		}
		kept = append(kept, sub)
	}
	for i := len(kept); i < len(p.subs); i++ {
		p.subs[i] = nil
	}
	p.subs = kept

	p.target.Store(&next)
	for _, sub := range p.subs {
		sub.detach = next.Subscribe(sub.event, p.forward(sub))
	}
}

// GetLatestBlock implements port.BlockPoller.
func (p *BlockPoller) GetLatestBlock(ctx context.Context) (*entity.BlockHeader, error) {
	return p.Target().GetLatestBlock(ctx)
}

// Subscribe implements port.BlockPoller. The listener stays registered across target swaps
// until the returned function is called.
func (p *BlockPoller) Subscribe(event port.PollerEvent, l port.PollerListener) func() {
	sub := &pollerSubscription{event: event, listener: l}

	p.mu.Lock()
	sub.detach = p.Target().Subscribe(event, p.forward(sub))
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(sub) })
	}
}

// Start implements port.BlockPoller.
func (p *BlockPoller) Start() { p.Target().Start() }

// Stop implements port.BlockPoller.
func (p *BlockPoller) Stop() { p.Target().Stop() }

// ListenerCount returns the number of listeners registered through the proxy.
func (p *BlockPoller) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *BlockPoller) forward(sub *pollerSubscription) port.PollerListener {
	if !sub.event.IsInternal() {
		return sub.listener
	}
	return func(payload any) {
		if p.swapping.Load() {
			return
		}
		sub.listener(payload)
	}
}

func (p *BlockPoller) unsubscribe(sub *pollerSubscription) {
	var detach func()

	p.mu.Lock()
	for i, s := range p.subs {
		if s == sub {
			detach = s.detach
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	// Dropped bookkeeping listeners were already detached by SetTarget.
	if detach != nil {
		detach()
	}
}
