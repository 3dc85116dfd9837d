// Package statestore holds the controller state in memory, notifies subscribers of changes
// and optionally writes every change through to a persister.
package statestore

import (
	"sync"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

type subscriber struct {
	id uint64
	fn func(entity.ControllerState)
}

// Store implements port.StateStore.
type Store struct {
	mu        sync.RWMutex
	state     entity.ControllerState
	persister port.StatePersister
	logger    port.Logger

	subMu  sync.Mutex
	nextID uint64
	subs   []subscriber
}

var _ port.StateStore = (*Store)(nil)

// New creates a store seeded with initial. persister may be nil.
func New(initial entity.ControllerState, persister port.StatePersister, logger port.Logger) *Store {
	return &Store{
		state:     initial.Clone(),
		persister: persister,
		logger:    logger,
	}
}

// Restore creates a store from the persisted state, falling back to initial when nothing
// was saved. The provider configuration and registry survive a restart; the lookup
// outcome does not, since it describes a connection that no longer exists.
func Restore(initial entity.ControllerState, persister port.StatePersister, logger port.Logger) (*Store, error) {
	if persister == nil {
		return New(initial, nil, logger), nil
	}
	saved, err := persister.Load()
	if err != nil {
		return nil, err
	}
	if saved == nil {
		logger.Info("No persisted network state found, using configured defaults")
		return New(initial, persister, logger), nil
	}

	state := entity.NewControllerState(saved.ProviderConfig)
	if saved.NetworkConfigurations != nil {
		state.NetworkConfigurations = saved.NetworkConfigurations
	}
	logger.Info("Restored persisted network state",
		"type", state.ProviderConfig.Type,
		"chainId", state.ProviderConfig.ChainID,
		"networkConfigurations", len(state.NetworkConfigurations),
	)
	return New(state, persister, logger), nil
}

// Get implements port.StateStore.
func (s *Store) Get() entity.ControllerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update implements port.StateStore. Persistence failures are logged; the in-memory state
// remains authoritative.
func (s *Store) Update(fn func(state *entity.ControllerState)) entity.ControllerState {
	s.mu.Lock()
	next := s.state.Clone()
	fn(&next)
	s.state = next
	if s.persister != nil {
		if err := s.persister.Save(next); err != nil {
			s.logger.Error("Failed to persist network state", "error", err)
		}
	}
	snapshot := next.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return snapshot
}

// Subscribe implements port.StateStore.
func (s *Store) Subscribe(fn func(entity.ControllerState)) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(state entity.ControllerState) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(state.Clone())
	}
}
