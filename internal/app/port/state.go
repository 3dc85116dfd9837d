package port

import "network_controller/internal/domain/entity"

// StateStore is an observable container for the controller state.
type StateStore interface {
	// Get returns a copy of the current state.
	Get() entity.ControllerState
	// Update applies fn to a copy of the state, stores the result and notifies subscribers.
	Update(fn func(state *entity.ControllerState)) entity.ControllerState
	// Subscribe registers fn for state changes and returns a function that removes it.
	Subscribe(fn func(state entity.ControllerState)) (unsubscribe func())
}

// StatePersister loads and saves controller state across restarts.
type StatePersister interface {
	Load() (*entity.ControllerState, error)
	Save(state entity.ControllerState) error
}
