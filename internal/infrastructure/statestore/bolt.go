package statestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrClosed is returned when operating on a closed persister.
var ErrClosed = errors.New("state persister closed")

var (
	bucketNetwork = []byte("network")
	keyState      = []byte("state")
)

// BoltPersister stores the controller state as a single JSON document in bbolt.
type BoltPersister struct {
	mu     sync.RWMutex
	db     *bolt.DB
	closed bool
}

var _ port.StatePersister = (*BoltPersister)(nil)

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*BoltPersister, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNetwork)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucketNetwork, err)
	}

	return &BoltPersister{db: db}, nil
}

// Load returns the persisted state, or nil when nothing has been saved yet.
func (p *BoltPersister) Load() (*entity.ControllerState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	var state *entity.ControllerState
	err := p.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNetwork).Get(keyState)
		if data == nil {
			return nil
		}
		state = &entity.ControllerState{}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return state, nil
}

// Save replaces the persisted state.
func (p *BoltPersister) Save(state entity.ControllerState) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNetwork).Put(keyState, data)
	}); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Close closes the database.
func (p *BoltPersister) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
