package snapshot

import (
	"fmt"
	"sync"

	"github.com/dgryski/go-farm"
	"github.com/timewinder-dev/watchpoint/vm"
)

type Hash uint64

func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Store is a content-addressed collection of value snapshots. Equal values
// share one entry.
type Store interface {
	Put(v vm.Value) (Hash, error)
	Get(h Hash) (vm.Value, error)
	Has(h Hash) bool
}

type directStore interface {
	getValue(h Hash) (bool, []byte, error)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[Hash][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[Hash][]byte),
	}
}

func (m *MemoryStore) getValue(h Hash) (bool, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[h]
	return ok, v, nil
}

func (m *MemoryStore) Has(h Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[h]
	return ok
}

func (m *MemoryStore) Put(v vm.Value) (Hash, error) {
	data, err := Encode(v)
	if err != nil {
		return 0, err
	}
	h := Hash(farm.Hash64(data))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[h] = data
	return h, nil
}

func (m *MemoryStore) Get(h Hash) (vm.Value, error) {
	return retrieve(m, h)
}

// Len reports the number of distinct snapshots held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func retrieve(s directStore, h Hash) (vm.Value, error) {
	has, data, err := s.getValue(h)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("hash not found in snapshot store: %s", h)
	}
	return Decode(data)
}

// HashOf returns the content hash v would be stored under.
func HashOf(v vm.Value) (Hash, error) {
	data, err := Encode(v)
	if err != nil {
		return 0, err
	}
	return Hash(farm.Hash64(data)), nil
}
