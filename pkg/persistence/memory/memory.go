package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
)

// MemoryPersistence is an in-memory implementation of IApiKeyPersistence.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Copies records to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// owner -> key -> record
	apiKeys map[common.Address]map[string]*persistence.ApiKeyRecord

	closed bool
}

var _ persistence.IApiKeyPersistence = (*MemoryPersistence)(nil)

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		apiKeys: make(map[common.Address]map[string]*persistence.ApiKeyRecord),
	}
}

// SaveApiKey persists a record under its owner.
func (m *MemoryPersistence) SaveApiKey(record *persistence.ApiKeyRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil ApiKeyRecord")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	keys, ok := m.apiKeys[record.Owner]
	if !ok {
		keys = make(map[string]*persistence.ApiKeyRecord)
		m.apiKeys[record.Owner] = keys
	}
	cp := *record
	keys[record.Key] = &cp

	return nil
}

// LoadApiKey retrieves a record, or nil if it doesn't exist.
func (m *MemoryPersistence) LoadApiKey(owner common.Address, key string) (*persistence.ApiKeyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, ok := m.apiKeys[owner][key]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

// ListApiKeys returns the records of owner sorted by creation time.
func (m *MemoryPersistence) ListApiKeys(owner common.Address) ([]*persistence.ApiKeyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	records := make([]*persistence.ApiKeyRecord, 0, len(m.apiKeys[owner]))
	for _, record := range m.apiKeys[owner] {
		cp := *record
		records = append(records, &cp)
	}
	persistence.SortApiKeyRecords(records)

	return records, nil
}

// DeleteApiKey removes a record and reports whether it existed.
func (m *MemoryPersistence) DeleteApiKey(owner common.Address, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, fmt.Errorf("persistence layer is closed")
	}

	keys, ok := m.apiKeys[owner]
	if !ok {
		return false, nil
	}
	if _, ok := keys[key]; !ok {
		return false, nil
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(m.apiKeys, owner)
	}

	return true, nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
