package persistence

import "github.com/ethereum/go-ethereum/common"

// IApiKeyPersistence stores API key records scoped by owning Ethereum
// address. All implementations must be thread-safe as the venue serves
// requests concurrently.
type IApiKeyPersistence interface {
	// SaveApiKey persists a record under its owner. Saving an existing key
	// overwrites it; returns error only on storage failure.
	SaveApiKey(record *ApiKeyRecord) error

	// LoadApiKey retrieves a record. Returns nil if it doesn't exist, error
	// only on storage failure.
	LoadApiKey(owner common.Address, key string) (*ApiKeyRecord, error)

	// ListApiKeys returns the records of owner sorted by creation time, then
	// key. Returns an empty slice if there are none.
	ListApiKeys(owner common.Address) ([]*ApiKeyRecord, error)

	// DeleteApiKey removes a record and reports whether it existed.
	DeleteApiKey(owner common.Address, key string) (bool, error)

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
