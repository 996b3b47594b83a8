// Package persistencetest holds the behavioral suite every
// IApiKeyPersistence implementation must pass.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSuite exercises p. Owners are random so suites can share a backend.
func RunSuite(t *testing.T, p persistence.IApiKeyPersistence) {
	newOwner := func() common.Address {
		id := uuid.New()
		return common.BytesToAddress(id[:])
	}
	base := time.Date(2021, 3, 4, 10, 6, 7, 0, time.UTC)

	t.Run("Should save and load a record", func(t *testing.T) {
		owner := newOwner()
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xPUBKEY", base)))

		loaded, err := p.LoadApiKey(owner, "0xPUBKEY")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, owner, loaded.Owner)
		assert.Equal(t, base.UnixMilli(), loaded.CreatedAt)
	})

	t.Run("Should return nil for a missing record", func(t *testing.T) {
		loaded, err := p.LoadApiKey(newOwner(), "0xMISSING")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Should reject nil records", func(t *testing.T) {
		assert.Error(t, p.SaveApiKey(nil))
	})

	t.Run("Should scope records by owner", func(t *testing.T) {
		alice, bob := newOwner(), newOwner()
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(alice, "0xSHARED", base)))

		loaded, err := p.LoadApiKey(bob, "0xSHARED")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		existed, err := p.DeleteApiKey(bob, "0xSHARED")
		require.NoError(t, err)
		assert.False(t, existed)

		loaded, err = p.LoadApiKey(alice, "0xSHARED")
		require.NoError(t, err)
		assert.NotNil(t, loaded)
	})

	t.Run("Should list records in creation order", func(t *testing.T) {
		owner := newOwner()
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xC", base.Add(2*time.Second))))
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xA", base)))
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xB", base.Add(time.Second))))

		records, err := p.ListApiKeys(owner)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "0xA", records[0].Key)
		assert.Equal(t, "0xB", records[1].Key)
		assert.Equal(t, "0xC", records[2].Key)
	})

	t.Run("Should list nothing for an unknown owner", func(t *testing.T) {
		records, err := p.ListApiKeys(newOwner())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Should overwrite on save", func(t *testing.T) {
		owner := newOwner()
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xPUBKEY", base)))
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xPUBKEY", base.Add(time.Minute))))

		records, err := p.ListApiKeys(owner)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, base.Add(time.Minute).UnixMilli(), records[0].CreatedAt)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		owner := newOwner()
		require.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xPUBKEY", base)))

		existed, err := p.DeleteApiKey(owner, "0xPUBKEY")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = p.DeleteApiKey(owner, "0xPUBKEY")
		require.NoError(t, err)
		assert.False(t, existed)

		records, err := p.ListApiKeys(owner)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Should handle concurrent writers", func(t *testing.T) {
		owner := newOwner()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, fmt.Sprintf("0x%02d", i), base)))
			}(i)
		}
		wg.Wait()

		records, err := p.ListApiKeys(owner)
		require.NoError(t, err)
		assert.Len(t, records, 20)
	})

	t.Run("Should pass the health check", func(t *testing.T) {
		assert.NoError(t, p.HealthCheck())
	})
}

// RunCloseSuite checks behavior after Close. It closes p.
func RunCloseSuite(t *testing.T, p persistence.IApiKeyPersistence) {
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close should be idempotent")

	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	assert.Error(t, p.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xPUBKEY", time.Now())))
	_, err := p.LoadApiKey(owner, "0xPUBKEY")
	assert.Error(t, err)
	_, err = p.ListApiKeys(owner)
	assert.Error(t, err)
	_, err = p.DeleteApiKey(owner, "0xPUBKEY")
	assert.Error(t, err)
	assert.Error(t, p.HealthCheck())
}
