package badger

import (
	"testing"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/logger"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence/persistencetest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T, dir string) *BadgerPersistence {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	persistencetest.RunSuite(t, bp)
}

func TestBadgerPersistence_Close(t *testing.T) {
	persistencetest.RunCloseSuite(t, newTestPersistence(t, t.TempDir()))
}

func TestBadgerPersistence_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	bp := newTestPersistence(t, dir)
	require.NoError(t, bp.SaveApiKey(persistence.NewApiKeyRecord(owner, "0xPUBKEY", time.Now())))
	require.NoError(t, bp.Close())

	reopened := newTestPersistence(t, dir)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.ListApiKeys(owner)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xPUBKEY", records[0].Key)
}

func TestBadgerPersistence_PrefixIsolation(t *testing.T) {
	bp := newTestPersistence(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000010")
	require.NoError(t, bp.SaveApiKey(persistence.NewApiKeyRecord(a, "0xA", time.Now())))
	require.NoError(t, bp.SaveApiKey(persistence.NewApiKeyRecord(b, "0xB", time.Now())))

	records, err := bp.ListApiKeys(a)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xA", records[0].Key)
}
