package main

import (
	"context"
	"strings"
	"testing"

	"github.com/Layr-Labs/dydx-api-keys-go/internal/keyGenerator/localKeyGenerator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func Test_DescribeKey(t *testing.T) {
	t.Run("Should describe a key by its public key and address", func(t *testing.T) {
		gen := localKeyGenerator.NewLocalKeyGenerator(zaptest.NewLogger(t))
		key, err := gen.GenerateECDSAKey(context.Background(), "api-key", "")
		require.NoError(t, err)

		out, err := describeKey(key)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(out["publicKey"], "0x04"))
		assert.Equal(t, key.Address.Hex(), out["address"])
		assert.NotContains(t, out, "privateKey")
	})
}
