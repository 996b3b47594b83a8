package persistence

import (
	"sort"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// ApiKeyRecord is the stored form of an API key.
type ApiKeyRecord struct {
	Key string `json:"key"`

	// Owner is the Ethereum address that registered the key.
	Owner common.Address `json:"owner"`

	// CreatedAt is the Unix time in milliseconds when the key was registered.
	CreatedAt int64 `json:"createdAt"`
}

func NewApiKeyRecord(owner common.Address, key string, createdAt time.Time) *ApiKeyRecord {
	return &ApiKeyRecord{
		Key:       key,
		Owner:     owner,
		CreatedAt: createdAt.UnixMilli(),
	}
}

// ToApiKey converts the record into its wire form.
func (r *ApiKeyRecord) ToApiKey() types.ApiKey {
	return types.ApiKey{
		Key:             r.Key,
		EthereumAddress: r.Owner.Hex(),
		CreatedAt:       time.UnixMilli(r.CreatedAt).UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// SortApiKeyRecords orders records by creation time, then key.
func SortApiKeyRecords(records []*ApiKeyRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].Key < records[j].Key
	})
}
