package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalApiKeyRecord serializes an ApiKeyRecord to JSON bytes.
func MarshalApiKeyRecord(record *ApiKeyRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil ApiKeyRecord")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ApiKeyRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalApiKeyRecord deserializes an ApiKeyRecord from JSON bytes.
func UnmarshalApiKeyRecord(data []byte) (*ApiKeyRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record ApiKeyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ApiKeyRecord: %w", err)
	}

	return &record, nil
}
