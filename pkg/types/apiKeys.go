package types

// ApiKey is a venue-owned API key record.
type ApiKey struct {
	Key             string `json:"key"`
	EthereumAddress string `json:"ethereumAddress,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// ApiKeysResponse is the body of GET /v3/api-keys.
type ApiKeysResponse struct {
	ApiKeys []ApiKey `json:"apiKeys"`
}

// ApiKeyResponse is the body of POST /v3/api-keys.
type ApiKeyResponse struct {
	ApiKey ApiKey `json:"apiKey"`
}

// RegisterApiKeyRequest is the body of POST /v3/api-keys.
type RegisterApiKeyRequest struct {
	ApiKey string `json:"apiKey"`
}

// ErrorResponse is the venue's error body.
type ErrorResponse struct {
	Errors []ErrorDetail `json:"errors"`
}

type ErrorDetail struct {
	Msg string `json:"msg"`
}
