package types

// Authentication headers attached to every signed request.
const (
	HeaderSignature       = "DYDX-SIGNATURE"
	HeaderTimestamp       = "DYDX-TIMESTAMP"
	HeaderEthereumAddress = "DYDX-ETHEREUM-ADDRESS"
)
