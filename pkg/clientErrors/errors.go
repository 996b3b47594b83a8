package clientErrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the stage of an authenticated call that failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig means no account identity could be resolved for the call.
	KindConfig
	// KindSigning means the key-holder could not produce a signature.
	KindSigning
	// KindApi means the transport failed or the venue returned a non-success status.
	KindApi
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindSigning:
		return "signing"
	case KindApi:
		return "api"
	default:
		return "unknown"
	}
}

// Error is returned by every authenticated call. Op names the operation,
// e.g. "POST /v3/api-keys".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ApiError carries the venue's response for a failed request. StatusCode is 0
// when the request never produced a response; Err then holds the cause.
type ApiError struct {
	StatusCode int
	Body       []byte
	Message    string
	Err        error
}

func (e *ApiError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func NewConfigError(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

func NewSigningError(op string, err error) *Error {
	return &Error{Kind: KindSigning, Op: op, Err: err}
}

func NewApiError(op string, apiErr *ApiError) *Error {
	return &Error{Kind: KindApi, Op: op, Err: apiErr}
}

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsConfigError(err error) bool {
	return KindOf(err) == KindConfig
}

func IsSigningError(err error) bool {
	return KindOf(err) == KindSigning
}

func IsApiError(err error) bool {
	return KindOf(err) == KindApi
}

// AsApiError extracts the venue response details from err.
func AsApiError(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
