package verifier

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clock"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrMissingHeader     = errors.New("missing authentication header")
	ErrInvalidAddress    = errors.New("invalid ethereum address header")
	ErrInvalidTimestamp  = errors.New("invalid timestamp header")
	ErrStaleTimestamp    = errors.New("timestamp outside of the accepted window")
	ErrSignatureMismatch = errors.New("signature does not match ethereum address")
)

const (
	DefaultMaxAge    = 30 * time.Second
	DefaultMaxFuture = 5 * time.Second
)

type Config struct {
	ChainId uint64
	// MaxAge is how far in the past a request timestamp may be.
	MaxAge time.Duration
	// MaxFuture is how far ahead of the local clock a request timestamp may be.
	MaxFuture time.Duration
}

// Verifier authenticates requests signed with DYDX-* headers.
type Verifier struct {
	chainId   uint64
	maxAge    time.Duration
	maxFuture time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewVerifier(cfg *Config, logger *zap.Logger) *Verifier {
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	maxFuture := cfg.MaxFuture
	if maxFuture == 0 {
		maxFuture = DefaultMaxFuture
	}
	return &Verifier{
		chainId:   cfg.ChainId,
		maxAge:    maxAge,
		maxFuture: maxFuture,
		now:       time.Now,
		logger:    logger,
	}
}

// SetNow replaces the clock used for the freshness check.
func (v *Verifier) SetNow(now func() time.Time) {
	v.now = now
}

// Verify checks a signed request given its method, request URI (path and
// query as sent), raw body and headers, returning the authenticated address.
func (v *Verifier) Verify(method string, requestURI string, body []byte, headers http.Header) (common.Address, error) {
	signature := headers.Get(types.HeaderSignature)
	timestamp := headers.Get(types.HeaderTimestamp)
	addressHex := headers.Get(types.HeaderEthereumAddress)
	for _, h := range []struct{ name, value string }{
		{types.HeaderSignature, signature},
		{types.HeaderTimestamp, timestamp},
		{types.HeaderEthereumAddress, addressHex},
	} {
		if h.value == "" {
			return common.Address{}, errors.Wrapf(ErrMissingHeader, "%s", h.name)
		}
	}

	if !common.IsHexAddress(addressHex) {
		return common.Address{}, errors.Wrapf(ErrInvalidAddress, "%q", addressHex)
	}
	address := common.HexToAddress(addressHex)

	ts, err := clock.ParseTimestamp(timestamp)
	if err != nil {
		return common.Address{}, errors.Wrapf(ErrInvalidTimestamp, "%v", err)
	}
	now := v.now()
	if now.Sub(ts) > v.maxAge || ts.Sub(now) > v.maxFuture {
		return common.Address{}, errors.Wrapf(ErrStaleTimestamp, "timestamp %s, now %s", timestamp, clock.FormatTimestamp(now))
	}

	action := offChainSigning.NewApiKeyActionFromEncodedBody(requestURI, method, string(bytes.TrimSpace(body)))
	ok, err := offChainSigning.VerifySignature(address, action, v.chainId, timestamp, signature)
	if err != nil {
		return common.Address{}, errors.Wrapf(ErrSignatureMismatch, "%v", err)
	}
	if !ok {
		return common.Address{}, ErrSignatureMismatch
	}
	return address, nil
}

// VerifyRequest verifies r and restores its body for later readers.
func (v *Verifier) VerifyRequest(r *http.Request) (common.Address, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return common.Address{}, errors.Wrap(err, "failed to read request body")
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	return v.Verify(r.Method, r.RequestURI, body, r.Header)
}

type contextKey struct{}

// AddressFromContext returns the address set by Middleware.
func AddressFromContext(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(contextKey{}).(common.Address)
	return addr, ok
}

// Middleware rejects unauthenticated requests with 401 and stores the
// authenticated address in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, err := v.VerifyRequest(r)
		if err != nil {
			v.logger.Sugar().Infow("Rejected request",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, addr)))
	})
}
