package verifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clock"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/localKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChainId = uint64(5)

var testNow = time.Date(2021, 3, 4, 10, 6, 7, 891_000_000, time.UTC)

type signedRequest struct {
	method string
	target string
	body   string
	ts     string
}

func newSigner(t *testing.T) (*offChainSigning.OffChainSigner, common.Address) {
	t.Helper()
	kh := localKeyHolder.NewLocalKeyHolder(zap.NewNop())
	addr, err := kh.GenerateKey()
	require.NoError(t, err)
	return offChainSigning.NewOffChainSigner(kh, testChainId, zap.NewNop()), addr
}

func buildRequest(t *testing.T, signer *offChainSigning.OffChainSigner, addr common.Address, sr signedRequest) *http.Request {
	t.Helper()
	action := offChainSigning.NewApiKeyActionFromEncodedBody(sr.target, sr.method, sr.body)
	sig, err := signer.Sign(context.Background(), addr, action, sr.ts)
	require.NoError(t, err)

	var body io.Reader
	if sr.body != "" {
		body = strings.NewReader(sr.body)
	}
	req := httptest.NewRequest(sr.method, sr.target, body)
	req.Header.Set(types.HeaderSignature, sig)
	req.Header.Set(types.HeaderTimestamp, sr.ts)
	req.Header.Set(types.HeaderEthereumAddress, addr.Hex())
	return req
}

func newTestVerifier() *Verifier {
	v := NewVerifier(&Config{ChainId: testChainId}, zap.NewNop())
	v.SetNow(func() time.Time { return testNow })
	return v
}

func Test_Verifier(t *testing.T) {
	signer, addr := newSigner(t)
	ts := clock.FormatTimestamp(testNow)

	t.Run("Should accept a signed POST", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodPost, "/v3/api-keys", `{"apiKey":"0xPUBKEY"}`, ts})
		got, err := newTestVerifier().VerifyRequest(req)
		require.NoError(t, err)
		assert.Equal(t, addr, got)

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"apiKey":"0xPUBKEY"}`, string(body))
	})

	t.Run("Should accept a signed DELETE with its query", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodDelete, "/v3/api-keys?apiKey=0xPUBKEY", "", ts})
		got, err := newTestVerifier().VerifyRequest(req)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	})

	t.Run("Should reject a request whose query was altered", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodDelete, "/v3/api-keys?apiKey=0xPUBKEY", "", ts})
		tampered := httptest.NewRequest(http.MethodDelete, "/v3/api-keys?apiKey=0xOTHER", nil)
		tampered.Header = req.Header
		_, err := newTestVerifier().VerifyRequest(tampered)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("Should reject a claimed address that did not sign", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", ts})
		req.Header.Set(types.HeaderEthereumAddress, "0x000000000000000000000000000000000000dEaD")
		_, err := newTestVerifier().VerifyRequest(req)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("Should reject missing headers", func(t *testing.T) {
		for _, h := range []string{types.HeaderSignature, types.HeaderTimestamp, types.HeaderEthereumAddress} {
			req := buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", ts})
			req.Header.Del(h)
			_, err := newTestVerifier().VerifyRequest(req)
			assert.ErrorIs(t, err, ErrMissingHeader, h)
		}
	})

	t.Run("Should name the first missing header in a fixed order", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			_, err := newTestVerifier().Verify(http.MethodGet, "/v3/api-keys", nil, http.Header{})
			require.ErrorIs(t, err, ErrMissingHeader)
			assert.Contains(t, err.Error(), types.HeaderSignature)
		}

		headers := http.Header{}
		headers.Set(types.HeaderSignature, "0x00")
		_, err := newTestVerifier().Verify(http.MethodGet, "/v3/api-keys", nil, headers)
		require.ErrorIs(t, err, ErrMissingHeader)
		assert.Contains(t, err.Error(), types.HeaderTimestamp)
	})

	t.Run("Should reject malformed timestamps and addresses", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", "yesterday"})
		_, err := newTestVerifier().VerifyRequest(req)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)

		req = buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", ts})
		req.Header.Set(types.HeaderEthereumAddress, "not-an-address")
		_, err = newTestVerifier().VerifyRequest(req)
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("Should enforce the freshness window", func(t *testing.T) {
		cases := []struct {
			name   string
			offset time.Duration
			ok     bool
		}{
			{"now", 0, true},
			{"29s old", -29 * time.Second, true},
			{"31s old", -31 * time.Second, false},
			{"4s ahead", 4 * time.Second, true},
			{"6s ahead", 6 * time.Second, false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				reqTs := clock.FormatTimestamp(testNow.Add(tc.offset))
				req := buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", reqTs})
				_, err := newTestVerifier().VerifyRequest(req)
				if tc.ok {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, ErrStaleTimestamp)
				}
			})
		}
	})

	t.Run("Should reject signatures made for another chain", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", ts})
		v := NewVerifier(&Config{ChainId: 1}, zap.NewNop())
		v.SetNow(func() time.Time { return testNow })
		_, err := v.VerifyRequest(req)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})
}

func Test_Middleware(t *testing.T) {
	signer, addr := newSigner(t)
	ts := clock.FormatTimestamp(testNow)

	var seen common.Address
	handler := newTestVerifier().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AddressFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("Should pass the authenticated address to the handler", func(t *testing.T) {
		req := buildRequest(t, signer, addr, signedRequest{http.MethodGet, "/v3/api-keys", "", ts})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, addr, seen)
	})

	t.Run("Should answer 401 with an error body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v3/api-keys", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"errors":[{"msg":`)
	})
}
