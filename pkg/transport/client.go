package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clientErrors"
	"go.uber.org/zap"
)

const defaultUserAgent = "dydx-api-keys-go"

// Request is a fully built HTTP call. Headers already carry the
// authentication values.
type Request struct {
	Url     string
	Method  string
	Headers map[string]string
	Body    []byte
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ITransport sends a request exactly once. Failures are *clientErrors.ApiError.
type ITransport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Client handles network communication with the venue
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

var _ ITransport = (*Client)(nil)

// NewClient creates a new transport client
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  defaultUserAgent,
		logger:     logger,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// Send performs req with no retries; a signed request replayed later may be
// rejected as stale, so retry policy is left to the caller.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.Url, body)
	if err != nil {
		return nil, &clientErrors.ApiError{Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &clientErrors.ApiError{Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &clientErrors.ApiError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err), Err: err}
	}

	c.logger.Sugar().Debugw("Received response",
		"method", req.Method,
		"url", req.Url,
		"status_code", resp.StatusCode,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &clientErrors.ApiError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Message:    errorMessage(resp.StatusCode, respBody),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// errorMessage extracts the first message from a venue error body of the form
// {"errors":[{"msg":"..."}]}, falling back to the status text.
func errorMessage(statusCode int, body []byte) string {
	var payload struct {
		Errors []struct {
			Msg string `json:"msg"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 && payload.Errors[0].Msg != "" {
		return payload.Errors[0].Msg
	}
	return http.StatusText(statusCode)
}
