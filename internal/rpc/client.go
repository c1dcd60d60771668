package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Result is the normalized success payload of a procedure call.
type Result struct {
	Data json.RawMessage `json:"data"`
}

// Caller abstracts procedure invocation so the dispatcher and flusher can be
// tested against fakes without a network.
type Caller interface {
	Call(ctx context.Context, procedure string, params map[string]any) (Result, error)
}

// Client invokes backend stored procedures over HTTP. It holds no retry or
// queueing logic; failures are classified and returned for the caller to act
// on.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient builds a Client for the given RPC base URL. Every call is bounded
// by timeout; on expiry the error is a NetworkError, indistinguishable from
// any other transport failure.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "rpc").Logger(),
	}
}

// Call posts the named parameters to <base>/rpc/<procedure> and normalizes
// the response. Errors are one of *NetworkError, *BusinessError, or
// ErrDuplicateSuppressed.
func (c *Client) Call(ctx context.Context, procedure string, params map[string]any) (Result, error) {
	tr := otel.Tracer("rpc/Client")
	ctx, span := tr.Start(ctx, "Call",
		trace.WithAttributes(attribute.String("rpc.procedure", procedure)),
	)
	defer span.End()

	body, err := json.Marshal(params)
	if err != nil {
		return Result{}, &BusinessError{Code: "encode_failed", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+procedure, bytes.NewReader(body))
	if err != nil {
		return Result{}, &NetworkError{Procedure: procedure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn().Str("procedure", procedure).Err(err).Msg("rpc transport failure")
		return Result{}, &NetworkError{Procedure: procedure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, &NetworkError{Procedure: procedure, Err: err}
	}

	c.log.Debug().
		Str("procedure", procedure).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("rpc call")

	return Normalize(procedure, resp.StatusCode, raw)
}

// Ping reports whether the backend is reachable at all. Any HTTP response,
// including an auth rejection, counts as reachable; only transport failures
// do not.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	resp.Body.Close()
	return nil
}

// errorBody is the structured error envelope the backend returns alongside a
// non-2xx status.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Normalize maps a raw backend response onto the uniform Result-or-error
// shape. It is a pure function: no I/O, no retries, no side effects.
//
// Mapping:
//   - 2xx              → Result with the body as opaque data
//   - duplicate marker → ErrDuplicateSuppressed (unique violation on the
//     client transaction id means the work was already committed)
//   - other 4xx        → *BusinessError
//   - 5xx / garbage    → *NetworkError (treat as transient)
func Normalize(procedure string, status int, body []byte) (Result, error) {
	if status >= 200 && status < 300 {
		data := json.RawMessage(body)
		if len(bytes.TrimSpace(body)) == 0 {
			data = json.RawMessage("null")
		}
		return Result{Data: data}, nil
	}

	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	if eb.Message == "" {
		eb.Message = strings.TrimSpace(string(body))
	}
	if eb.Message == "" {
		eb.Message = http.StatusText(status)
	}

	if isDuplicateMarker(status, eb) {
		return Result{}, ErrDuplicateSuppressed
	}

	if status >= 400 && status < 500 {
		return Result{}, &BusinessError{Code: eb.Code, Message: eb.Message}
	}
	return Result{}, &NetworkError{
		Procedure: procedure,
		Err:       fmt.Errorf("backend returned %d: %s", status, eb.Message),
	}
}

// isDuplicateMarker recognizes the backend's "already processed" signals:
// HTTP 409, the Postgres unique-violation code, or an explicit message about
// the client transaction id.
func isDuplicateMarker(status int, eb errorBody) bool {
	if status == http.StatusConflict {
		return true
	}
	if eb.Code == "23505" {
		return true
	}
	low := strings.ToLower(eb.Message)
	return strings.Contains(low, "duplicate") && strings.Contains(low, "txn")
}
