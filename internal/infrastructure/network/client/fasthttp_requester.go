package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// jsonRPCResponse defines the basic structure for a JSON-RPC response.
type jsonRPCResponse struct {
	ID      any                 `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
	Result  jsoniter.RawMessage `json:"result,omitempty"`
	Error   *entity.RPCError    `json:"error,omitempty"`
}

// fastHTTPRequester implements port.Requester with plain JSON-RPC POSTs over fasthttp.
type fastHTTPRequester struct {
	url         string
	client      *fasthttp.Client
	limiter     *rate.Limiter
	callTimeout time.Duration
	nextID      atomic.Uint64
	logger      *zap.Logger
}

var _ port.Requester = (*fastHTTPRequester)(nil)

func newFastHTTPRequester(
	rpcURL string,
	maxConnsPerHost int,
	limiter *rate.Limiter,
	callTimeout time.Duration,
	logger *zap.Logger,
) *fastHTTPRequester {
	return &fastHTTPRequester{
		url: rpcURL,
		client: &fasthttp.Client{
			MaxConnsPerHost: maxConnsPerHost,
			ReadTimeout:     callTimeout,
			WriteTimeout:    callTimeout,
		},
		limiter:     limiter,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Call implements port.Requester.
func (r *fastHTTPRequester) Call(ctx context.Context, result any, method string, params ...any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", method, err)
	}

	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      r.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := r.client.DoDeadline(req, resp, r.deadline(ctx)); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			r.logger.Debug("RPC call timed out", zap.String("method", method), zap.Error(err))
			return fmt.Errorf("%s request to %s timed out: %w", method, r.url, err)
		}
		r.logger.Debug("RPC call failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("%s request to %s failed: %w", method, r.url, err)
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return newHTTPError(status, resp.Body())
	}

	var decoded jsonRPCResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if result == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// deadline picks the earlier of the context deadline and the configured call timeout.
func (r *fastHTTPRequester) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(r.callTimeout)
	if r.callTimeout <= 0 {
		deadline = time.Now().Add(time.Minute)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

func (r *fastHTTPRequester) close() {
	r.client.CloseIdleConnections()
}
