package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"network_controller/internal/app/port"
)

// gethRequester implements port.Requester over a go-ethereum rpc.Client.
type gethRequester struct {
	client      *rpc.Client
	limiter     *rate.Limiter
	callTimeout time.Duration
	logger      *zap.Logger
}

var _ port.Requester = (*gethRequester)(nil)

// newGethRequester dials rpcURL. For http(s) endpoints dialing does no I/O; websocket
// endpoints connect immediately and honour ctx.
func newGethRequester(
	ctx context.Context,
	rpcURL string,
	httpClient *http.Client,
	limiter *rate.Limiter,
	callTimeout time.Duration,
	logger *zap.Logger,
) (*gethRequester, error) {
	client, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s: %w", rpcURL, err)
	}
	return &gethRequester{
		client:      client,
		limiter:     limiter,
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

// Call implements port.Requester.
func (r *gethRequester) Call(ctx context.Context, result any, method string, params ...any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", method, err)
	}

	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	if err := r.client.CallContext(ctx, result, method, params...); err != nil {
		r.logger.Debug("RPC call failed", zap.String("method", method), zap.Error(err))
		return normalizeError(err)
	}
	return nil
}

func (r *gethRequester) close() {
	r.client.Close()
}
