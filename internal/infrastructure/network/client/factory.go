package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"network_controller/internal/app/port"
	"network_controller/internal/config"
	"network_controller/internal/domain/entity"
)

const defaultInfuraURLFormat = "https://%s.infura.io/v3/%s"

// networkClient bundles the requester and poller built for one network.
type networkClient struct {
	requester port.Requester
	poller    *blockPoller
	closeFn   func()
}

func (c *networkClient) Requester() port.Requester     { return c.requester }
func (c *networkClient) BlockPoller() port.BlockPoller { return c.poller }

// Close stops polling, waits for the polling goroutine and releases the transport.
func (c *networkClient) Close() {
	c.poller.Stop()
	c.poller.wait()
	c.closeFn()
}

// Factory implements port.NetworkClientFactory.
type Factory struct {
	rpcCfg          config.RpcClientConfig
	infuraProjectID string
	infuraURLFormat string
	pollingInterval time.Duration
	blockCacheTTL   time.Duration
	definitions     port.NetworkDefinitionProvider
	httpClient      *http.Client
	logger          *zap.Logger
}

var _ port.NetworkClientFactory = (*Factory)(nil)

// Option customises a Factory.
type Option func(*Factory)

// WithInfuraURLFormat overrides the endpoint template for managed networks. The format
// receives the network type and the project id.
func WithInfuraURLFormat(format string) Option {
	return func(f *Factory) { f.infuraURLFormat = format }
}

// NewFactory creates a client factory from the rpcClient and network config sections.
func NewFactory(
	rpcCfg config.RpcClientConfig,
	netCfg config.NetworkConfig,
	definitions port.NetworkDefinitionProvider,
	logger *zap.Logger,
	opts ...Option,
) *Factory {
	f := &Factory{
		rpcCfg:          rpcCfg,
		infuraProjectID: netCfg.InfuraProjectID,
		infuraURLFormat: defaultInfuraURLFormat,
		pollingInterval: time.Duration(netCfg.PollingIntervalMs) * time.Millisecond,
		blockCacheTTL:   time.Duration(netCfg.BlockCacheTTLMs) * time.Millisecond,
		definitions:     definitions,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: rpcCfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.Named("NetworkClientFactory"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create implements port.NetworkClientFactory.
func (f *Factory) Create(ctx context.Context, params port.NetworkClientParams) (port.NetworkClient, error) {
	rpcURL, err := f.resolveURL(params)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if f.rpcCfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(f.rpcCfg.RateLimit), f.rpcCfg.BurstLimit)
	}
	callTimeout := time.Duration(f.rpcCfg.DefaultTimeoutMs) * time.Millisecond
	logger := f.logger.With(zap.String("network", string(params.Type)), zap.String("chainId", params.ChainID))

	var (
		requester port.Requester
		closeFn   func()
	)
	switch f.rpcCfg.Transport {
	case config.TransportFastHTTP:
		if !strings.HasPrefix(rpcURL, "http://") && !strings.HasPrefix(rpcURL, "https://") {
			return nil, fmt.Errorf("%w: fasthttp transport supports http(s) endpoints only, got %s",
				entity.ErrConfiguration, redact(rpcURL))
		}
		r := newFastHTTPRequester(rpcURL, f.rpcCfg.MaxIdleConnsPerHost, limiter, callTimeout, logger)
		requester, closeFn = r, r.close
	default:
		r, err := newGethRequester(ctx, rpcURL, f.httpClient, limiter, callTimeout, logger)
		if err != nil {
			return nil, err
		}
		requester, closeFn = r, r.close
	}

	logger.Info("Network client created", zap.String("transport", f.transportName()), zap.String("url", redact(rpcURL)))
	return &networkClient{
		requester: requester,
		poller:    newBlockPoller(requester, f.pollingInterval, f.blockCacheTTL, logger),
		closeFn:   closeFn,
	}, nil
}

func (f *Factory) transportName() string {
	if f.rpcCfg.Transport == "" {
		return config.TransportGeth
	}
	return f.rpcCfg.Transport
}

// resolveURL returns the endpoint for params, or a wrapped entity.ErrConfiguration.
func (f *Factory) resolveURL(params port.NetworkClientParams) (string, error) {
	if params.Type != "" && !params.Type.IsCustom() {
		if _, ok := f.definitions.GetNetworkDefinition(params.Type); !ok {
			return "", fmt.Errorf("%w: unknown network type %q", entity.ErrConfiguration, params.Type)
		}
		if f.infuraProjectID == "" {
			return "", fmt.Errorf("%w: infura project id is required for %s", entity.ErrConfiguration, params.Type)
		}
		return fmt.Sprintf(f.infuraURLFormat, params.Type, f.infuraProjectID), nil
	}

	if params.RPCURL == "" || params.ChainID == "" {
		return "", fmt.Errorf("%w: custom network requires rpc url and chain id", entity.ErrConfiguration)
	}
	u, err := url.Parse(params.RPCURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid rpc url %q", entity.ErrConfiguration, params.RPCURL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported rpc url scheme %q", entity.ErrConfiguration, u.Scheme)
	}
	if _, err := hexutil.DecodeBig(params.ChainID); err != nil {
		return "", fmt.Errorf("%w: invalid chain id %q: %v", entity.ErrConfiguration, params.ChainID, err)
	}
	return params.RPCURL, nil
}

// redact hides credentials embedded in endpoint URLs before they reach the logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	if strings.Contains(u.Host, "infura.io") {
		if i := strings.LastIndex(u.Path, "/"); i >= 0 && i < len(u.Path)-1 {
			u.Path = u.Path[:i+1] + "***"
		}
	}
	return u.String()
}
