package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Network   NetworkConfig   `yaml:"network"`
	RpcClient RpcClientConfig `yaml:"rpcClient"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Swagger   SwaggerConfig   `yaml:"swagger"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // e.g., "debug", "info", "warn", "error"
	Encoding string `yaml:"encoding"` // "json" or "console"
}

// ProviderConfig is the network the controller starts on when no persisted state exists.
type ProviderConfig struct {
	Type             string `yaml:"type"`
	RPCURL           string `yaml:"rpcUrl"`
	ChainID          string `yaml:"chainId"`
	Ticker           string `yaml:"ticker"`
	Nickname         string `yaml:"nickname"`
	BlockExplorerURL string `yaml:"blockExplorerUrl"`
}

// NetworkConfig holds the network controller configuration.
type NetworkConfig struct {
	InitialProvider   ProviderConfig `yaml:"initialProvider"`
	InfuraProjectID   string         `yaml:"infuraProjectId"`
	PollingIntervalMs int64          `yaml:"pollingIntervalMs"`
	BlockCacheTTLMs   int64          `yaml:"blockCacheTTLMs"`
}

// RpcClientConfig holds configuration for RPC clients.
type RpcClientConfig struct {
	Transport           string `yaml:"transport"` // "geth" or "fasthttp"
	DefaultTimeoutMs    int64  `yaml:"defaultTimeoutMs"`
	RateLimit           int    `yaml:"rateLimit"` // requests per second, 0 disables limiting
	BurstLimit          int    `yaml:"burstLimit"`
	MaxIdleConnsPerHost int    `yaml:"maxIdleConnsPerHost"`
}

// StorageConfig holds configuration for controller state persistence.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig holds configuration for prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// SwaggerConfig controls the API documentation UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SpecFile string `yaml:"specFile"`
}

// Transports supported by the RPC client factory.
const (
	TransportGeth     = "geth"
	TransportFastHTTP = "fasthttp"
)

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Invalid configuration in %s: %v", path, err)
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = "json"
	}

	if cfg.Network.InitialProvider.Type == "" {
		cfg.Network.InitialProvider.Type = "mainnet"
		logrus.Infof("Network.InitialProvider.Type not set, defaulting to %s", cfg.Network.InitialProvider.Type)
	}
	if cfg.Network.PollingIntervalMs == 0 {
		cfg.Network.PollingIntervalMs = 20000
		logrus.Infof("Network.PollingIntervalMs not set, defaulting to %d ms", cfg.Network.PollingIntervalMs)
	}
	if cfg.Network.BlockCacheTTLMs == 0 {
		cfg.Network.BlockCacheTTLMs = cfg.Network.PollingIntervalMs
	}

	cfg.RpcClient.Transport = strings.ToLower(cfg.RpcClient.Transport)
	if cfg.RpcClient.Transport == "" {
		cfg.RpcClient.Transport = TransportGeth
	}
	if cfg.RpcClient.DefaultTimeoutMs == 0 {
		cfg.RpcClient.DefaultTimeoutMs = 10000
		logrus.Infof("RpcClient.DefaultTimeoutMs not set, defaulting to %d ms", cfg.RpcClient.DefaultTimeoutMs)
	}
	if cfg.RpcClient.RateLimit > 0 && cfg.RpcClient.BurstLimit == 0 {
		cfg.RpcClient.BurstLimit = cfg.RpcClient.RateLimit
	}
	if cfg.RpcClient.MaxIdleConnsPerHost == 0 {
		cfg.RpcClient.MaxIdleConnsPerHost = 16
	}

	if cfg.Storage.Enabled && cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/network_controller.db"
		logrus.Infof("Storage.Path not set, defaulting to %s", cfg.Storage.Path)
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "network_controller"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Swagger.Enabled && cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "docs/swagger.yaml"
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.RpcClient.Transport {
	case TransportGeth, TransportFastHTTP:
	default:
		return fmt.Errorf("unsupported rpcClient.transport %q", c.RpcClient.Transport)
	}
	if c.Network.PollingIntervalMs < 0 || c.Network.BlockCacheTTLMs < 0 {
		return fmt.Errorf("network polling interval and block cache TTL must not be negative")
	}
	if c.RpcClient.RateLimit < 0 || c.RpcClient.BurstLimit < 0 {
		return fmt.Errorf("rpcClient rate and burst limits must not be negative")
	}
	if c.Network.InitialProvider.Type == "rpc" &&
		(c.Network.InitialProvider.RPCURL == "" || c.Network.InitialProvider.ChainID == "") {
		return fmt.Errorf("network.initialProvider of type rpc requires rpcUrl and chainId")
	}
	return nil
}
