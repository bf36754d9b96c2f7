package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Netflix/go-env"
)

// NodeEnvironment holds the tangle-node settings (environment variables with defaults)
type NodeEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	GRPCPort              int           `env:"GRPC_PORT,default=0"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBytes       int64         `env:"MAX_REQUEST_BYTES,default=1048576"`
	ListLimitMax          int           `env:"LIST_LIMIT_MAX,default=100"`

	// storage settings
	Store               string        `env:"STORE,default=memory"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`
}

// ClientEnvironment holds the anchors CLI settings. Command line flags override these values.
type ClientEnvironment struct {
	Environment     string        `env:"ENVIRONMENT,default=dev"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	NodeURL         string        `env:"NODE_URL,default=http://localhost:8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	CursorDir       string        `env:"CURSOR_DIR"`
	GRPCMaxMsgBytes int           `env:"GRPC_MAX_MSG_BYTES,default=4194304"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewNodeConfig loads environment variables and returns the validated node configuration
func NewNodeConfig() (*NodeEnvironment, error) {
	var cfg NodeEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateNodeConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewClientConfig loads environment variables and returns the validated client configuration
func NewClientConfig() (*ClientEnvironment, error) {
	var cfg ClientEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateClientConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateNodeConfig(cfg *NodeEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if cfg.GRPCPort < 0 || cfg.GRPCPort > 65535 {
		return fmt.Errorf("GRPC_PORT must be between 0 and 65535")
	}
	if cfg.GRPCPort != 0 && cfg.GRPCPort == cfg.Port {
		return fmt.Errorf("GRPC_PORT must differ from PORT")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.MaxRequestBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be at least 1")
	}
	if cfg.ListLimitMax < 1 {
		return fmt.Errorf("LIST_LIMIT_MAX must be at least 1")
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("invalid STORE: %s (must be %s or %s)", cfg.Store, StoreMemory, StorePostgres)
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	return nil
}

func validateClientConfig(cfg *ClientEnvironment) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.NodeURL == "" {
		return fmt.Errorf("NODE_URL is required")
	}
	if _, err := url.Parse(cfg.NodeURL); err != nil {
		return fmt.Errorf("invalid NODE_URL: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if cfg.GRPCMaxMsgBytes < 0 {
		return fmt.Errorf("GRPC_MAX_MSG_BYTES must be 0 or greater")
	}
	return nil
}
