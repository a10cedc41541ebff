package config

import (
	"time"

	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/internal/telemetry/tracer"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// Default configuration values.
const (
	DefaultRPCAddr     = "127.0.0.1:7080"
	DefaultGossipAddr  = "0.0.0.0"
	DefaultGossipPort  = 7946
	DefaultMetricsAddr = "127.0.0.1:7090"
	DefaultDataDir     = "/var/lib/gridnode/data"
	DefaultSQLDriver   = "sqlite"

	DefaultSweepInterval = 30 * time.Second
	DefaultBurst         = 200

	DefaultHTTPAddr    = "127.0.0.1:8080"
	DefaultDialTimeout = 5 * time.Second
	DefaultCookieName  = "sid"
	DefaultCookieAge   = 24 * time.Hour
	DefaultCodec       = "json"
)

// DefaultNode returns the default gridnode configuration.
func DefaultNode() *NodeConfig {
	return &NodeConfig{
		Node: NodeSection{
			RPCAddr: DefaultRPCAddr,
		},
		Gossip: GossipSection{
			BindAddr: DefaultGossipAddr,
			BindPort: DefaultGossipPort,
		},
		Engine: EngineSection{
			Kind:          EngineMemory,
			DataDir:       DefaultDataDir,
			SQLDriver:     DefaultSQLDriver,
			SweepInterval: DefaultSweepInterval,
		},
		Limits: LimitsSection{
			Burst: DefaultBurst,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Trace: tracer.DefaultConfig(),
		Log:   logger.DefaultConfig(),
	}
}

// DefaultDemo returns the default sessiondemo configuration.
func DefaultDemo() *DemoConfig {
	return &DemoConfig{
		HTTP: HTTPSection{
			Addr: DefaultHTTPAddr,
		},
		Grid: GridSection{
			Kind:        GridMemory,
			DialTimeout: DefaultDialTimeout,
		},
		Store: StoreSection{
			TTL:   sessionstore.DefaultTTL,
			Codec: DefaultCodec,
			Maps:  []MapSection{{Name: sessionstore.DefaultMapName}},
		},
		Cookie: CookieSection{
			Name:   DefaultCookieName,
			MaxAge: DefaultCookieAge,
		},
		Trace: tracer.DefaultConfig(),
		Log:   logger.DefaultConfig(),
	}
}
