package config

import (
	"time"

	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/internal/telemetry/tracer"
)

// Engine kinds served by a grid node.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
	EngineSQL    = "sql"
)

// Grid kinds a session host can attach to.
const (
	GridMemory = "memory"
	GridRemote = "remote"
)

// NodeConfig is the root configuration for gridnode.
type NodeConfig struct {
	Node    NodeSection    `koanf:"node"`
	Gossip  GossipSection  `koanf:"gossip"`
	Engine  EngineSection  `koanf:"engine"`
	Limits  LimitsSection  `koanf:"limits"`
	Metrics MetricsSection `koanf:"metrics"`
	Trace   tracer.Config  `koanf:"trace"`
	Log     logger.Config  `koanf:"log"`
}

// NodeSection identifies the node and its RPC endpoint.
type NodeSection struct {
	// ID is the member name. If empty, one is generated at startup.
	ID string `koanf:"id"`

	// RPCAddr is the listen address of the map service.
	RPCAddr string `koanf:"rpc_addr"`

	// AdvertiseAddr is the RPC address announced to peers. Defaults to
	// RPCAddr.
	AdvertiseAddr string `koanf:"advertise_addr"`
}

// GossipSection configures membership.
type GossipSection struct {
	BindAddr string   `koanf:"bind_addr"`
	BindPort int      `koanf:"bind_port"`
	Seeds    []string `koanf:"seeds"`
}

// EngineSection selects the storage engine behind the node.
type EngineSection struct {
	// Kind is one of memory, badger or sql.
	Kind string `koanf:"kind"`

	// DataDir is the badger directory.
	DataDir string `koanf:"data_dir"`

	// SQLDriver is sqlite or postgres.
	SQLDriver string `koanf:"sql_driver"`
	SQLDSN    string `koanf:"sql_dsn"`

	// SweepInterval is how often expired entries are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LimitsSection bounds the request rate of the map service.
type LimitsSection struct {
	// RPS of zero disables rate limiting.
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// MetricsSection configures the metrics endpoint.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// DemoConfig is the root configuration for sessiondemo.
type DemoConfig struct {
	HTTP   HTTPSection   `koanf:"http"`
	Grid   GridSection   `koanf:"grid"`
	Store  StoreSection  `koanf:"store"`
	Cookie CookieSection `koanf:"cookie"`
	Trace  tracer.Config `koanf:"trace"`
	Log    logger.Config `koanf:"log"`
}

// HTTPSection configures the HTTP listener.
type HTTPSection struct {
	Addr string `koanf:"addr"`
}

// GridSection selects the grid a host attaches to.
type GridSection struct {
	// Kind is memory (in-process) or remote (gridnode cluster).
	Kind        string        `koanf:"kind"`
	Seeds       []string      `koanf:"seeds"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

// StoreSection is the declarative form of sessionstore.Config.
type StoreSection struct {
	TTL time.Duration `koanf:"ttl"`

	// CookieTTL takes each write's TTL from the session cookie.
	CookieTTL  bool `koanf:"cookie_ttl"`
	DisableTTL bool `koanf:"disable_ttl"`

	// Codec is json or msgpack.
	Codec string `koanf:"codec"`

	// EncryptionKey, when set, seals every stored value.
	EncryptionKey string `koanf:"encryption_key"`

	Maps []MapSection `koanf:"maps"`
}

// MapSection describes one backing map. The first is primary.
type MapSection struct {
	Name string `koanf:"name"`

	// KeyField stores the session under the value of this data field
	// instead of the session id.
	KeyField string `koanf:"key_field"`

	// BeanFields stores only these data fields instead of the session.
	BeanFields []string `koanf:"bean_fields"`
}

// CookieSection configures the session cookie.
type CookieSection struct {
	Name   string        `koanf:"name"`
	MaxAge time.Duration `koanf:"max_age"`
	Secure bool          `koanf:"secure"`
}
