package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// VerifyNode validates a gridnode configuration.
func VerifyNode(cfg *NodeConfig) error {
	if cfg == nil {
		return errors.New("node config is nil")
	}
	if err := verifyAddr("node.rpc_addr", cfg.Node.RPCAddr); err != nil {
		return err
	}
	if cfg.Node.AdvertiseAddr != "" {
		if err := verifyAddr("node.advertise_addr", cfg.Node.AdvertiseAddr); err != nil {
			return err
		}
	}
	if cfg.Gossip.BindPort < 0 || cfg.Gossip.BindPort > 65535 {
		return fmt.Errorf("gossip.bind_port %d out of range", cfg.Gossip.BindPort)
	}
	if err := verifyEngine(&cfg.Engine); err != nil {
		return err
	}
	if cfg.Limits.RPS < 0 {
		return fmt.Errorf("limits.rps must not be negative")
	}
	if cfg.Limits.RPS > 0 && cfg.Limits.Burst < 1 {
		return fmt.Errorf("limits.burst must be at least 1 when limits.rps is set")
	}
	return verifyLog(&cfg.Log)
}

func verifyEngine(cfg *EngineSection) error {
	switch cfg.Kind {
	case EngineMemory:
	case EngineBadger:
		if cfg.DataDir == "" {
			return errors.New("engine.data_dir is required for the badger engine")
		}
	case EngineSQL:
		if cfg.SQLDriver != "sqlite" && cfg.SQLDriver != "postgres" {
			return fmt.Errorf("engine.sql_driver %q: want sqlite or postgres", cfg.SQLDriver)
		}
		if cfg.SQLDSN == "" {
			return errors.New("engine.sql_dsn is required for the sql engine")
		}
	default:
		return fmt.Errorf("engine.kind %q: want memory, badger or sql", cfg.Kind)
	}
	if cfg.SweepInterval < 0 {
		return errors.New("engine.sweep_interval must not be negative")
	}
	return nil
}

// VerifyDemo validates a sessiondemo configuration.
func VerifyDemo(cfg *DemoConfig) error {
	if cfg == nil {
		return errors.New("demo config is nil")
	}
	if err := verifyAddr("http.addr", cfg.HTTP.Addr); err != nil {
		return err
	}
	if err := VerifyGrid(&cfg.Grid); err != nil {
		return err
	}
	if err := VerifyStore(&cfg.Store); err != nil {
		return err
	}
	if cfg.Cookie.Name == "" {
		return errors.New("cookie.name is required")
	}
	if cfg.Cookie.MaxAge < time.Second {
		return errors.New("cookie.max_age must be at least 1s")
	}
	return verifyLog(&cfg.Log)
}

// VerifyGrid validates a grid section.
func VerifyGrid(cfg *GridSection) error {
	switch cfg.Kind {
	case GridMemory:
	case GridRemote:
		if len(cfg.Seeds) == 0 {
			return errors.New("grid.seeds is required for a remote grid")
		}
	default:
		return fmt.Errorf("grid.kind %q: want memory or remote", cfg.Kind)
	}
	return nil
}

// VerifyStore validates a store section without building codecs.
func VerifyStore(cfg *StoreSection) error {
	if cfg.TTL < 0 {
		return errors.New("store.ttl must not be negative")
	}
	if _, err := sessionstore.CodecByName(cfg.Codec); err != nil {
		return fmt.Errorf("store.codec: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Maps))
	for i, m := range cfg.Maps {
		if m.Name == "" {
			return fmt.Errorf("store.maps[%d].name is required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("store.maps[%d]: duplicate map %q", i, m.Name)
		}
		seen[m.Name] = true
		if i == 0 && m.KeyField != "" {
			return fmt.Errorf("store.maps[0]: the primary map cannot set key_field")
		}
	}
	return nil
}

func verifyAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func verifyLog(cfg *logger.Config) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not a valid level", cfg.Level)
	}
	return nil
}
