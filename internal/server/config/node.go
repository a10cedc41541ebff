package config

import (
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NodeIDPrefix prefixes generated node ids.
const NodeIDPrefix = "gsnode-"

// ResolveNodeID fills in cfg.Node.ID and cfg.Node.AdvertiseAddr when they
// are empty and returns the node id.
func ResolveNodeID(cfg *NodeConfig, logger *slog.Logger) string {
	if cfg.Node.ID == "" {
		cfg.Node.ID = GenerateNodeID()
		logger.Info("generated node id", "node_id", cfg.Node.ID)
	}
	if cfg.Node.AdvertiseAddr == "" {
		cfg.Node.AdvertiseAddr = cfg.Node.RPCAddr
	}
	return cfg.Node.ID
}

// GenerateNodeID returns a new time-ordered node id, e.g.
// "gsnode-01hv3z8k9w5d6q1x2c3v4b5n6m".
func GenerateNodeID() string {
	return NodeIDPrefix + strings.ToLower(ulid.Make().String())
}
