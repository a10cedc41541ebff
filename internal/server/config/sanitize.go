package config

import "strings"

// SanitizeNode returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func SanitizeNode(cfg *NodeConfig) *NodeConfig {
	sanitized := *cfg
	if sanitized.Engine.SQLDSN != "" {
		sanitized.Engine.SQLDSN = maskSecret(sanitized.Engine.SQLDSN)
	}
	return &sanitized
}

// SanitizeDemo returns a copy of the config with sensitive fields masked.
func SanitizeDemo(cfg *DemoConfig) *DemoConfig {
	sanitized := *cfg
	if sanitized.Store.EncryptionKey != "" {
		sanitized.Store.EncryptionKey = maskSecret(sanitized.Store.EncryptionKey)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
