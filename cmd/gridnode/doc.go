// Package main provides the entry point for gridnode.
//
// gridnode hosts one storage engine (memory, badger or sql) behind the
// grid map service, joins other nodes through gossip and publishes its
// RPC address so that remote clients can spread keys over the cluster.
//
// Usage:
//
//	gridnode -config /etc/gridsession/node.yaml
//	GRIDSESSION_ENGINE__KIND=badger gridnode
//
// The log level is reloaded when the config file changes.
package main
