// Package main provides the entry point for gridsession-cli.
//
// Usage:
//
//	gridsession-cli --seeds 127.0.0.1:7080 sessions count
//	gridsession-cli -c demo.yaml -o json sessions get <sid>
//	gridsession-cli -c demo.yaml map get 1 <sid>
package main
