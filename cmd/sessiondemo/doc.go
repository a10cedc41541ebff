// Package main provides the entry point for sessiondemo.
//
// sessiondemo is a small web application whose sessions live in a grid:
// either an in-process memory grid or a cluster of gridnode processes.
//
// Usage:
//
//	sessiondemo -config demo.yaml
//	GRIDSESSION_GRID__KIND=remote GRIDSESSION_GRID__SEEDS=127.0.0.1:7080 sessiondemo
package main
