// Package command provides the command definitions of gridsession-cli.
//
// Every command opens a session store against a running grid through the
// remote client, so it sees exactly what applications see. Use --config
// to point at the application's configuration file when it declares extra
// maps, a non-default codec or an encryption key.
package command
