// Package sqlgrid implements grid.Client on a SQL database through gorm.
//
// Every map lives in the single table grid_entries, keyed by
// (map_name, entry_key). expires_at holds Unix milliseconds; zero means the
// entry never expires. Expired rows are filtered out on read and deleted by
// Sweep, which also runs periodically.
//
// Supported drivers are "sqlite" (pure Go, github.com/glebarez/sqlite) and
// "postgres".
package sqlgrid
