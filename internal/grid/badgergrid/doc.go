// Package badgergrid implements grid.Client on an embedded Badger database.
//
// All maps share one database. Entries of map "Sessions" are stored under
// keys of the form "Sessions\x00<key>", so a map is a key prefix: Size and
// Values are prefix scans and Clear is a prefix drop.
//
// Badger records expiry in whole seconds. TTLs are rounded up to the next
// second so that a short TTL never expires an entry on write.
package badgergrid
