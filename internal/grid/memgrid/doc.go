// Package memgrid is an in-process grid client.
//
// Every named map is a cmap.Map of byte slices with per-entry TTL. Expired
// entries disappear from reads at their deadline and are reclaimed by a
// background sweeper. The package backs unit tests, the demo host's
// single-process mode and the node engine of a gridnode started with
// engine.kind=memory.
package memgrid
