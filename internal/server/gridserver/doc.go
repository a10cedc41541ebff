// Package gridserver serves a grid.Client over the Connect map service.
//
// A node hosts one storage engine (memgrid, badgergrid or sqlgrid) and
// exposes it at the procedures defined in api/grid/v1. Membership is
// gossiped with memberlist; each member publishes its RPC address as node
// metadata, and Members reports the live set so that clients can build a
// consistent hash ring.
package gridserver
