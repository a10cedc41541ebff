// Package remote is a grid client for a cluster of gridnode processes.
//
// The client learns the membership from any reachable node through the
// Members procedure and places members on a consistent hash ring. Key
// operations go to the member owning the key; Clear, Size and Values fan
// out to every member. Membership is refreshed periodically.
//
// Client implements grid.AsyncClient: GetMapAsync returns a future that
// resolves once the first membership snapshot has been received.
package remote
