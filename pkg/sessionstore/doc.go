// Package sessionstore persists web sessions in one or more maps of a
// distributed key/value grid.
//
// A Store is created with New and becomes usable once a grid client has been
// attached with AttachClient or AttachAsyncClient. Until then every data
// operation fails immediately with ErrNotInitialized without touching the
// network.
//
// The first configured map is the primary map: Get, All and Length read it
// using the session id as key. Set and Touch write every configured map
// concurrently, each optionally with its own key (MapDescriptor.Key) and its
// own projection of the session (MapDescriptor.Bean). Projections stored in
// secondary maps are read back with GetFromMap or GetBean.
//
// Usage:
//
//	store, err := sessionstore.New(sessionstore.Config{TTL: time.Hour})
//	if err := store.AttachClient(ctx, client); err != nil { ... }
//	err = store.Set(ctx, sid, sess)
//	sess, err = store.Get(ctx, sid)
//
// Values are encoded with the configured Codec (JSON unless set otherwise).
// Write expiry is derived by ComputeTTL; actual expiry is enforced by the
// grid.
package sessionstore
