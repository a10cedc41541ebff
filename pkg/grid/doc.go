// Package grid defines the contract between gridsession and a distributed
// key/value grid.
//
// A grid client hands out named maps. Each map stores opaque byte values
// under string keys with an optional time-to-live; expiry is enforced by the
// grid, not by callers.
//
// Two client generations exist:
//
//   - Client resolves a map synchronously and returns the handle directly.
//   - AsyncClient returns a Future that settles once the handle is ready.
//
// Resolver normalizes both into a single Future-returning call so that
// consumers never branch on the client generation at their call sites:
//
//	r := grid.SyncResolver(client)        // or grid.AsyncResolver(asyncClient)
//	maps, err := grid.ResolveAll(ctx, r, []string{"Sessions", "Profiles"})
package grid
