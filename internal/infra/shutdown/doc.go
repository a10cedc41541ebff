// Package shutdown coordinates graceful process termination.
//
// Hooks registered with OnShutdown run in reverse registration order once
// the process receives SIGINT or SIGTERM, or the parent context is done.
// All hooks share one deadline; their errors are aggregated.
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown("http", srv.Shutdown)
//	h.OnShutdown("grid", func(context.Context) error { return client.Close() })
//	err := h.Run(ctx)
package shutdown
