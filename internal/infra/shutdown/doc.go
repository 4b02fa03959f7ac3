// Package shutdown coordinates graceful process termination.
//
// Components register a named hook as they start. On SIGINT, SIGTERM,
// cancellation of the parent context or an explicit Trigger, the hooks run
// in reverse registration order under one shared timeout:
//
//	h := shutdown.NewHandler(30*time.Second, log)
//	h.OnShutdown("storage", store.Close)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx) // http stops first, then storage
package shutdown
