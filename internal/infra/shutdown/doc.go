// Package shutdown runs the cleanup a trayctl invocation registers while
// it sets up: closing the config store, flushing the metrics textfile.
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(func(context.Context) error { return store.Close() })
//	...
//	err := h.Run(ctx)
package shutdown
