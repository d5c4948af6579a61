// Package httpserver provides a thin wrapper around net/http with graceful
// shutdown, OS signal handling, and environment-based configuration.
//
// It pairs with fsmkit machines in services that expose machine state over
// HTTP: run both under one errgroup and a cancelled context stops the server
// and the machines together.
//
// # Usage
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithLogger(log),
//	)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return srv.Run(ctx, router) })
//	g.Go(machine.Run(ctx))
//	if err := g.Wait(); err != nil {
//		log.Error("service failed", slog.Any("error", err))
//	}
//
// Run blocks until the context is cancelled, SIGINT or SIGTERM arrives, or
// the listener fails, and shuts down gracefully within the configured
// timeout.
package httpserver
