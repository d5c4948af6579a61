// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The package standardises structured logging across machine runtimes by
// exposing a single factory, New, that creates a *slog.Logger configured by a
// set of Option functions. These options allow you to:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//   - Register ContextExtractor callbacks that inject attributes pulled from
//     a context value (for example a machine id) every time Handle is invoked
//
// # Architecture
//
// New picks the concrete slog.Handler, slog.NewTextHandler or
// slog.NewJSONHandler, based on the configured Format, then wraps it with
// LogHandlerDecorator which executes any registered ContextExtractor
// callbacks before delegating to the underlying handler.
//
// Helper constructors such as Error, MachineID, and State live in attr.go and
// keep attribute naming consistent across the codebase.
//
// # Usage
//
//	import "github.com/dmitrymomot/fsmkit/pkg/logger"
//
//	func main() {
//	    log := logger.New(
//	        logger.WithDevelopment("door-controller"),
//	        logger.WithMachineID(ctxKeyMachineID),
//	    )
//	    logger.SetAsDefault(log)
//
//	    log.Info("door closed",
//	        logger.MachineID(machine.ID()),
//	        logger.State("closed"),
//	    )
//	}
//
// # Error Handling
//
// Helper functions Error and Errors produce attributes only when the supplied
// error value is non-nil allowing calls like:
//
//	log.Info("operation succeeded", logger.Error(err))
//
// without an additional nil check.
package logger
