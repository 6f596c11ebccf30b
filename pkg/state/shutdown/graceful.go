package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"threadstream/pkg/logger"
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. Use
// the cancel function to stop watching and release resources.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigc)
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// exit is swapped out by tests.
var exit = os.Exit

// Abort logs a fatal startup error, flushes the logger and exits with status 1.
func Abort(context string, err error) {
	logger.Error("fatal", "context", context, "error", err)
	logger.Sync()
	fmt.Fprintf(os.Stderr, "%s: %v\n", context, err)
	exit(1)
}
