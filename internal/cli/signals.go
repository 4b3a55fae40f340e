package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context that is cancelled on SIGINT/SIGTERM.
// A pass in flight aborts before it writes anything; a second signal exits
// immediately.
func SetupSignalHandler(stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			_, _ = fmt.Fprintf(stderr, "\nReceived %s, aborting pass without saving...\n", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}

		sig := <-sigChan
		_, _ = fmt.Fprintf(stderr, "\nReceived %s again, forcing exit\n", sig)
		os.Exit(130)
	}()

	return ctx, cancel
}
