package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// CatchCtrlC calls cancel upon the first SIGINT or SIGTERM, so that
// in-flight relays and the http server shut down gracefully. A second signal
// takes the default action and terminates the process.
func CatchCtrlC(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals,
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	go func() {
		<-signals
		signal.Stop(signals)
		cancel()
	}()
}
