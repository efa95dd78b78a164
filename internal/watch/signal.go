package watch

import (
	"os"
	"os/signal"
	"syscall"
)

// OnShutdown invokes shutdown once when SIGTERM or SIGINT arrives.
func OnShutdown(shutdown func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		shutdown()
	}()
}
