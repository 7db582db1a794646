package util

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptContext returns a context that is cancelled on the first SIGINT
// or SIGTERM. onFirst runs when that happens. A second signal exits the
// process with status 130.
func InterruptContext(parent context.Context, onFirst func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	stopped := make(chan struct{})

	go func() {
		select {
		case <-sig:
		case <-ctx.Done():
			return
		}

		if onFirst != nil {
			onFirst()
		}
		cancel()

		select {
		case <-sig:
			os.Exit(130)
		case <-stopped:
		}
	}()

	var once sync.Once

	return ctx, func() {
		once.Do(func() {
			signal.Stop(sig)
			close(stopped)
			cancel()
		})
	}
}
