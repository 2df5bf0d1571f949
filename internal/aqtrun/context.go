// Package aqtrun provides the process-lifecycle plumbing the CLI entry
// point uses: interrupt-to-cancellation wiring and at-exit cleanup hooks.
package aqtrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context which is canceled when the
// program is interrupted (i.e. receiving SIGINT or SIGTERM), so that an
// in-flight Install can stop its worker pool instead of leaving partial
// downloads behind.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// Subsequent signals result in immediate termination, useful in
		// case cleanup hangs:
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
