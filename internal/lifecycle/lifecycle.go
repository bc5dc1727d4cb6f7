// Package lifecycle ties process signals to the run context. The first
// SIGINT or SIGTERM cancels the context so in-flight work can wind down and
// completed work is still persisted; a second one exits immediately.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

	notifyFunc = signal.Notify
	stopFunc   = signal.Stop
	exitFunc   = os.Exit
)

// InterruptedError is the cancellation cause of a context ended by a signal.
type InterruptedError struct {
	Signal os.Signal
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted by %s", e.Signal)
}

// WithShutdown returns a context cancelled by the first shutdown signal,
// plus a stop function that releases the signal handlers. stop is safe to
// call more than once.
func WithShutdown(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	signals := make(chan os.Signal, 2)
	notifyFunc(signals, shutdownSignals...)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-signals:
			cancel(&InterruptedError{Signal: sig})
		case <-done:
			return
		}

		select {
		case sig := <-signals:
			exitFunc(ExitCode(sig))
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopFunc(signals)
			close(done)
			cancel(nil)
		})
	}
	return ctx, stop
}

// Interrupted returns the signal that cancelled ctx, if any.
func Interrupted(ctx context.Context) (os.Signal, bool) {
	interrupted, ok := context.Cause(ctx).(*InterruptedError)
	if !ok {
		return nil, false
	}
	return interrupted.Signal, true
}

// ExitCode follows the shell convention of 128 + signal number.
func ExitCode(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return 130
	case syscall.SIGTERM:
		return 143
	default:
		return 1
	}
}
