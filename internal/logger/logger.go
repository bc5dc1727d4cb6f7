// Package logger writes command output honouring --quiet and --debug.
package logger

import (
	"fmt"
	"io"
	"sync"
)

// Logger is safe for concurrent use; lines from different goroutines never
// interleave.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	err   io.Writer
	quiet bool
	debug bool
}

func New(out io.Writer, err io.Writer, quiet bool, debug bool) *Logger {
	return &Logger{
		out:   out,
		err:   err,
		quiet: quiet,
		debug: debug,
	}
}

// Log prints to stdout unless quiet. forceShow and debug both override quiet.
func (logger *Logger) Log(message string, forceShow bool) {
	if logger.quiet && !forceShow && !logger.debug {
		return
	}
	logger.println(logger.out, message)
}

func (logger *Logger) Debug(message string) {
	if !logger.debug {
		return
	}
	logger.println(logger.out, message)
}

func (logger *Logger) Debugf(format string, args ...any) {
	if !logger.debug {
		return
	}
	logger.println(logger.out, fmt.Sprintf(format, args...))
}

func (logger *Logger) Error(message string) {
	logger.println(logger.err, message)
}

// Errorf does not append a newline.
func (logger *Logger) Errorf(format string, args ...any) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	_, _ = fmt.Fprintf(logger.err, format, args...)
}

func (logger *Logger) DebugEnabled() bool {
	return logger.debug
}

func (logger *Logger) println(w io.Writer, message string) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	_, _ = fmt.Fprintln(w, message)
}
