package tui

import (
	"io"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var isTerminal = term.IsTerminal

// SetIsTerminalFuncForTesting swaps terminal detection; call the returned func to restore it.
func SetIsTerminalFuncForTesting(fn func(int) bool) func() {
	previous := isTerminal
	isTerminal = fn
	return func() { isTerminal = previous }
}

// IsTerminalWriter is false for anything that is not backed by a file
// descriptor, such as buffers in tests.
func IsTerminalWriter(w io.Writer) bool {
	file, ok := w.(interface{ Fd() uintptr })
	return ok && isTerminal(int(file.Fd()))
}

// ColorEnabled is true for terminals unless NO_COLOR or CLICOLOR=0 says otherwise.
func ColorEnabled(w io.Writer) bool {
	return IsTerminalWriter(w) && !termenv.EnvNoColor()
}
