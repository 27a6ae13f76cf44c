// Package ui provides the user-facing console output layer: progress
// and status lines that complement the structured zerolog output.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
)

// Console prints user-facing status messages via pterm prefix
// printers. A quiet console discards everything, which keeps test
// output readable.
type Console struct {
	quiet bool
}

// New creates a console writing to stdout.
func New() *Console {
	return &Console{}
}

// NewQuiet creates a console that discards all output.
func NewQuiet() *Console {
	return &Console{quiet: true}
}

// Progress prints an in-progress status line.
func (c *Console) Progress(format string, args ...any) {
	if c.quiet {
		return
	}
	pterm.Info.Printfln(format, args...)
}

// Success prints a success line.
func (c *Console) Success(format string, args ...any) {
	if c.quiet {
		return
	}
	pterm.Success.Printfln(format, args...)
}

// Warning prints a warning line.
func (c *Console) Warning(format string, args ...any) {
	if c.quiet {
		return
	}
	pterm.Warning.Printfln(format, args...)
}

// Failure prints an error line.
func (c *Console) Failure(format string, args ...any) {
	if c.quiet {
		return
	}
	pterm.Error.Printfln(format, args...)
}

// Print writes plain output (report text, TSV tables) to stdout.
func (c *Console) Print(text string) {
	if c.quiet {
		return
	}
	fmt.Println(text)
}

// Writer returns the writer plain output goes to, for callers that
// stream.
func (c *Console) Writer() io.Writer {
	if c.quiet {
		return io.Discard
	}
	return os.Stdout
}
