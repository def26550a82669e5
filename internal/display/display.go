// Package display contains terminal formatting logic for CLI commands.
//
// Commands should keep parsing and business logic separate from rendering concerns by
// delegating all human-readable output to formatters in this package.
package display

import (
	"io"

	"github.com/fatih/color"
)

var (
	Green = color.New(color.FgGreen).SprintFunc()
	Bold  = color.New(color.Bold).SprintFunc()
	Dim   = color.New(color.Faint).SprintFunc()
)

// Formatter writes formatted output to a writer.
type Formatter interface {
	Format(w io.Writer) error
}

// DisableColors turns off ANSI colors for all formatters.
func DisableColors() {
	color.NoColor = true
}
