// Package console formats the messages the CLI prints for a human reading a
// terminal: plain informational lines, yellow warnings, and red errors, all
// via github.com/fatih/color the way mutagen-io/mutagen's cmd/error.go does,
// plus humane byte counts via github.com/dustin/go-humanize and singular/
// plural file counts.
package console

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Info prints an informational message to standard output.
func Info(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Warning prints a yellow warning message to standard error.
func Warning(format string, args ...interface{}) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), fmt.Sprintf(format, args...))
}

// Error prints a red error message to standard error.
func Error(format string, args ...interface{}) {
	fmt.Fprintln(color.Error, color.RedString("Error:"), fmt.Sprintf(format, args...))
}

// Bytes formats a byte count the way a summary line should read, e.g. "1.2 MB".
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

// Files formats a file count with the correct singular/plural noun.
func Files(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
