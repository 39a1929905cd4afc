package logger

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"testing"
)

// NewTestLogger returns the logger handed to services under test. Output is
// discarded unless the run is verbose (go test -v), in which case debug text goes
// to stderr. OFFTUNE_TEST_LOG_LEVEL raises the verbose threshold, e.g. to WARN.
func NewTestLogger() *slog.Logger {
	return newTestLogger(verbose(), os.Getenv("OFFTUNE_TEST_LOG_LEVEL"), os.Stderr)
}

func newTestLogger(verbose bool, level string, out io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	threshold := slog.LevelDebug
	if level != "" {
		threshold = ParseLevel(level)
	}
	return NewLogger(Config{Level: threshold, Output: out})
}

// verbose is false outside a test binary, where the testing flags are never parsed.
func verbose() bool {
	return flag.Parsed() && flag.Lookup("test.v") != nil && testing.Verbose()
}
