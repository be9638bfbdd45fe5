// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the charmbracelet logger bp writes diagnostics with.
// Verbose mode lowers the level to debug and adds timestamps.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "bp",
		ReportTimestamp: verbose,
		TimeFormat:      time.TimeOnly,
		Level:           log.WarnLevel,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// installLogger routes log/slog, which the library packages use, through
// the charmbracelet logger.
func installLogger(w io.Writer, verbose bool) {
	slog.SetDefault(slog.New(newLogger(w, verbose)))
}
