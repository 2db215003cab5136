package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog.Logger backed by charmbracelet/log.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}

	formatter := log.TextFormatter
	switch strings.ToLower(format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
		Formatter:       formatter,
		Prefix:          "rotauth",
	})
	return slog.New(handler)
}
