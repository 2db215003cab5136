package rotauth

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/rotauth/internal/audit"
)

// AuditEvent is one security-relevant outcome emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink forwards audit events to a structured logger.
type LogSink = internalaudit.LogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return internalaudit.NewLogSink(logger)
}

// Audit event types.
const (
	AuditLoginSuccess         = "login_success"
	AuditLoginFailure         = "login_failure"
	AuditRefreshSuccess       = "refresh_success"
	AuditRefreshInvalid       = "refresh_invalid"
	AuditRefreshReuseDetected = "refresh_reuse_detected"
	AuditLogout               = "logout"
)
