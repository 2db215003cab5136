// Package audit implements async event dispatching for login, refresh and logout
// outcomes.
//
// # Components
//
//   - [Sink] consumes events (channel, JSON lines, slog, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event] is the audit record.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Record token strings or passwords.
//   - Import rotauth or any sibling internal package.
package audit
