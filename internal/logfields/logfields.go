package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID   = "session_id"
	KeyOperation   = "operation"
	KeyEnvironment = "environment"
	KeyStatus      = "status"
	KeySeverity    = "severity"
	KeyPrompt      = "prompt"
	KeyTemplate    = "template"
	KeyTag         = "tag"
	KeyPath        = "path"
	KeyLines       = "lines"
	KeyAttempt     = "attempt"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr      { return slog.String(KeySessionID, id) }
func Operation(op string) slog.Attr      { return slog.String(KeyOperation, op) }
func Environment(env string) slog.Attr   { return slog.String(KeyEnvironment, env) }
func Status(s string) slog.Attr          { return slog.String(KeyStatus, s) }
func Severity(s string) slog.Attr        { return slog.String(KeySeverity, s) }
func Prompt(p string) slog.Attr          { return slog.String(KeyPrompt, p) }
func Template(name string) slog.Attr     { return slog.String(KeyTemplate, name) }
func Tag(tag string) slog.Attr           { return slog.String(KeyTag, tag) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Lines(n int) slog.Attr              { return slog.Int(KeyLines, n) }
func Attempt(n int) slog.Attr            { return slog.Int(KeyAttempt, n) }
func Duration(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
