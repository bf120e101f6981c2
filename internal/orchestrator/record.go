package orchestrator

import (
	"log/slog"
	"time"
)

// Severity classifies a log record by the stream it came from.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// LogRecord is one classified line of build output.
type LogRecord struct {
	// PromptPath is the shell prompt active when the line was produced. Empty
	// when no prompt was buffered and always empty for error-stream lines.
	PromptPath string
	Text       string
	Severity   Severity
	Time       time.Time
}

// LogValue implements slog.LogValuer.
func (r LogRecord) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("text", r.Text),
		slog.String("severity", r.Severity.String()),
	}
	if r.PromptPath != "" {
		attrs = append(attrs, slog.String("prompt", r.PromptPath))
	}
	return slog.GroupValue(attrs...)
}

// ErrorRecord classifies an error-stream line. Every line is kept.
func ErrorRecord(line string) LogRecord {
	return LogRecord{Text: line, Severity: SeverityError}
}
