package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
)

const timeRounding = 10 * time.Millisecond

// SlogSink writes every record as a structured log line: info records at
// Info level, error records at Warn.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s SlogSink) Started(info SessionInfo) {
	s.logger().Info("Build session started",
		logfields.SessionID(info.SessionID),
		logfields.Operation(string(info.Operation)),
		logfields.Environment(info.Environment),
		logfields.Attempt(info.Attempt))
}

func (s SlogSink) Record(sessionID string, rec orchestrator.LogRecord) {
	level := slog.LevelInfo
	if rec.Severity == orchestrator.SeverityError {
		level = slog.LevelWarn
	}
	attrs := []any{logfields.SessionID(sessionID), logfields.Severity(rec.Severity.String())}
	if rec.PromptPath != "" {
		attrs = append(attrs, logfields.Prompt(rec.PromptPath))
	}
	s.logger().Log(context.Background(), level, rec.Text, attrs...)
}

func (s SlogSink) Finished(info SessionInfo, res orchestrator.Result) {
	level := slog.LevelInfo
	if res.Status != orchestrator.StateSucceeded {
		level = slog.LevelWarn
	}
	s.logger().Log(context.Background(), level, "Build session finished",
		logfields.SessionID(info.SessionID),
		logfields.Operation(string(info.Operation)),
		logfields.Status(res.Status.String()),
		logfields.Duration(res.Duration()),
		slog.Bool("success_detected", res.SuccessDetected))
}
