package build

import (
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
)

// SessionInfo describes a session as it starts.
type SessionInfo struct {
	SessionID   string
	Operation   platformio.Operation
	Environment string
	Commands    []string
	Started     time.Time
	// Attempt is 1 for the first spawn and grows with each spawn retry.
	Attempt int
}

// Sink receives the output of build sessions. For every session Started is
// called once, then Record for each classified line in order, then Finished
// exactly once. Calls for one session are never concurrent.
type Sink interface {
	Started(info SessionInfo)
	Record(sessionID string, rec orchestrator.LogRecord)
	Finished(info SessionInfo, res orchestrator.Result)
}

// MultiSink fans out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Started(info SessionInfo) {
	for _, s := range m {
		s.Started(info)
	}
}

func (m MultiSink) Record(sessionID string, rec orchestrator.LogRecord) {
	for _, s := range m {
		s.Record(sessionID, rec)
	}
}

func (m MultiSink) Finished(info SessionInfo, res orchestrator.Result) {
	for _, s := range m {
		s.Finished(info, res)
	}
}

// DiscardSink drops everything.
type DiscardSink struct{}

func (DiscardSink) Started(SessionInfo)                       {}
func (DiscardSink) Record(string, orchestrator.LogRecord)     {}
func (DiscardSink) Finished(SessionInfo, orchestrator.Result) {}
