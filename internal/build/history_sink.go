package build

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/eventstore"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
)

// historyWriteTimeout bounds each store write so a locked database cannot
// stall the record stream.
const historyWriteTimeout = 2 * time.Second

// historyBatchSize is the number of buffered records that forces a write
// before the session finishes.
const historyBatchSize = 256

// HistorySink persists sessions to an event store. Records are buffered and
// written in batches, the last one together with the finish event. Store
// failures are logged and never affect the build.
type HistorySink struct {
	Store eventstore.Store
	// Projection, when set, is kept current with the appended events.
	Projection *eventstore.SessionHistoryProjection
	// Keep bounds the stored sessions; older ones are pruned when a session
	// finishes. Zero keeps everything.
	Keep   int
	Logger *slog.Logger

	mu      sync.Mutex
	pending map[string][]eventstore.Event
}

func (h *HistorySink) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *HistorySink) write(sessionID string, events []eventstore.Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	err := h.Store.Append(ctx, events...)
	cancel()
	if err != nil {
		h.logger().Warn("Session history write failed",
			logfields.SessionID(sessionID),
			slog.Int("events", len(events)),
			logfields.Error(err))
		return
	}
	if h.Projection != nil {
		for _, e := range events {
			h.Projection.Apply(e)
		}
	}
}

// take removes and returns the buffered events of a session, plus e.
func (h *HistorySink) take(sessionID string, e eventstore.Event) []eventstore.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := h.pending[sessionID]
	delete(h.pending, sessionID)
	if e != nil {
		events = append(events, e)
	}
	return events
}

func (h *HistorySink) encodeFailed(sessionID string, err error) {
	h.logger().Warn("Session history event not encoded", logfields.SessionID(sessionID), logfields.Error(err))
}

func (h *HistorySink) Started(info SessionInfo) {
	e, err := eventstore.NewSessionStarted(info.SessionID, eventstore.SessionStartedData{
		Operation:   string(info.Operation),
		Environment: info.Environment,
		Commands:    info.Commands,
		Started:     info.Started,
	})
	if err != nil {
		h.encodeFailed(info.SessionID, err)
		return
	}
	h.write(info.SessionID, []eventstore.Event{e})
}

func (h *HistorySink) Record(sessionID string, rec orchestrator.LogRecord) {
	e, err := eventstore.NewRecordEmitted(sessionID, eventstore.RecordEmittedData{
		PromptPath: rec.PromptPath,
		Text:       rec.Text,
		Severity:   rec.Severity.String(),
		Time:       rec.Time,
	})
	if err != nil {
		h.encodeFailed(sessionID, err)
		return
	}

	h.mu.Lock()
	if h.pending == nil {
		h.pending = make(map[string][]eventstore.Event)
	}
	h.pending[sessionID] = append(h.pending[sessionID], e)
	full := len(h.pending[sessionID]) >= historyBatchSize
	h.mu.Unlock()

	if full {
		h.write(sessionID, h.take(sessionID, nil))
	}
}

func (h *HistorySink) Finished(info SessionInfo, res orchestrator.Result) {
	e, err := eventstore.NewSessionFinished(info.SessionID, eventstore.SessionFinishedData{
		Status:          res.Status.String(),
		SuccessDetected: res.SuccessDetected,
		CancelRequested: res.CancelRequested,
		InfoRecords:     res.Records.Info,
		ErrorRecords:    res.Records.Error,
		Finished:        res.Finished,
	})
	var last eventstore.Event
	if err != nil {
		h.encodeFailed(info.SessionID, err)
	} else {
		last = e
	}
	h.write(info.SessionID, h.take(info.SessionID, last))

	if h.Keep <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := h.Store.Prune(ctx, h.Keep); err != nil {
		h.logger().Warn("Session history prune failed", logfields.Error(err))
	}
}
