// Package eventstore persists build session history as events in SQLite and
// projects them into per-session summaries.
package eventstore

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

const (
	// StatusRunning marks a session that has started but not finished.
	StatusRunning = "running"
	// SeverityError is the severity name of error records.
	SeverityError = "error"
)

// SessionSummary is a read model of one build session.
type SessionSummary struct {
	SessionID       string        `json:"session_id"`
	Operation       string        `json:"operation"`
	Environment     string        `json:"environment,omitempty"`
	Status          string        `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
	InfoRecords     int           `json:"info_records"`
	ErrorRecords    int           `json:"error_records"`
	SuccessDetected bool          `json:"success_detected"`
	CancelRequested bool          `json:"cancel_requested"`
}

// SessionHistoryProjection maintains an in-memory view of session history,
// reconstructed from the events in a store.
type SessionHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	sessions map[string]*SessionSummary
	history  []*SessionSummary // finished sessions, newest first
	maxSize  int
	lastSync time.Time
}

// NewSessionHistoryProjection creates a projection backed by store that keeps
// at most maxSessions finished sessions.
func NewSessionHistoryProjection(store Store, maxSessions int) *SessionHistoryProjection {
	if maxSessions <= 0 {
		maxSessions = 50
	}
	return &SessionHistoryProjection{
		store:    store,
		sessions: make(map[string]*SessionSummary),
		history:  make([]*SessionSummary, 0, maxSessions),
		maxSize:  maxSessions,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *SessionHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sessions = make(map[string]*SessionSummary)
	p.history = make([]*SessionSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	slices.SortStableFunc(p.history, func(a, b *SessionSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *SessionHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *SessionHistoryProjection) applyEventLocked(event Event) {
	id := event.SessionID()
	if id == "" {
		return
	}

	summary, exists := p.sessions[id]
	if !exists {
		summary = &SessionSummary{SessionID: id, Status: StatusRunning, StartedAt: event.Timestamp()}
		p.sessions[id] = summary
	}

	switch event.Type() {
	case TypeSessionStarted:
		var data SessionStartedData
		if err := json.Unmarshal(event.Payload(), &data); err == nil {
			summary.Operation = data.Operation
			summary.Environment = data.Environment
			if !data.Started.IsZero() {
				summary.StartedAt = data.Started
			}
		}

	case TypeRecordEmitted:
		var data RecordEmittedData
		if err := json.Unmarshal(event.Payload(), &data); err != nil {
			return
		}
		if data.Severity == SeverityError {
			summary.ErrorRecords++
		} else {
			summary.InfoRecords++
		}

	case TypeSessionFinished:
		var data SessionFinishedData
		if err := json.Unmarshal(event.Payload(), &data); err != nil {
			return
		}
		finished := data.Finished
		if finished.IsZero() {
			finished = event.Timestamp()
		}
		summary.FinishedAt = &finished
		summary.Duration = finished.Sub(summary.StartedAt)
		summary.Status = data.Status
		summary.SuccessDetected = data.SuccessDetected
		summary.CancelRequested = data.CancelRequested
		// Counts from the terminal event are authoritative; records may have
		// been pruned or dropped.
		summary.InfoRecords = data.InfoRecords
		summary.ErrorRecords = data.ErrorRecords
		p.addToHistoryLocked(summary)
	}
}

func (p *SessionHistoryProjection) addToHistoryLocked(summary *SessionSummary) {
	if slices.ContainsFunc(p.history, func(h *SessionSummary) bool { return h.SessionID == summary.SessionID }) {
		return
	}
	p.history = append([]*SessionSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneLocked()
}

// pruneLocked drops finished sessions that fell out of the bounded history.
func (p *SessionHistoryProjection) pruneLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.SessionID] = struct{}{}
	}
	for id, summary := range p.sessions {
		if summary.Status == StatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.sessions, id)
		}
	}
}

// History returns finished sessions, newest first.
func (p *SessionHistoryProjection) History() []SessionSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]SessionSummary, len(p.history))
	for i, h := range p.history {
		out[i] = *h
	}
	return out
}

// Session returns the summary for one session.
func (p *SessionHistoryProjection) Session(id string) (SessionSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, ok := p.sessions[id]
	if !ok {
		return SessionSummary{}, false
	}
	return *summary, true
}

// Active returns the sessions that started but never finished. A session left
// running after a crash shows up here until it is pruned.
func (p *SessionHistoryProjection) Active() []SessionSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []SessionSummary
	for _, s := range p.sessions {
		if s.Status == StatusRunning {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b SessionSummary) int { return b.StartedAt.Compare(a.StartedAt) })
	return out
}

// Last returns the most recently finished session.
func (p *SessionHistoryProjection) Last() (SessionSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return SessionSummary{}, false
	}
	return *p.history[0], true
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *SessionHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
