package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

// Event type names.
const (
	TypeSessionStarted  = "SessionStarted"
	TypeRecordEmitted   = "RecordEmitted"
	TypeSessionFinished = "SessionFinished"
)

// SessionStartedData describes a session at spawn time.
type SessionStartedData struct {
	Operation   string    `json:"operation"`
	Environment string    `json:"environment,omitempty"`
	Commands    []string  `json:"commands"`
	Started     time.Time `json:"started"`
}

// RecordEmittedData is one classified output line.
type RecordEmittedData struct {
	PromptPath string    `json:"prompt_path,omitempty"`
	Text       string    `json:"text"`
	Severity   string    `json:"severity"`
	Time       time.Time `json:"time"`
}

// SessionFinishedData is the terminal outcome of a session.
type SessionFinishedData struct {
	Status          string    `json:"status"`
	SuccessDetected bool      `json:"success_detected"`
	CancelRequested bool      `json:"cancel_requested"`
	InfoRecords     int       `json:"info_records"`
	ErrorRecords    int       `json:"error_records"`
	Finished        time.Time `json:"finished"`
}

// SessionStarted is emitted when the shell for a session has been spawned.
type SessionStarted struct {
	BaseEvent
	Data SessionStartedData
}

// RecordEmitted is emitted for every record delivered to the log sink.
type RecordEmitted struct {
	BaseEvent
	Data RecordEmittedData
}

// SessionFinished is emitted once per session with its terminal status.
type SessionFinished struct {
	BaseEvent
	Data SessionFinishedData
}

func newBase(sessionID, eventType string, ts time.Time, data any) (BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return BaseEvent{}, errors.Wrap(ErrMarshalPayloadFailed, err).
			WithContext("session_id", sessionID).
			WithContext("event_type", eventType).
			Build()
	}
	return BaseEvent{
		EventSessionID: sessionID,
		EventType:      eventType,
		EventTimestamp: ts,
		EventPayload:   payload,
	}, nil
}

// NewSessionStarted creates a SessionStarted event.
func NewSessionStarted(sessionID string, data SessionStartedData) (*SessionStarted, error) {
	base, err := newBase(sessionID, TypeSessionStarted, data.Started, data)
	if err != nil {
		return nil, err
	}
	return &SessionStarted{BaseEvent: base, Data: data}, nil
}

// NewRecordEmitted creates a RecordEmitted event.
func NewRecordEmitted(sessionID string, data RecordEmittedData) (*RecordEmitted, error) {
	base, err := newBase(sessionID, TypeRecordEmitted, data.Time, data)
	if err != nil {
		return nil, err
	}
	return &RecordEmitted{BaseEvent: base, Data: data}, nil
}

// NewSessionFinished creates a SessionFinished event.
func NewSessionFinished(sessionID string, data SessionFinishedData) (*SessionFinished, error) {
	base, err := newBase(sessionID, TypeSessionFinished, data.Finished, data)
	if err != nil {
		return nil, err
	}
	return &SessionFinished{BaseEvent: base, Data: data}, nil
}

// Records decodes the RecordEmitted events among events, in order.
func Records(events []Event) []RecordEmittedData {
	var out []RecordEmittedData
	for _, e := range events {
		if e.Type() != TypeRecordEmitted {
			continue
		}
		var r RecordEmittedData
		if err := json.Unmarshal(e.Payload(), &r); err == nil {
			out = append(out, r)
		}
	}
	return out
}
