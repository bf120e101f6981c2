package orchestrator

import (
	"strings"
	"unicode/utf8"
)

// noiseMaxRunes is the length at or below which content lines are dropped as
// shell padding. A genuine one- or two-character message is lost too.
const noiseMaxRunes = 2

// Classifier is the content-stream state machine. It is not safe for
// concurrent use; a session feeds it from a single reader.
type Classifier struct {
	PromptTerminator string
	InvocationMarker string
	SuccessMarker    string

	prompt  string
	success bool
}

// NewClassifier returns a Classifier for the given markers.
func NewClassifier(promptTerminator, invocationMarker, successMarker string) *Classifier {
	return &Classifier{
		PromptTerminator: promptTerminator,
		InvocationMarker: invocationMarker,
		SuccessMarker:    successMarker,
	}
}

// Feed classifies one content line. It returns the record to emit, if any.
//
// Lines of two runes or fewer are discarded. A line containing the invocation
// marker is split into prompt and command tail and emitted on its own; the
// buffered prompt is dropped. A line ending with the prompt terminator is
// buffered as the current prompt. Any other line is emitted paired with the
// buffered prompt, which is then cleared.
func (c *Classifier) Feed(line string) (LogRecord, bool) {
	if utf8.RuneCountInString(line) <= noiseMaxRunes {
		return LogRecord{}, false
	}
	if c.SuccessMarker != "" && strings.Contains(line, c.SuccessMarker) {
		c.success = true
	}

	if c.InvocationMarker != "" {
		if i := strings.Index(line, c.InvocationMarker); i >= 0 {
			c.prompt = ""
			return LogRecord{
				PromptPath: line[:i],
				Text:       strings.TrimSpace(line[i+len(c.InvocationMarker):]),
				Severity:   SeverityInfo,
			}, true
		}
	}

	if c.PromptTerminator != "" && strings.HasSuffix(line, c.PromptTerminator) {
		c.prompt = line
		return LogRecord{}, false
	}

	rec := LogRecord{PromptPath: c.prompt, Text: line, Severity: SeverityInfo}
	c.prompt = ""
	return rec, true
}

// SuccessDetected reports whether any fed line contained the success marker.
func (c *Classifier) SuccessDetected() bool { return c.success }
