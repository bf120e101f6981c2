package build

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
)

// ConsoleSink prints build output for a terminal. Error records are red and
// prompt paths faint. Colors follow fatih/color's terminal detection.
type ConsoleSink struct {
	Out io.Writer
	// ShowPrompts prefixes content lines with their prompt path.
	ShowPrompts bool

	mu sync.Mutex
}

// NewConsoleSink returns a sink writing to out.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{Out: out, ShowPrompts: true}
}

var (
	errorText  = color.New(color.FgRed)
	promptText = color.New(color.Faint)
	headerText = color.New(color.Bold)
	okText     = color.New(color.FgGreen, color.Bold)
	failText   = color.New(color.FgRed, color.Bold)
	cancelText = color.New(color.FgYellow, color.Bold)
)

func (c *ConsoleSink) Started(info SessionInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := fmt.Sprintf("==> %s", info.Operation)
	if info.Environment != "" {
		line += " [" + info.Environment + "]"
	}
	if info.Attempt > 1 {
		line += fmt.Sprintf(" (attempt %d)", info.Attempt)
	}
	_, _ = headerText.Fprintln(c.Out, line)
}

func (c *ConsoleSink) Record(_ string, rec orchestrator.LogRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.Severity == orchestrator.SeverityError {
		_, _ = errorText.Fprintln(c.Out, rec.Text)
		return
	}
	if c.ShowPrompts && rec.PromptPath != "" {
		_, _ = promptText.Fprint(c.Out, rec.PromptPath+" ")
	}
	_, _ = fmt.Fprintln(c.Out, rec.Text)
}

func (c *ConsoleSink) Finished(info SessionInfo, res orchestrator.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	style := failText
	switch res.Status {
	case orchestrator.StateSucceeded:
		style = okText
	case orchestrator.StateCanceled:
		style = cancelText
	}
	_, _ = style.Fprintf(c.Out, "==> %s %s in %s (%d errors)\n",
		info.Operation, res.Status, res.Duration().Round(timeRounding), res.Records.Error)
}
