package orchestrator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
)

func feedAll(c *Classifier, lines ...string) []LogRecord {
	var out []LogRecord
	for _, l := range lines {
		if rec, ok := c.Feed(l); ok {
			out = append(out, rec)
		}
	}
	return out
}

func TestClassifier_PromptInvocationSuccess(t *testing.T) {
	c := NewClassifier(">", "platformio", "succeeded")

	got := feedAll(c, `C:\>`, `C:\>platformio run`, "...1 succeeded...", `C:\>`)

	want := []LogRecord{
		{PromptPath: `C:\>`, Text: "run", Severity: SeverityInfo},
		{Text: "...1 succeeded...", Severity: SeverityInfo},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, c.SuccessDetected())
	assert.Equal(t, `C:\>`, c.prompt)
}

func TestClassifier_PromptPairsWithOneLine(t *testing.T) {
	c := NewClassifier(">", "platformio", "succeeded")

	got := feedAll(c, `C:\Marlin>`, "Processing mega2560", "Compiling main.cpp")

	want := []LogRecord{
		{PromptPath: `C:\Marlin>`, Text: "Processing mega2560"},
		{Text: "Compiling main.cpp"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, c.SuccessDetected())
}

func TestClassifier_LatestPromptWins(t *testing.T) {
	c := NewClassifier(">", "platformio", "succeeded")

	got := feedAll(c, `C:\>`, `D:\>`, "output")

	assert.Equal(t, []LogRecord{{PromptPath: `D:\>`, Text: "output"}}, got)
}

func TestClassifier_MarkerWinsOverPrompt(t *testing.T) {
	c := NewClassifier(">", "platformio", "succeeded")

	got := feedAll(c, `C:\>platformio run >`)

	assert.Equal(t, []LogRecord{{PromptPath: `C:\>`, Text: "run >"}}, got)
	assert.Empty(t, c.prompt)
}

func TestClassifier_NoiseFilter(t *testing.T) {
	c := NewClassifier(">", "platformio", "succeeded")

	got := feedAll(c, "", " ", "ab", "é!", "\t\t", "abc")

	assert.Equal(t, []LogRecord{{Text: "abc"}}, got)
}

func TestClassifier_SuccessOnPromptedLine(t *testing.T) {
	c := NewClassifier(">", "platformio", "SUCCESS")

	got := feedAll(c, "$ >", "[SUCCESS] Took 4.2 seconds")

	assert.Equal(t, []LogRecord{{PromptPath: "$ >", Text: "[SUCCESS] Took 4.2 seconds"}}, got)
	assert.True(t, c.SuccessDetected())
}

func TestClassifier_DisabledRules(t *testing.T) {
	c := NewClassifier("", "", "")

	got := feedAll(c, `C:\>`, "platformio run")

	assert.Equal(t, []LogRecord{{Text: `C:\>`}, {Text: "platformio run"}}, got)
	assert.False(t, c.SuccessDetected())
}

func TestErrorRecord(t *testing.T) {
	assert.Equal(t, LogRecord{Text: "x", Severity: SeverityError}, ErrorRecord("x"))
}

func TestStateAdvance(t *testing.T) {
	var b stateBox
	assert.Equal(t, StateIdle, b.load())
	assert.True(t, b.advance(StateStarting))
	assert.False(t, b.advance(StateIdle))
	assert.True(t, b.advance(StateRunning))
	assert.False(t, b.advance(StateStarting))
	assert.True(t, b.advance(StateCanceled))
	assert.False(t, b.advance(StateFailed), "terminal state is final")
	assert.Equal(t, StateCanceled, b.load())
	assert.Equal(t, "canceled", b.load().String())
}

func TestClassifier_EchoedVersionCommandIsNotSuccess(t *testing.T) {
	c := NewClassifier(">", "platformio", platformio.DefaultVersionMarker)

	feedAll(c, `C:\Marlin>`, `C:\Marlin>platformio --version`,
		"'platformio' is not recognized as an internal or external command,")
	assert.False(t, c.SuccessDetected())

	feedAll(c, "PlatformIO Core, version 6.1.15")
	assert.True(t, c.SuccessDetected())
}
