package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"SessionID", KeySessionID, "9f1c", SessionID("9f1c")},
		{"Operation", KeyOperation, "build", Operation("build")},
		{"Environment", KeyEnvironment, "mega2560", Environment("mega2560")},
		{"Status", KeyStatus, "succeeded", Status("succeeded")},
		{"Severity", KeySeverity, "error", Severity("error")},
		{"Prompt", KeyPrompt, `C:\>`, Prompt(`C:\>`)},
		{"Template", KeyTemplate, "Configuration.h", Template("Configuration.h")},
		{"Tag", KeyTag, "#{BAUDRATE}", Tag("#{BAUDRATE}")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if v := Lines(12); v.Key != KeyLines || v.Value.Int64() != 12 {
		t.Fatalf("Lines mismatch: %v", v)
	}
	if v := Attempt(2); v.Key != KeyAttempt || v.Value.Int64() != 2 {
		t.Fatalf("Attempt mismatch: %v", v)
	}
	if v := Duration(1500 * time.Millisecond); v.Key != KeyDurationMS || v.Value.Int64() != 1500 {
		t.Fatalf("Duration mismatch: %v", v)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError || attr.Value.String() != "" {
		t.Fatalf("unexpected nil error attr: %v", attr)
	}
	attr = Error(errors.New("err-test"))
	if attr.Value.String() != "err-test" {
		t.Fatalf("expected 'err-test', got %s", attr.Value.String())
	}
}
