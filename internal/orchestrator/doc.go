// Package orchestrator runs build tool command scripts in one long-lived shell
// process and turns its output into classified log records.
//
// A Session spawns the shell, writes the script followed by an exit command to
// its input, and reads the content stream and the error stream concurrently.
// Content lines pass through a Classifier that pairs output with the shell
// prompt that produced it and watches for the success marker; error lines are
// reported as they arrive. Cancellation is cooperative: a poll loop checks the
// session's cancel flag (and an optional external CancelSource) on a short
// interval and kills the process when a cancel is requested.
//
// Terminal status resolution is fixed: a requested cancel wins over a detected
// success marker, which wins over failure. Exit codes are never inspected.
package orchestrator
