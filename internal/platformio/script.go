// Package platformio builds the shell command scripts that drive the
// PlatformIO build tool, detects PlatformIO projects and parses tool versions.
package platformio

import (
	"fmt"
	"runtime"
	"strings"
)

// Operation is the kind of tool invocation a script performs.
type Operation string

const (
	OpBuild   Operation = "build"
	OpClean   Operation = "clean"
	OpUpload  Operation = "upload"
	OpVersion Operation = "version"
)

// Script is an ordered list of shell commands for one operation, together
// with the substring whose presence in the output signals success.
type Script struct {
	Operation     Operation
	Commands      []string
	SuccessMarker string
}

// Defaults used when Scripts fields are empty.
const (
	DefaultCommand       = "platformio"
	DefaultSuccessMarker = "succeeded"
	DefaultVersionMarker = "PlatformIO Core"
)

// Scripts produces command scripts for a firmware directory.
type Scripts struct {
	// Command is the tool executable, "platformio" by default.
	Command string
	// FirmwareDir is the directory holding platformio.ini.
	FirmwareDir   string
	SuccessMarker string
	VersionMarker string
	// GOOS selects the shell dialect; runtime.GOOS when empty.
	GOOS string
}

// Build compiles the firmware for env.
func (s Scripts) Build(env string) Script {
	return s.run(OpBuild, "", env)
}

// Clean removes build artifacts for env.
func (s Scripts) Clean(env string) Script {
	return s.run(OpClean, "clean", env)
}

// Upload builds and flashes the firmware for env.
func (s Scripts) Upload(env string) Script {
	return s.run(OpUpload, "upload", env)
}

// Version probes the installed tool version.
func (s Scripts) Version() Script {
	return Script{
		Operation:     OpVersion,
		Commands:      []string{s.command() + " --version"},
		SuccessMarker: or(s.VersionMarker, DefaultVersionMarker),
	}
}

// For returns the script for op.
func (s Scripts) For(op Operation, env string) (Script, error) {
	switch op {
	case OpBuild:
		return s.Build(env), nil
	case OpClean:
		return s.Clean(env), nil
	case OpUpload:
		return s.Upload(env), nil
	case OpVersion:
		return s.Version(), nil
	}
	return Script{}, fmt.Errorf("unknown operation %q", op)
}

func (s Scripts) run(op Operation, target, env string) Script {
	var b strings.Builder
	b.WriteString(s.command())
	b.WriteString(" run")
	if target != "" {
		b.WriteString(" -t ")
		b.WriteString(target)
	}
	if env = strings.TrimSpace(env); env != "" {
		b.WriteString(" -e ")
		b.WriteString(env)
	}
	var cmds []string
	if s.FirmwareDir != "" {
		cmds = append(cmds, s.changeDir())
	}
	return Script{
		Operation:     op,
		Commands:      append(cmds, b.String()),
		SuccessMarker: or(s.SuccessMarker, DefaultSuccessMarker),
	}
}

func (s Scripts) changeDir() string {
	if or(s.GOOS, runtime.GOOS) == "windows" {
		return `cd /d "` + s.FirmwareDir + `"`
	}
	return `cd "` + s.FirmwareDir + `"`
}

func (s Scripts) command() string { return or(s.Command, DefaultCommand) }

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
