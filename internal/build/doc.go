// Package build coordinates firmware builds: it optionally regenerates the
// configuration files, drives a build session through the orchestrator and
// relays classified records and the terminal status to log sinks.
//
// All execution paths (CLI commands, the watcher) route through Coordinator.
package build
