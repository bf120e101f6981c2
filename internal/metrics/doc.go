// Package metrics provides observability hooks for build sessions and
// configuration generation.
//
// # Design Philosophy
//
// The package follows the Null Object pattern: components hold a Recorder and
// default to NoopRecorder, so metric calls need no nil checks at call sites.
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection:
//
//	coord := build.NewCoordinator(gen, scripts, orch, sink)
//	coord.Recorder = metrics.NewPrometheusRecorder(reg)
//
// # Export
//
// The CLI is short-lived, so metrics are not scraped over HTTP. When
// metrics.textfile is configured, the registry is written after each command
// with WriteTextfile in the node_exporter textfile format.
package metrics
