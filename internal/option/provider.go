package option

import "sync/atomic"

// Provider is implemented by the layer that owns option state (the forms layer
// or a project file). The configurator core only reads options through it.
type Provider interface {
	GetOptions() Set
	SetOption(name string, v Value) error
	// CurrentEnvironment returns the opaque build environment identifier.
	CurrentEnvironment() string
	IsCancelRequested() bool
	RequestCancel()
}

// CancelFlag is an idempotent, concurrency-safe cancellation request flag.
// The zero value is ready to use.
type CancelFlag struct {
	requested atomic.Bool
}

func (c *CancelFlag) RequestCancel()          { c.requested.Store(true) }
func (c *CancelFlag) IsCancelRequested() bool { return c.requested.Load() }

// Reset clears a previous request so the flag can serve the next session.
func (c *CancelFlag) Reset() { c.requested.Store(false) }
