package config

import "sync/atomic"

// Context holds the application state for one invocation: the resolved
// Settings plus the cooperative cancellation flag the Dispatcher polls.
// The teacher's source used module-scoped mutable globals for the
// active plan/results/cancellation flag; per the redesign notes, those
// belong to a session value passed explicitly instead.
type Context struct {
	Settings   *Settings
	cancelled  atomic.Bool
}

// NewContext creates a new Context wrapping the given Settings.
func NewContext(settings *Settings) *Context {
	return &Context{Settings: settings}
}

// Cancel requests cooperative cancellation. Safe to call concurrently
// and more than once.
func (c *Context) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled is the single predicate the Dispatcher polls at every safe
// point (before extraction, before submission, between retries, and
// during backoff sleep).
func (c *Context) Cancelled() bool {
	return c.cancelled.Load()
}
