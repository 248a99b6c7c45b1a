// Package arena provides a scoped lifetime allocator: a parent scope owns
// child scopes and release callbacks, and releasing the parent releases
// every descendant in reverse-dependency order in one call.
package arena

import "sync"

// Arena is a scoped lifetime region. It does not allocate memory directly
// (Go's runtime already does that); it tracks ownership of derived values
// — strings, sub-records, child arenas — so a single Close releases all of
// them in the right order, the same guarantee a talloc context gives the
// original implementation this library is modeled on.
type Arena struct {
	mu       sync.Mutex
	closed   bool
	children []*Arena
	onClose  []func()
	parent   *Arena
	live     int
}

// New creates a root arena with no parent.
func New() *Arena {
	return &Arena{}
}

// NewChild creates a child scope nested under a. Closing a closes every
// child transitively. Returns nil if a is nil or already closed.
func (a *Arena) NewChild() *Arena {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	c := &Arena{parent: a}
	a.children = append(a.children, c)

	return c
}

// Own registers a release callback to run when this arena closes. Callbacks
// run in reverse registration order, mirroring reverse-dependency release.
func (a *Arena) Own(release func()) {
	if a == nil || release == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		release()

		return
	}

	a.onClose = append(a.onClose, release)
}

// OwnString registers a derived string in the arena. Strings are immutable
// in Go and need no explicit release, but tracking them lets tests assert
// the no-live-allocations-after-Close property the way a pointer-counting
// allocator would.
func (a *Arena) OwnString(s string) string {
	if a == nil {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.closed {
		a.live++
		a.onClose = append(a.onClose, func() { a.live-- })
	}

	return s
}

// Close releases every child arena (depth-first, most recently created
// first) and then every registered callback on this arena, in reverse
// registration order. Safe to call more than once; safe on a nil receiver.
func (a *Arena) Close() {
	if a == nil {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()

		return
	}

	a.closed = true
	children := a.children
	a.children = nil
	callbacks := a.onClose
	a.onClose = nil
	a.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Close()
	}

	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i]()
	}
}

// Closed reports whether Close has already run.
func (a *Arena) Closed() bool {
	if a == nil {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.closed
}

// Alive reports the number of outstanding OwnString registrations not yet
// released by Close, across this arena only (not children). Used by tests
// to verify the "no live allocations after free" invariant.
func (a *Arena) Alive() int {
	if a == nil {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.live
}
