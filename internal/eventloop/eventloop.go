// Package eventloop implements the transport event-loop collaborator named
// in spec.md §6: add_timeout/set_private/get_private/del/run/run_once. The
// corpus has no reactor/libevent-equivalent dependency (see DESIGN.md), so
// the default implementation is the teacher's own ticker-driven polling
// idiom (internal/runner and internal/report both drive a time.Ticker in a
// select loop), generalized into a small registrable event base.
package eventloop

import (
	"sync"
	"time"
)

// Callback is invoked on every timer fire.
type Callback func(ev *Event)

// Event is a handle to one registered timer, mirroring the verto_ev handle
// spec.md §6 describes (set_private/get_private/del).
type Event struct {
	base     *Base
	interval time.Duration
	persist  bool
	callback Callback
	private  any

	stop chan struct{}
	once sync.Once
}

// SetPrivate attaches caller-defined data to the event, retrievable later
// via GetPrivate — used by the default tick dispatcher to reach the
// connection context from inside the callback.
func (e *Event) SetPrivate(v any) { e.private = v }

// GetPrivate returns whatever was last passed to SetPrivate.
func (e *Event) GetPrivate() any { return e.private }

// Del deregisters the event; safe to call more than once.
func (e *Event) Del() {
	e.once.Do(func() {
		close(e.stop)
		e.base.remove(e)
	})
}

// Base is the event-loop contract of spec.md §6. One Base backs one
// session's event loop, per spec.md §5.
type Base struct {
	mu     sync.Mutex
	events map[*Event]struct{}
	wg     sync.WaitGroup
	runCh  chan func()
}

// New creates an empty event base.
func New() *Base {
	return &Base{events: make(map[*Event]struct{}), runCh: make(chan func(), 64)}
}

// AddTimeout registers a new timer firing every interval. When persist is
// false the event fires once and deregisters itself; this mirrors
// VERTO_EV_FLAG_PERSIST vs. a one-shot timer.
func (b *Base) AddTimeout(interval time.Duration, persist bool, cb Callback) *Event {
	ev := &Event{base: b, interval: interval, persist: persist, callback: cb, stop: make(chan struct{})}

	b.mu.Lock()
	b.events[ev] = struct{}{}
	b.mu.Unlock()

	b.wg.Add(1)

	go b.drive(ev)

	return ev
}

func (b *Base) drive(ev *Event) {
	defer b.wg.Done()

	t := time.NewTicker(ev.interval)
	defer t.Stop()

	for {
		select {
		case <-ev.stop:
			return
		case <-t.C:
			// Run the callback on the loop's single goroutine (via
			// runCh) so the state machine and connection context are
			// never touched from two goroutines at once, preserving
			// spec.md §5's single-threaded cooperative model.
			done := make(chan struct{})
			b.runCh <- func() {
				ev.callback(ev)
				close(done)
			}

			select {
			case <-done:
			case <-ev.stop:
				return
			}

			if !ev.persist {
				ev.Del()

				return
			}
		}
	}
}

func (b *Base) remove(ev *Event) {
	b.mu.Lock()
	delete(b.events, ev)
	b.mu.Unlock()
}

// RunOnce pumps exactly one queued callback, blocking until one is
// available, per spec.md §4.5 ("exec_once... may block on I/O").
func (b *Base) RunOnce() {
	fn := <-b.runCh
	fn()
}

// Run pumps callbacks until every registered event has deregistered, per
// spec.md §4.5 ("exec runs the event loop until it exits of its own
// accord").
func (b *Base) Run() {
	done := make(chan struct{})

	go func() {
		b.wg.Wait()
		close(done)
	}()

	for {
		select {
		case fn := <-b.runCh:
			fn()
		case <-done:
			// Drain any callbacks queued between the last fn and wg
			// reaching zero, then stop.
			for {
				select {
				case fn := <-b.runCh:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Close stops every registered event and waits for their goroutines to
// exit. Used by session teardown.
func (b *Base) Close() {
	b.mu.Lock()
	events := make([]*Event, 0, len(b.events))
	for ev := range b.events {
		events = append(events, ev)
	}
	b.mu.Unlock()

	for _, ev := range events {
		ev.Del()
	}

	b.wg.Wait()
}
