// Package session implements the aggregate root of spec.md §3/§4.2/§4.7:
// the Session handle owns the lifetime arena, the connection and
// configuration contexts, and exposes Init/Exec*/Free plus the operation
// surface (in operations.go). A *Session is not safe for concurrent use;
// NextState and the operation calls must be driven from the single
// goroutine that owns its event loop, per spec.md §5.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/croessner/ldapdomain/internal/arena"
	connpkg "github.com/croessner/ldapdomain/internal/connection"
	"github.com/croessner/ldapdomain/internal/eventloop"
	"github.com/croessner/ldapdomain/internal/ldapproto"
	"github.com/croessner/ldapdomain/internal/logging"
	"github.com/croessner/ldapdomain/internal/settings"
)

// Session is the aggregate root of spec.md §3: it owns the lifetime arena,
// the derived configuration/connection contexts, and the state machine
// driving them.
type Session struct {
	arena *arena.Arena
	conn  *connpkg.Context
	sm    *connpkg.StateMachine
	loop  *eventloop.Base
	log   logging.Sink

	defaultEvent *eventloop.Event
	closeOnce    sync.Once
}

// Init performs spec.md §4.2's seven steps: allocate the handle and arena,
// deep-copy the settings, derive the configuration context, build the bind
// parameters, set the debug level, configure the connection (priming the
// state machine at INIT), and back-link the connection context to the
// session.
func Init(s *settings.Settings) (*Session, error) {
	if s == nil {
		logging.NewDefault().Errorf("session: Init called with nil settings")

		return nil, fmt.Errorf("session: nil settings")
	}

	a := arena.New()

	// Step 2: the caller's settings record may be freed immediately after
	// Init returns. Settings is a plain value type with only immutable
	// string/bool/int/duration fields, so a shallow copy already gives
	// this Go implementation the same independence a talloc deep-copy
	// gives the original.
	copied := *s

	log := logging.NewDefault()

	cfg := connpkg.DeriveConfig(&copied)

	backend := ldapproto.New(log)
	backend.SetTimeout(copied.Timeout)

	conn := connpkg.NewContext(cfg, backend)
	sm := connpkg.NewStateMachine(cfg, conn, log)

	sess := &Session{arena: a, conn: conn, sm: sm, loop: eventloop.New(), log: log}
	conn.Owner = sess

	// Step 5: maximum verbosity disabled by sink policy.
	backend.SetDebugLevel(-1)

	// Step 6: connection-configure primes the connection and the state
	// machine at INIT (already true of a freshly built StateMachine).
	if err := backend.Configure(context.Background(), cfg.ServerURI, cfg.ProtocolVersion); err != nil {
		log.Errorf("session: connection-configure failed: %v", err)
		sm.Fail("configure", err)

		// Per spec.md §4.2: failure here leaves the handle live but the
		// connection in ERROR; the caller must still call Free.
		return sess, nil
	}

	return sess, nil
}

// InstallDefaultHandlers registers the default tick dispatcher of spec.md
// §4.4: a persistent 1-second timer that calls NextState and deregisters
// itself once the state reaches RUN or ERROR. Must be called before
// performing any operations.
func (s *Session) InstallDefaultHandlers() {
	if s == nil {
		logging.NewDefault().Errorf("session: InstallDefaultHandlers called on nil session")

		return
	}

	s.installTick(time.Second, func(ctx context.Context) { _ = s.sm.NextState(ctx) })
}

// InstallHandler replaces the default tick dispatcher with a caller-
// supplied callback and interval, per spec.md §4.4.
func (s *Session) InstallHandler(callback func(sess *Session), interval time.Duration) {
	if s == nil {
		logging.NewDefault().Errorf("session: InstallHandler called on nil session")

		return
	}

	if callback == nil {
		s.log.Errorf("session: InstallHandler called with nil callback")

		return
	}

	s.installTick(interval, func(ctx context.Context) { callback(s) })
}

func (s *Session) installTick(interval time.Duration, tick func(ctx context.Context)) {
	if s.defaultEvent != nil {
		s.defaultEvent.Del()
	}

	ev := s.loop.AddTimeout(interval, true, func(e *eventloop.Event) {
		tick(context.Background())

		if st := s.sm.State(); st == connpkg.StateRun || st == connpkg.StateError {
			e.Del()
		}
	})

	s.defaultEvent = ev
}

// InstallErrorHandler installs the callback invoked by the operation layer
// and the state machine when a request errors out, per spec.md §4.4.
func (s *Session) InstallErrorHandler(callback func(op string, err error)) {
	if s == nil {
		logging.NewDefault().Errorf("session: InstallErrorHandler called on nil session")

		return
	}

	s.conn.OnErrorOperation = callback
}

// Exec runs the event loop until it exits of its own accord, per spec.md
// §4.5.
func (s *Session) Exec() {
	if s == nil {
		logging.NewDefault().Errorf("session: Exec called on nil session")

		return
	}

	s.loop.Run()
}

// ExecOnce pumps exactly one round and may block on I/O, per spec.md §4.5.
func (s *Session) ExecOnce() {
	if s == nil {
		logging.NewDefault().Errorf("session: ExecOnce called on nil session")

		return
	}

	s.loop.RunOnce()
}

// State reports the current connection state machine state; callers use
// this to decide whether operations will succeed.
func (s *Session) State() connpkg.State {
	if s == nil {
		return connpkg.StateError
	}

	return s.sm.State()
}

// Free closes the connection (tearing down bind, TLS, and transport), then
// releases the lifetime arena (dropping every derived string and
// sub-record), then releases the handle itself, per spec.md §4.7. Safe to
// call more than once (a sync.Once guards the body, strictly stronger than
// spec.md's "caller discards the pointer" contract) and safe on a nil
// receiver.
func (s *Session) Free() {
	if s == nil {
		return
	}

	s.closeOnce.Do(func() {
		s.loop.Close()

		if err := s.conn.Backend.Close(); err != nil {
			s.log.Errorf("session: close connection: %v", err)
		}

		s.arena.Close()
	})
}
