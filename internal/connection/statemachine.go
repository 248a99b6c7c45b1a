package connection

import (
	"context"
	"strings"
	"sync"

	"github.com/croessner/ldapdomain/internal/logging"
	"github.com/croessner/ldapdomain/internal/sasl"
)

// State is the connection lifecycle state machine's tagged variant, per
// spec.md §4.3.
type State int

const (
	StateInit State = iota
	StateTLSStart
	StateBind
	StateRun
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateTLSStart:
		return "TLS_START"
	case StateBind:
		return "BIND"
	case StateRun:
		return "RUN"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateMachine drives a *Context through INIT -> TLS_START (only if
// use_tls) -> BIND -> RUN (or ERROR), one transition per NextState call,
// per spec.md §4.3. Each state that requires an underlying blocking
// protocol.Backend call (TLS_START, BIND) runs that call on a goroutine and
// polls its result channel without blocking — the idiomatic Go translation
// of "if the underlying operation is in progress, next_state returns
// without state change and the tick will retry."
type StateMachine struct {
	mu      sync.Mutex
	state   State
	cfg     *Config
	conn    *Context
	log     logging.Sink
	pending chan error
	op      string // label of the in-flight operation, for error reporting
}

// NewStateMachine primes the machine at INIT, per spec.md §4.2 step 6.
func NewStateMachine(cfg *Config, conn *Context, log logging.Sink) *StateMachine {
	if log == nil {
		log = logging.Discard()
	}

	return &StateMachine{state: StateInit, cfg: cfg, conn: conn, log: log}
}

// State returns the current state.
func (sm *StateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.state
}

// NextState advances the machine by at most one transition, per spec.md
// §4.3/§8: calling NextState while the state is RUN or ERROR never changes
// the state.
func (sm *StateMachine) NextState(ctx context.Context) error {
	sm.mu.Lock()
	state := sm.state
	sm.mu.Unlock()

	switch state {
	case StateInit:
		return sm.leaveInit()
	case StateTLSStart:
		return sm.poll(ctx, "starttls", sm.startTLS, StateBind)
	case StateBind:
		return sm.poll(ctx, "bind", sm.bind, StateRun)
	case StateRun, StateError:
		return nil
	default:
		return nil
	}
}

// Fail forces the machine directly into ERROR and reports through
// Context.OnErrorOperation, for callers (session.Init's connection-configure
// step) that fail before the state machine's own polling ever starts.
func (sm *StateMachine) Fail(op string, err error) {
	sm.mu.Lock()
	sm.state = StateError
	sm.mu.Unlock()

	sm.log.Errorf("connection: %s failed: %v", op, err)
	sm.conn.ReportError(op, err)
}

// leaveInit implements "INIT -> TLS_START if use_tls, else INIT -> BIND."
func (sm *StateMachine) leaveInit() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.cfg.UseTLS {
		sm.state = StateTLSStart
	} else {
		sm.state = StateBind
	}

	sm.log.Debugf("connection: INIT -> %s", sm.state)

	return nil
}

// poll starts the given async operation the first time a state is
// observed (pending == nil) and, once started, does a non-blocking check
// for its result on every subsequent call. On success the machine advances
// to next; on failure it moves to ERROR and reports through
// Context.OnErrorOperation.
func (sm *StateMachine) poll(ctx context.Context, op string, start func(context.Context) error, next State) error {
	sm.mu.Lock()

	if sm.pending == nil {
		ch := make(chan error, 1)
		sm.pending = ch
		sm.op = op

		go func() {
			ch <- start(ctx)
		}()

		sm.mu.Unlock()

		return nil
	}

	select {
	case err := <-sm.pending:
		sm.pending = nil

		if err != nil {
			sm.state = StateError
			sm.mu.Unlock()

			sm.log.Errorf("connection: %s failed: %v", op, err)
			sm.conn.ReportError(op, err)

			return err
		}

		sm.state = next
		sm.mu.Unlock()

		sm.log.Debugf("connection: %s complete -> %s", op, next)

		return nil
	default:
		sm.mu.Unlock()

		return nil
	}
}

func (sm *StateMachine) startTLS(ctx context.Context) error {
	return sm.conn.Backend.StartTLS(ctx, sm.cfg.CACertFile, sm.cfg.CertFile, sm.cfg.KeyFile)
}

// bind implements the bind-selection rules of spec.md §4.3.
func (sm *StateMachine) bind(ctx context.Context) error {
	cfg := sm.cfg
	backend := sm.conn.Backend

	switch {
	case cfg.UseAnon && !cfg.UseSASL:
		return backend.BindAnonymous(ctx)
	case cfg.SimpleBind && !cfg.UseSASL:
		return backend.BindSimple(ctx, sm.conn.Bind.DN, sm.conn.Bind.Password)
	case cfg.UseSASL && cfg.SimpleBind:
		return backend.BindSASL(ctx, sasl.MechanismSimple, cfg.SASL.ToProtocol(sm.conn.Bind.DN))
	case cfg.UseSASL && !cfg.SimpleBind:
		return backend.BindSASL(ctx, sasl.MechanismGSSAPI, cfg.SASL.ToProtocol(cfg.Username+"@"+realmOf(cfg)))
	default:
		return backend.BindInteractive(ctx)
	}
}

// realmOf derives a Kerberos realm name from the base DN's dc= components,
// the common Active-Directory convention (dc=example,dc=com -> EXAMPLE.COM).
// There is no separate realm setting; the GSSAPI bind always uses this realm.
func realmOf(cfg *Config) string {
	parts := strings.Split(cfg.BaseDN, ",")
	dcs := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if v, ok := strings.CutPrefix(p, "dc="); ok {
			dcs = append(dcs, strings.ToUpper(v))
		}
	}

	return strings.Join(dcs, ".")
}
