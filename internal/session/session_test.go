package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/croessner/ldapdomain/internal/arena"
	"github.com/croessner/ldapdomain/internal/connection"
	"github.com/croessner/ldapdomain/internal/protocol"
	"github.com/croessner/ldapdomain/internal/settings"
)

// fakeBackend is a hand-written protocol.Backend fake, in the spirit of
// the teacher's internal/check/check_test.go fakeClient: no real network
// I/O, controllable outcomes.
type fakeBackend struct {
	configureErr error
	bindErr      error

	addErr    error
	delErr    error
	modErr    error
	renameErr error

	lastAddDN    string
	lastAddAttrs protocol.AttrList
	lastDelDN    string
	lastModDN    string
	lastModOp    protocol.Opcode
	lastOldDN    string
	lastNewRDN   string
	lastParent   string
}

func (f *fakeBackend) Configure(ctx context.Context, serverURI string, protocolVersion int) error {
	return f.configureErr
}
func (f *fakeBackend) StartTLS(ctx context.Context, ca, cert, key string) error { return nil }
func (f *fakeBackend) BindAnonymous(ctx context.Context) error                  { return f.bindErr }
func (f *fakeBackend) BindSimple(ctx context.Context, dn string, password []byte) error {
	return f.bindErr
}
func (f *fakeBackend) BindSASL(ctx context.Context, mechanism string, opts protocol.SASLOptions) error {
	return f.bindErr
}
func (f *fakeBackend) BindInteractive(ctx context.Context) error { return f.bindErr }

func (f *fakeBackend) Add(ctx context.Context, dn string, attrs protocol.AttrList) (protocol.Result, error) {
	f.lastAddDN = dn
	f.lastAddAttrs = attrs

	if f.addErr != nil {
		return protocol.ResultFailure, f.addErr
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeBackend) Delete(ctx context.Context, dn string) (protocol.Result, error) {
	f.lastDelDN = dn

	if f.delErr != nil {
		return protocol.ResultFailure, f.delErr
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeBackend) Modify(ctx context.Context, dn string, attrs protocol.AttrList, op protocol.Opcode) (protocol.Result, error) {
	f.lastModDN = dn
	f.lastModOp = op

	if f.modErr != nil {
		return protocol.ResultFailure, f.modErr
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeBackend) Rename(ctx context.Context, oldDN, newRDN, newParent string, deleteOldRDN bool) (protocol.Result, error) {
	f.lastOldDN = oldDN
	f.lastNewRDN = newRDN
	f.lastParent = newParent

	if !deleteOldRDN {
		return protocol.ResultFailure, errors.New("deleteOldRDN must be true")
	}

	if f.renameErr != nil {
		return protocol.ResultFailure, f.renameErr
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeBackend) Close() error               { return nil }
func (f *fakeBackend) SetDebugLevel(level int)    {}
func (f *fakeBackend) SetTimeout(d time.Duration) {}

// runningSession builds a *Session wired to a fake backend and pumps the
// state machine through INIT and BIND until it reaches RUN, bypassing Init's
// real Configure/backend wiring so operation tests don't need a server.
func runningSession(t *testing.T, backend *fakeBackend) *Session {
	t.Helper()

	cfg := &connection.Config{UseAnon: true, BaseDN: "dc=example,dc=com"}
	conn := connection.NewContext(cfg, backend)
	sm := connection.NewStateMachine(cfg, conn, nil)

	deadline := time.Now().Add(2 * time.Second)
	for sm.State() != connection.StateRun {
		if time.Now().After(deadline) {
			t.Fatalf("state machine never reached RUN, stuck at %s", sm.State())
		}

		_ = sm.NextState(context.Background())
		time.Sleep(time.Millisecond)
	}

	return &Session{conn: conn, sm: sm}
}

func TestAddEntryComposesDNAndOpcode(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	attrs := protocol.AttrList{{Name: "objectClass", Values: []string{"person"}}, {Name: "sn", Values: []string{"One"}}}

	result, err := s.AddEntry(context.Background(), "u1", "ou=people,dc=example,dc=com", "cn", attrs)
	if err != nil {
		t.Fatalf("AddEntry returned error: %v", err)
	}

	if result != protocol.ResultSuccess {
		t.Fatalf("result = %v, want success", result)
	}

	if backend.lastAddDN != "cn=u1,ou=people,dc=example,dc=com" {
		t.Fatalf("dn = %q", backend.lastAddDN)
	}
}

func TestModEntryAttrsEmptyPrefixOmitsEquals(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	attrs := protocol.AttrList{{Name: "mail", Values: nil}}

	_, err := s.ModEntryAttrs(context.Background(), "u1", "ou=people,dc=example,dc=com", "", attrs, protocol.OpDelete)
	if err != nil {
		t.Fatalf("ModEntryAttrs returned error: %v", err)
	}

	if backend.lastModDN != "u1,ou=people,dc=example,dc=com" {
		t.Fatalf("dn = %q, want no '=' separator", backend.lastModDN)
	}

	if backend.lastModOp != protocol.OpDelete {
		t.Fatalf("op = %v, want OpDelete", backend.lastModOp)
	}
}

func TestModEntryUsesReplaceOpcode(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	_, err := s.ModEntry(context.Background(), "u1", "ou=people,dc=example,dc=com", "cn", protocol.AttrList{{Name: "sn", Values: []string{"Two"}}})
	if err != nil {
		t.Fatalf("ModEntry returned error: %v", err)
	}

	if backend.lastModOp != protocol.OpReplace {
		t.Fatalf("op = %v, want OpReplace", backend.lastModOp)
	}
}

func TestRenameEntryComposesOldDNAndNewRDN(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	_, err := s.RenameEntry(context.Background(), "u1", "u2", "ou=people,dc=example,dc=com", "cn")
	if err != nil {
		t.Fatalf("RenameEntry returned error: %v", err)
	}

	if backend.lastOldDN != "cn=u1,ou=people,dc=example,dc=com" {
		t.Fatalf("oldDN = %q", backend.lastOldDN)
	}

	if backend.lastNewRDN != "cn=u2" {
		t.Fatalf("newRDN = %q", backend.lastNewRDN)
	}

	if backend.lastParent != "ou=people,dc=example,dc=com" {
		t.Fatalf("parent = %q", backend.lastParent)
	}
}

func TestRenameEntryAllowsEmptyPrefix(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	if _, err := s.RenameEntry(context.Background(), "u1", "u2", "ou=people,dc=example,dc=com", ""); err != nil {
		t.Fatalf("RenameEntry returned error: %v", err)
	}

	if backend.lastOldDN != "u1,ou=people,dc=example,dc=com" {
		t.Fatalf("oldDN = %q", backend.lastOldDN)
	}
}

func TestDelEntryComposesDN(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	_, err := s.DelEntry(context.Background(), "u1", "ou=people,dc=example,dc=com", "cn")
	if err != nil {
		t.Fatalf("DelEntry returned error: %v", err)
	}

	if backend.lastDelDN != "cn=u1,ou=people,dc=example,dc=com" {
		t.Fatalf("dn = %q", backend.lastDelDN)
	}
}

func TestOperationsFailBeforeRun(t *testing.T) {
	backend := &fakeBackend{}
	cfg := &connection.Config{UseAnon: true, BaseDN: "dc=example,dc=com"}
	conn := connection.NewContext(cfg, backend)
	sm := connection.NewStateMachine(cfg, conn, nil)
	s := &Session{conn: conn, sm: sm}

	var reportedOp string
	conn.OnErrorOperation = func(op string, err error) { reportedOp = op }

	result, err := s.AddEntry(context.Background(), "u1", "ou=people,dc=example,dc=com", "cn", nil)
	if err == nil {
		t.Fatalf("expected error before RUN")
	}

	if result != protocol.ResultFailure {
		t.Fatalf("result = %v, want failure", result)
	}

	if reportedOp != "add_entry" {
		t.Fatalf("reportedOp = %q, want add_entry", reportedOp)
	}

	if backend.lastAddDN != "" {
		t.Fatalf("backend should not have been invoked before RUN")
	}
}

func TestOperationsNilSessionFailsFast(t *testing.T) {
	var s *Session

	if _, err := s.AddEntry(context.Background(), "u1", "ou=people,dc=example,dc=com", "cn", nil); !errors.Is(err, ErrNilSession) {
		t.Fatalf("err = %v, want ErrNilSession", err)
	}
}

func TestOperationsMissingRequiredArgumentFailsFast(t *testing.T) {
	backend := &fakeBackend{}
	s := runningSession(t, backend)

	if _, err := s.AddEntry(context.Background(), "", "ou=people,dc=example,dc=com", "cn", nil); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("err = %v, want ErrMissingArgument", err)
	}
}

func TestInitNilSettingsFails(t *testing.T) {
	sess, err := Init(nil)
	if err == nil {
		t.Fatalf("expected error for nil settings")
	}

	if sess != nil {
		t.Fatalf("expected nil session on failure")
	}
}

func TestInitConfigureFailureLeavesStateError(t *testing.T) {
	// Init always wires a real *ldapproto.Backend. A host containing a
	// control character makes the ldap:// server URI unparseable, so
	// Configure fails immediately; per spec.md §4.2 that failure
	// must force the state machine into ERROR while Init itself still
	// returns a live (if unusable) handle.
	a := arena.New()
	defer a.Close()

	s, err := settings.New(a, settings.Options{Host: "\x00invalid", BaseDN: "dc=example,dc=com", UseAnon: true})
	if err != nil {
		t.Fatalf("settings.New: %v", err)
	}

	sess, err := Init(s)
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	defer sess.Free()

	if sess.State() != connection.StateError {
		t.Fatalf("state = %s, want ERROR", sess.State())
	}
}
