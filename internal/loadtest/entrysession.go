package loadtest

// entrySession narrows *session.Session down to what the runner and check
// paths need, mirroring the teacher's ldapclient.Client interface: a thin
// seam that lets tests substitute a fake without a live directory server.

import (
	"context"

	"github.com/croessner/ldapdomain/internal/arena"
	"github.com/croessner/ldapdomain/internal/connection"
	"github.com/croessner/ldapdomain/internal/protocol"
	"github.com/croessner/ldapdomain/internal/session"
	"github.com/croessner/ldapdomain/internal/settings"
)

type entrySession interface {
	AddEntry(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList) (protocol.Result, error)
	DelEntry(ctx context.Context, name, parent, prefix string) (protocol.Result, error)
	ModEntry(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList) (protocol.Result, error)
	RenameEntry(ctx context.Context, oldName, newName, parent, prefix string) (protocol.Result, error)
	ModEntryAttrs(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList, op protocol.Opcode) (protocol.Result, error)
	Free()
}

var _ entrySession = (*session.Session)(nil)

// newEntrySession is a small indirection to allow tests to inject a fake
// session without a live directory server. In production it points to
// connectEntrySession.
var newEntrySession = connectEntrySession

// connectEntrySession builds a settings record from cfg, initializes a
// session, and pumps its event loop until the connection reaches RUN or
// ERROR.
func connectEntrySession(cfg *Config) (entrySession, error) {
	a := arena.New()
	defer a.Close()

	s, err := settings.New(a, cfg.SettingsOptions())
	if err != nil {
		return nil, err
	}

	sess, err := session.Init(s)
	if err != nil {
		return nil, err
	}

	sess.InstallDefaultHandlers()
	sess.Exec()

	if sess.State() != connection.StateRun {
		state := sess.State()
		sess.Free()

		return nil, errNotRunning(state)
	}

	return sess, nil
}

type stateError struct{ state connection.State }

func (e stateError) Error() string { return "connection did not reach RUN (state=" + e.state.String() + ")" }

func errNotRunning(state connection.State) error { return stateError{state: state} }
