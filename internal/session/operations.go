package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/croessner/ldapdomain/internal/arena"
	"github.com/croessner/ldapdomain/internal/connection"
	"github.com/croessner/ldapdomain/internal/protocol"
)

// ErrNilSession is returned by every operation when called on a nil
// session handle, per spec.md §4.6 step 1.
var ErrNilSession = errors.New("session: nil session handle")

// ErrMissingArgument is returned when a required string argument is empty,
// per spec.md §4.6 step 2.
var ErrMissingArgument = errors.New("session: required argument is empty")

// ErrNotRunning is returned when an operation is attempted before the
// connection state machine reaches RUN, per spec.md §4.6's "if the
// connection is not in RUN, the underlying call fails."
var ErrNotRunning = errors.New("session: connection is not in RUN state")

// AddEntry creates a new entry named prefix=name,parent with attrs, using
// opcode ADD, per spec.md §4.6 step 5.
func (s *Session) AddEntry(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList) (protocol.Result, error) {
	return s.mutate(ctx, "add_entry", name, parent, prefix, func(dn string) (protocol.Result, error) {
		return s.conn.Backend.Add(ctx, dn, attrs)
	})
}

// DelEntry removes the entry named prefix=name,parent.
func (s *Session) DelEntry(ctx context.Context, name, parent, prefix string) (protocol.Result, error) {
	return s.mutate(ctx, "del_entry", name, parent, prefix, func(dn string) (protocol.Result, error) {
		return s.conn.Backend.Delete(ctx, dn)
	})
}

// ModEntry replaces attrs on the entry named prefix=name,parent, using
// opcode REPLACE, per spec.md §4.6 step 5.
func (s *Session) ModEntry(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList) (protocol.Result, error) {
	return s.mutate(ctx, "mod_entry", name, parent, prefix, func(dn string) (protocol.Result, error) {
		return s.conn.Backend.Modify(ctx, dn, attrs, protocol.OpReplace)
	})
}

// ModEntryAttrs applies attrs to the entry named prefix=name,parent using a
// caller-supplied opcode. An empty prefix composes the DN as "name,parent"
// (no "=" separator), per spec.md §4.6 step 4 / §8's scenario 6.
func (s *Session) ModEntryAttrs(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList, op protocol.Opcode) (protocol.Result, error) {
	return s.mutate(ctx, "mod_entry_attrs", name, parent, prefix, func(dn string) (protocol.Result, error) {
		return s.conn.Backend.Modify(ctx, dn, attrs, op)
	})
}

// RenameEntry moves the entry named prefix=oldName,parent to an RDN of
// prefix=newName under the same parent, deleting the old RDN, per spec.md
// §4.6's rename composition rule.
func (s *Session) RenameEntry(ctx context.Context, oldName, newName, parent, prefix string) (protocol.Result, error) {
	if s == nil {
		return protocol.ResultFailure, ErrNilSession
	}

	for _, arg := range []string{oldName, newName, parent} {
		if arg == "" {
			return protocol.ResultFailure, ErrMissingArgument
		}
	}

	a := arena.New()
	defer a.Close()

	oldDN := a.OwnString(composeDN(prefix, oldName, parent))
	newRDN := a.OwnString(fmt.Sprintf("%s=%s", prefix, newName))

	if s.State() != connection.StateRun {
		err := fmt.Errorf("session: rename_entry: %w", ErrNotRunning)
		s.conn.ReportError("rename_entry", err)

		return protocol.ResultFailure, err
	}

	result, err := s.conn.Backend.Rename(ctx, oldDN, newRDN, parent, true)
	if err != nil {
		s.conn.ReportError("rename_entry", err)
	}

	return result, err
}

// mutate implements the common shape of spec.md §4.6 steps 1-7 shared by
// add_entry, del_entry, mod_entry, and mod_entry_attrs: validate, allocate
// a per-call arena, compose the DN, check readiness, invoke call, release
// the arena.
func (s *Session) mutate(ctx context.Context, op, name, parent, prefix string, call func(dn string) (protocol.Result, error)) (protocol.Result, error) {
	if s == nil {
		return protocol.ResultFailure, ErrNilSession
	}

	if name == "" || parent == "" {
		return protocol.ResultFailure, ErrMissingArgument
	}

	a := arena.New()
	defer a.Close()

	dn := a.OwnString(composeDN(prefix, name, parent))

	if s.State() != connection.StateRun {
		err := fmt.Errorf("session: %s: %w", op, ErrNotRunning)
		s.conn.ReportError(op, err)

		return protocol.ResultFailure, err
	}

	result, err := call(dn)
	if err != nil {
		s.conn.ReportError(op, err)
	}

	return result, err
}

// composeDN implements spec.md §4.6 step 4: "<prefix>=<name>,<parent>",
// except an empty prefix produces "<name>,<parent>" with no "=".
func composeDN(prefix, name, parent string) string {
	if prefix == "" {
		return name + "," + parent
	}

	return prefix + "=" + name + "," + parent
}
