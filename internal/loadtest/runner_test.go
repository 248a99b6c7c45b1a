package loadtest

import (
	"context"
	"errors"
	"testing"

	"github.com/croessner/ldapdomain/internal/loadtest/metrics"
	"github.com/croessner/ldapdomain/internal/protocol"
)

// fakeEntrySession implements entrySession with controllable outcomes and
// no real network I/O, in the spirit of the teacher's
// internal/runner/runner_test.go fakeClient.
type fakeEntrySession struct {
	err    error
	closed bool
	calls  []string
}

func (f *fakeEntrySession) AddEntry(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList) (protocol.Result, error) {
	f.calls = append(f.calls, "add:"+name)
	if f.err != nil {
		return protocol.ResultFailure, f.err
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeEntrySession) DelEntry(ctx context.Context, name, parent, prefix string) (protocol.Result, error) {
	f.calls = append(f.calls, "del:"+name)
	if f.err != nil {
		return protocol.ResultFailure, f.err
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeEntrySession) ModEntry(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList) (protocol.Result, error) {
	f.calls = append(f.calls, "mod:"+name)
	if f.err != nil {
		return protocol.ResultFailure, f.err
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeEntrySession) RenameEntry(ctx context.Context, oldName, newName, parent, prefix string) (protocol.Result, error) {
	f.calls = append(f.calls, "rename:"+oldName+"->"+newName)
	if f.err != nil {
		return protocol.ResultFailure, f.err
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeEntrySession) ModEntryAttrs(ctx context.Context, name, parent, prefix string, attrs protocol.AttrList, op protocol.Opcode) (protocol.Result, error) {
	f.calls = append(f.calls, "modattrs:"+name)
	if f.err != nil {
		return protocol.ResultFailure, f.err
	}

	return protocol.ResultSuccess, nil
}

func (f *fakeEntrySession) Free() { f.closed = true }

func TestRunOnceAddModeSuccess(t *testing.T) {
	cfg := &Config{Mode: ModeAdd, Timeout: 0}
	entries := &Entries{All: []Entry{{Name: "u1", Parent: "ou=people,dc=example,dc=com", Prefix: "cn"}}}
	m := metrics.New()
	r := &Runner{cfg: cfg, entries: entries, m: m}

	sess := &fakeEntrySession{}
	r.runOnce(sess)

	att, suc, fal, _ := m.Snapshot()
	if att != 1 || suc != 1 || fal != 0 {
		t.Fatalf("metrics mismatch: att=%d suc=%d fail=%d", att, suc, fal)
	}

	if len(sess.calls) != 1 || sess.calls[0] != "add:u1" {
		t.Fatalf("unexpected calls: %v", sess.calls)
	}
}

func TestRunOnceFailureRecordsFail(t *testing.T) {
	cfg := &Config{Mode: ModeDelAttrs, AttrOp: protocol.OpDelete}
	entries := &Entries{All: []Entry{{Name: "u1", Parent: "ou=people,dc=example,dc=com"}}}
	m := metrics.New()
	r := &Runner{cfg: cfg, entries: entries, m: m}

	sess := &fakeEntrySession{err: errors.New("boom")}
	r.runOnce(sess)

	att, suc, fal, _ := m.Snapshot()
	if att != 1 || suc != 0 || fal != 1 {
		t.Fatalf("metrics mismatch: att=%d suc=%d fail=%d", att, suc, fal)
	}
}

func TestComposeDNEmptyPrefix(t *testing.T) {
	if got := composeDN("", "u1", "ou=people,dc=example,dc=com"); got != "u1,ou=people,dc=example,dc=com" {
		t.Fatalf("composeDN = %q", got)
	}
}

func TestComposeDNWithPrefix(t *testing.T) {
	if got := composeDN("cn", "u1", "ou=people,dc=example,dc=com"); got != "cn=u1,ou=people,dc=example,dc=com" {
		t.Fatalf("composeDN = %q", got)
	}
}
