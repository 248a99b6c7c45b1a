package connection

import (
	"github.com/croessner/ldapdomain/internal/protocol"
)

// Context is the connection context of spec.md §3: owns the protocol
// library handle, the bind parameters, controls (nil for now), and the
// installable error callback. It is exclusively owned by the session
// handle; Owner is a non-owning back-reference to it (spec.md §9's "cyclic
// back-reference... implement as a non-owning reference, never as
// co-ownership" — the session always outlives the connection).
type Context struct {
	Backend protocol.Backend
	Bind    protocol.BindParams

	ServerControls []protocol.Control
	ClientControls []protocol.Control

	OnErrorOperation func(op string, err error)

	Owner any
}

// NewContext builds the connection context: the bind DN is always
// "cn=<username>,<base_dn>", per spec.md §4.2 step 4. settings.Load/New
// already reject a missing username when SimpleBind or UseSASL is set (see
// SPEC_FULL.md's Open Question resolution), so this composition is only
// ever reached with a real username for those bind modes; for anonymous or
// ambient-credential binds the composed DN is simply unused.
func NewContext(cfg *Config, backend protocol.Backend) *Context {
	return &Context{
		Backend: backend,
		Bind: protocol.BindParams{
			DN:       "cn=" + cfg.Username + "," + cfg.BaseDN,
			Password: []byte(cfg.Password),
		},
	}
}

// ReportError invokes OnErrorOperation if installed, per spec.md §4.6/§7.
func (c *Context) ReportError(op string, err error) {
	if c == nil || c.OnErrorOperation == nil || err == nil {
		return
	}

	c.OnErrorOperation(op, err)
}
