// Package protocol defines the vocabulary shared between the connection
// state machine and the operation surface, and the Backend interface that
// plays the role of spec.md §6's "protocol library contract" — the
// external collaborator that actually speaks the directory wire protocol.
package protocol

import (
	"context"
	"time"
)

// Opcode selects the LDAP modify operation applied to an AttrList entry.
type Opcode int

const (
	OpAdd Opcode = iota
	OpReplace
	OpDelete
)

// Attr is one (name, values) pair in an attribute modification list.
// Values is ordered; a nil/empty slice is legal (e.g. OpDelete of a whole
// attribute).
type Attr struct {
	Name   string
	Values []string
}

// AttrList is the input to every mutating operation, per spec.md §3.
type AttrList []Attr

// Result is the two-value enumeration spec.md §6 specifies as the entire
// return-code surface at the public boundary. Richer errors are carried
// alongside it, not instead of it.
type Result int

const (
	ResultSuccess Result = iota
	ResultFailure
)

// BindKind selects the non-SASL bind shape chosen by the configuration
// context, per spec.md §3/§4.3.
type BindKind int

const (
	BindSimple BindKind = iota
	BindInteractive
)

// Control is a placeholder for server/client LDAP controls, which spec.md
// §3 specifies as "null for now" — no control is constructed anywhere in
// this implementation, but the field exists so a future control (e.g.
// paged results) has a home without changing the Context shape.
type Control interface{}

// BindParams carries the bind identity computed by session.Init, per
// spec.md §4.2 step 4.
type BindParams struct {
	DN       string
	Password []byte
}

// Backend is the protocol library contract from spec.md §6, scoped to
// what the connection state machine and operation surface need:
// dial+configure, TLS upgrade, the four bind modes, the four mutating
// entry operations, teardown, and the debug-level side channel.
type Backend interface {
	// Configure dials the server and primes the connection for the
	// configured URI/protocol version. Mirrors configure(global,
	// connection, config) -> code.
	Configure(ctx context.Context, serverURI string, protocolVersion int) error

	// StartTLS performs the TLS upgrade using the given cert paths
	// (empty means "use system defaults", per spec.md §4.1 invariants).
	StartTLS(ctx context.Context, caCertFile, certFile, keyFile string) error

	// BindAnonymous performs an unauthenticated bind with empty DN/creds.
	BindAnonymous(ctx context.Context) error

	// BindSimple performs an authenticated simple bind.
	BindSimple(ctx context.Context, dn string, password []byte) error

	// BindSASL performs a SASL bind using the given mechanism/options.
	BindSASL(ctx context.Context, mechanism string, opts SASLOptions) error

	// BindInteractive performs the "none of the above" bind path of
	// spec.md §4.3: no anonymous/simple/SASL flag was selected, so the
	// connection binds using whatever ambient credentials the environment
	// already provides (e.g. an existing Kerberos credential cache).
	BindInteractive(ctx context.Context) error

	Add(ctx context.Context, dn string, attrs AttrList) (Result, error)
	Delete(ctx context.Context, dn string) (Result, error)
	Modify(ctx context.Context, dn string, attrs AttrList, op Opcode) (Result, error)
	Rename(ctx context.Context, oldDN, newRDN, newParent string, deleteOldRDN bool) (Result, error)

	// Close releases wire resources. Safe to call more than once.
	Close() error

	// SetDebugLevel mirrors set_option(handle, DEBUG_LEVEL, &level).
	SetDebugLevel(level int)

	// SetTimeout bounds the per-operation wire I/O, per spec.md §5.
	SetTimeout(d time.Duration)
}

// SASLOptions mirrors the SASL options sub-record of spec.md §3: mechanism
// is carried separately (as the Backend.BindSASL argument) so this struct
// only needs the mechanism-independent knobs.
type SASLOptions struct {
	Password  []byte
	NoCanon   bool
	SecProps  string
	Flags     string
	AuthzID   string
	Principal string // caller's own user@REALM for GSSAPI; bind DN for SASL-simple
}
