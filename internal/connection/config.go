// Package connection implements spec.md §1/§4.3's core: the configuration
// context, the connection context, and the connection state machine. A
// *Context/*StateMachine pair is not safe for concurrent use — both must be
// driven from the goroutine that owns the owning session's event loop, per
// spec.md §5.
package connection

import (
	"github.com/croessner/ldapdomain/internal/protocol"
	"github.com/croessner/ldapdomain/internal/sasl"
	"github.com/croessner/ldapdomain/internal/settings"
)

// Config is the derived "configuration context" of spec.md §3/§4.2: a
// presentation of settings shaped for the state machine, not the settings
// record itself.
type Config struct {
	ServerURI       string
	ProtocolVersion int
	BindKind        protocol.BindKind
	ChaseReferrals  bool // always false, per spec.md §3

	SimpleBind bool
	UseTLS     bool
	UseSASL    bool
	UseAnon    bool

	SASL *sasl.Options // non-nil iff UseSASL

	CACertFile string
	CertFile   string
	KeyFile    string

	BaseDN   string
	Username string
	Password string
}

// DeriveConfig builds the configuration context from a settings record, per
// spec.md §4.2 step 3: bind kind from simple_bind; SASL options populated
// iff use_sasl; TLS paths copied iff use_tls; referral chasing forced off.
func DeriveConfig(s *settings.Settings) *Config {
	bindKind := protocol.BindInteractive
	if s.SimpleBind {
		bindKind = protocol.BindSimple
	}

	cfg := &Config{
		// The original implementation always connects via the plain
		// ldap:// scheme and upgrades in-place with STARTTLS (see
		// TLS_START in the state machine) rather than dialing ldaps://
		// directly; this binding keeps that behavior.
		ServerURI:       "ldap://" + s.Host,
		ProtocolVersion: s.ProtocolVersion,
		BindKind:        bindKind,
		ChaseReferrals:  false,
		SimpleBind:      s.SimpleBind,
		UseTLS:          s.UseTLS,
		UseSASL:         s.UseSASL,
		UseAnon:         s.UseAnon,
		BaseDN:          s.BaseDN,
		Username:        s.Username,
		Password:        s.Password,
	}

	if s.UseTLS {
		cfg.CACertFile = s.CACertFile
		cfg.CertFile = s.CertFile
		cfg.KeyFile = s.KeyFile
	}

	if s.UseSASL {
		opts := sasl.Derive(s.SimpleBind, s.Password)
		cfg.SASL = &opts
	}

	return cfg
}
