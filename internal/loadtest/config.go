// Package loadtest implements a concurrent load-testing harness for the
// entry operation surface exposed by internal/session: a worker pool of
// independent sessions, each driving its own connection lifecycle, firing
// entry operations against CSV-supplied data at a configurable rate.
package loadtest

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/croessner/ldapdomain/internal/protocol"
	"github.com/croessner/ldapdomain/internal/settings"
)

// Mode selects which entry operation the run exercises.
type Mode string

const (
	ModeAdd      Mode = "add"
	ModeMod      Mode = "mod"
	ModeRename   Mode = "rename"
	ModeDelAttrs Mode = "delattrs"
)

// Config holds all runtime settings parsed from CLI flags.
type Config struct {
	Host            string
	Port            int
	ProtocolVersion int
	BaseDN          string
	Username        string
	Password        string
	SimpleBind      bool
	UseTLS          bool
	UseSASL         bool
	UseAnon         bool
	CACertFile      string
	CertFile        string
	KeyFile         string

	EntryCSVPath string
	Mode         Mode
	AttrOp       protocol.Opcode // only consulted when Mode == ModeDelAttrs

	Concurrency   int
	Connections   int // sessions held open per worker
	Duration      time.Duration
	Rate          float64 // target operations per second; 0 = unlimited
	StatsInterval time.Duration
	Timeout       time.Duration // per-operation I/O timeout

	// Optional failure logging
	FailLogPath  string // path to write failed attempts (CSV). Empty disables.
	FailLogBatch int    // how many records to buffer before writing

	// CheckOnly, when true, runs a quick configuration/connectivity check and exits.
	CheckOnly bool
}

// Parse reads CLI flags into a Config instance and validates essential fields.
func Parse() (*Config, error) {
	var cfg Config

	pflag.StringVar(&cfg.Host, "host", "localhost", "Directory server hostname")
	pflag.IntVar(&cfg.Port, "port", 389, "Directory server port (0 omits the port from the derived host string)")
	pflag.IntVar(&cfg.ProtocolVersion, "protocol-version", 3, "LDAP protocol version")
	pflag.StringVar(&cfg.BaseDN, "base-dn", "", "Base DN under which entries are composed")
	pflag.StringVar(&cfg.Username, "username", "", "Bind username (required for simple_bind/use_sasl)")
	pflag.StringVar(&cfg.Password, "password", "", "Bind password")
	pflag.BoolVar(&cfg.SimpleBind, "simple-bind", true, "Use an authenticated simple bind")
	pflag.BoolVar(&cfg.UseTLS, "use-tls", false, "Upgrade the connection with STARTTLS before binding")
	pflag.BoolVar(&cfg.UseSASL, "use-sasl", false, "Bind via SASL (GSSAPI, or SASL-simple when --simple-bind is also set)")
	pflag.BoolVar(&cfg.UseAnon, "use-anon", false, "Bind anonymously")
	pflag.StringVar(&cfg.CACertFile, "ca-cert", "", "Path to CA certificate (PEM) for TLS verification")
	pflag.StringVar(&cfg.CertFile, "tls-cert", "", "Path to TLS client certificate (PEM)")
	pflag.StringVar(&cfg.KeyFile, "tls-key", "", "Path to TLS client private key (PEM)")
	pflag.StringVar(&cfg.EntryCSVPath, "csv", "entries.csv", "CSV file with entry rows to operate on")

	var mode string
	pflag.StringVar(&mode, "mode", string(ModeAdd), "Load-test mode: add|mod|rename|delattrs")

	var attrOp string
	pflag.StringVar(&attrOp, "attr-op", "replace", "Modification opcode for --mode=delattrs: add|replace|delete")

	pflag.IntVar(&cfg.Concurrency, "concurrency", 32, "Number of concurrent workers")
	pflag.IntVar(&cfg.Connections, "connections", 1, "Sessions held open per worker (>=1)")
	pflag.DurationVar(&cfg.Duration, "duration", time.Minute, "Total run duration")
	pflag.Float64Var(&cfg.Rate, "rate", 0, "Target operations per second (0 = unlimited)")
	pflag.DurationVar(&cfg.StatsInterval, "stats-interval", time.Minute, "Statistics print interval")
	pflag.DurationVar(&cfg.Timeout, "timeout", 5*time.Second, "Per-operation timeout")
	pflag.StringVar(&cfg.FailLogPath, "fail-log", "", "Optional path to write failed attempts as CSV (disabled when empty)")
	pflag.IntVar(&cfg.FailLogBatch, "fail-batch", 256, "Batch size for failure log writes")
	pflag.BoolVar(&cfg.CheckOnly, "check", false, "Only check configuration/connectivity and exit")
	pflag.Parse()

	switch Mode(mode) {
	case ModeAdd, ModeMod, ModeRename, ModeDelAttrs:
		cfg.Mode = Mode(mode)
	default:
		return nil, errors.New("invalid mode: must be add, mod, rename, or delattrs")
	}

	op, err := parseOpcode(attrOp)
	if err != nil {
		return nil, err
	}

	cfg.AttrOp = op

	if cfg.BaseDN == "" {
		return nil, errors.New("base-dn is required")
	}

	if (cfg.SimpleBind || cfg.UseSASL) && cfg.Username == "" {
		return nil, errors.New("username is required when simple-bind or use-sasl is set")
	}

	if cfg.Concurrency <= 0 || cfg.Connections <= 0 {
		return nil, errors.New("concurrency and connections must be >= 1")
	}

	return &cfg, nil
}

func parseOpcode(s string) (protocol.Opcode, error) {
	switch s {
	case "add":
		return protocol.OpAdd, nil
	case "replace":
		return protocol.OpReplace, nil
	case "delete":
		return protocol.OpDelete, nil
	default:
		return 0, errors.New("invalid attr-op: must be add, replace, or delete")
	}
}

// SettingsOptions projects the connection-related fields into the
// settings.Options builder input consumed by session.Init.
func (c *Config) SettingsOptions() settings.Options {
	return settings.Options{
		Host:            c.Host,
		Port:            c.Port,
		ProtocolVersion: c.ProtocolVersion,
		BaseDN:          c.BaseDN,
		Username:        c.Username,
		Password:        c.Password,
		SimpleBind:      c.SimpleBind,
		UseTLS:          c.UseTLS,
		UseSASL:         c.UseSASL,
		UseAnon:         c.UseAnon,
		Timeout:         c.Timeout,
		CACertFile:      c.CACertFile,
		CertFile:        c.CertFile,
		KeyFile:         c.KeyFile,
	}
}
