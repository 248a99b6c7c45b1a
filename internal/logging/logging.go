// Package logging provides the diagnostic sink the core writes to.
// Invalid-argument, allocation, and connection failures are reported here
// rather than by panicking, per spec.md §7.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Sink is the logging collaborator named in spec.md §1/§6. Any application
// embedding this library can install its own Sink; the default writes to
// stderr via the stdlib logger.
type Sink interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// stdSink is the default Sink, backed by log.Logger. The teacher repository
// never pulls in a structured logging library for this concern (it writes
// directly via fmt.Fprintf/fmt.Println everywhere), so stdlib log is the
// corpus-consistent choice rather than an invented dependency.
type stdSink struct {
	l       *log.Logger
	verbose bool
}

// NewDefault returns the stdlib-backed Sink, writing to stderr.
func NewDefault() Sink {
	return &stdSink{l: log.New(os.Stderr, "", log.LstdFlags)}
}

// SetVerbose toggles Debugf output. Used by ldapproto.Backend.SetDebugLevel
// to implement spec.md §4.2 step 5 ("protocol library debug level -1").
func SetVerbose(s Sink, verbose bool) {
	if std, ok := s.(*stdSink); ok {
		std.verbose = verbose
	}
}

func (s *stdSink) Debugf(format string, args ...interface{}) {
	if !s.verbose {
		return
	}

	s.l.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
}

func (s *stdSink) Infof(format string, args ...interface{}) {
	s.l.Output(2, "INFO "+fmt.Sprintf(format, args...))
}

func (s *stdSink) Errorf(format string, args ...interface{}) {
	s.l.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}

// Discard is a Sink that drops everything; useful for tests.
func Discard() Sink { return discard{} }

type discard struct{}

func (discard) Debugf(string, ...interface{}) {}
func (discard) Infof(string, ...interface{})  {}
func (discard) Errorf(string, ...interface{}) {}
