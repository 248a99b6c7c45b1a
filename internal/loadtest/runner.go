package loadtest

// Orchestrates the load-test execution: it spins up workers, each owning
// its own session.Session (the library forbids concurrent use of a single
// session, per spec.md §1's Non-goals), applies optional global rate
// limiting, and records metrics for each attempt.

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/croessner/ldapdomain/internal/loadtest/fail"
	"github.com/croessner/ldapdomain/internal/loadtest/metrics"
	"github.com/croessner/ldapdomain/internal/protocol"
)

// Runner holds the components required to execute a load-test scenario.
type Runner struct {
	cfg     *Config
	entries *Entries
	m       *metrics.Metrics
	flog    *fail.Logger
}

// NewRunner constructs a Runner.
func NewRunner(cfg *Config, entries *Entries, m *metrics.Metrics, flog *fail.Logger) *Runner {
	return &Runner{cfg: cfg, entries: entries, m: m, flog: flog}
}

// Run executes until the configured duration elapses or the context is
// canceled.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	wg := &sync.WaitGroup{}
	wg.Add(r.cfg.Concurrency)

	var tick <-chan time.Time
	var ticker *time.Ticker

	if r.cfg.Rate > 0 {
		period := time.Duration(float64(time.Second) / r.cfg.Rate)
		if period <= 0 {
			period = time.Nanosecond
		}

		ticker = time.NewTicker(period)
		tick = ticker.C

		defer ticker.Stop()
	}

	for i := 0; i < r.cfg.Concurrency; i++ {
		go func() {
			defer wg.Done()

			sessions := make([]entrySession, 0, r.cfg.Connections)
			for c := 0; c < max(r.cfg.Connections, 1); c++ {
				sess, err := r.connect()
				if err != nil {
					fmt.Printf("worker: connect failed: %v\n", err)

					return
				}

				defer sess.Free()

				sessions = append(sessions, sess)
			}

			for n := 0; ; n++ {
				select {
				case <-ctx.Done():
					return
				default:
				}

				if tick != nil {
					select {
					case <-ctx.Done():
						return
					case <-tick:
					}
				}

				r.runOnce(sessions[n%len(sessions)])
			}
		}()
	}

	wg.Wait()

	return ctx.Err()
}

// connect builds and connects a session for one worker, via the
// newEntrySession indirection so tests can substitute a fake.
func (r *Runner) connect() (entrySession, error) {
	sess, err := newEntrySession(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	return sess, nil
}

// runOnce performs a single attempt using the mode configured for the run.
func (r *Runner) runOnce(sess entrySession) {
	r.m.Attempts.Add(1)

	e := r.entries.All[rand.Intn(len(r.entries.All))]

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	start := time.Now()

	var (
		op     string
		name   string
		result protocol.Result
		err    error
	)

	switch r.cfg.Mode {
	case ModeAdd:
		op = "add_entry"
		name = e.Name
		result, err = sess.AddEntry(ctx, e.Name, e.Parent, e.Prefix, e.Attrs)
	case ModeMod:
		op = "mod_entry"
		name = e.Name
		result, err = sess.ModEntry(ctx, e.Name, e.Parent, e.Prefix, e.Attrs)
	case ModeRename:
		op = "rename_entry"
		name = e.Name
		result, err = sess.RenameEntry(ctx, e.Name, e.NewName, e.Parent, e.Prefix)
	case ModeDelAttrs:
		op = "mod_entry_attrs"
		name = e.Name
		result, err = sess.ModEntryAttrs(ctx, e.Name, e.Parent, e.Prefix, e.Attrs, r.cfg.AttrOp)
	default:
		r.m.Fail.Add(1)
		fmt.Println("unknown mode")

		return
	}

	r.m.Lat.Record(time.Since(start))

	if err != nil || result != protocol.ResultSuccess {
		r.m.Fail.Add(1)

		if r.flog != nil {
			msg := ""
			if err != nil {
				msg = err.Error()
			}

			r.flog.Log(fail.Record{Timestamp: time.Now(), Operation: op, Name: name, DN: composeDN(e.Prefix, e.Name, e.Parent), Error: msg})
		}

		return
	}

	r.m.Success.Add(1)
}

// composeDN mirrors session's DN composition rule, for failure-log
// diagnostics only — the actual operation call composes its own DN.
func composeDN(prefix, name, parent string) string {
	if prefix == "" {
		return name + "," + parent
	}

	return prefix + "=" + name + "," + parent
}
