// Command ldapdomain-loadtest drives a concurrent load test against the
// entry operation surface of github.com/croessner/ldapdomain. It parses
// configuration, loads entry rows from CSV, starts a periodic reporter,
// and runs the worker pool until the configured duration elapses or a
// termination signal is received.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/croessner/ldapdomain/internal/loadtest"
	"github.com/croessner/ldapdomain/internal/loadtest/fail"
	"github.com/croessner/ldapdomain/internal/loadtest/metrics"
)

func main() {
	cfg, err := loadtest.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	if cfg.CheckOnly {
		if err := loadtest.RunCheck(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(2)
		}

		fmt.Println("check: OK")
		os.Exit(0)
	}

	entries, err := loadtest.Load(cfg.EntryCSVPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csv error: %v\n", err)
		os.Exit(2)
	}

	if len(entries.All) == 0 {
		fmt.Fprintf(os.Stderr, "csv error: no entries found in %s\n", cfg.EntryCSVPath)
		os.Exit(2)
	}

	m := metrics.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	reporter := loadtest.NewReporter(m, cfg.StatsInterval)
	go reporter.Run(ctx)

	var flog *fail.Logger
	if cfg.FailLogPath != "" {
		flog = fail.New(cfg.FailLogPath, cfg.FailLogBatch)
		defer flog.Close()
	}

	r := loadtest.NewRunner(cfg, entries, m, flog)
	start := time.Now()
	err = r.Run(ctx)
	elapsed := time.Since(start)

	reporter.Stop()

	loadtest.PrintSummary(os.Stdout, m, elapsed)

	if err != nil {
		fmt.Fprintf(os.Stderr, "run error: %v\n", err)
		os.Exit(1)
	}
}
