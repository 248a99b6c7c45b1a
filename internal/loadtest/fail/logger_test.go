package fail

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWriteAndClose(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "fail.csv")

	l := New(p, 2)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Log(Record{Timestamp: time.Now(), Operation: "add_entry", Name: "u1", DN: "cn=u1,dc=example,dc=com", Error: "e"})
	l.Log(Record{Timestamp: time.Now(), Operation: "del_entry", Name: "u2", DN: "cn=u2,dc=example,dc=com", Error: "e2"})

	l.Close()

	f, err := os.Open(p)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var lines []string

	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %d", len(lines))
	}

	if want := "timestamp,operation,name,dn,error"; !strings.Contains(lines[0], want) {
		t.Fatalf("missing header, got: %q", lines[0])
	}
}

func TestLoggerNilPathReturnsNil(t *testing.T) {
	if l := New("", 10); l != nil {
		t.Fatalf("expected nil logger for empty path")
	}
}
