package loadtest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunCheckAllModes(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "entries.csv")
	if err := os.WriteFile(csvPath, []byte("name,parent,prefix,new_name\nu1,\"ou=people,dc=example,dc=com\",cn,u2\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	old := newEntrySession
	newEntrySession = func(cfg *Config) (entrySession, error) { return &fakeEntrySession{}, nil }
	t.Cleanup(func() { newEntrySession = old })

	base := &Config{EntryCSVPath: csvPath, BaseDN: "dc=example,dc=com"}

	for _, mode := range []Mode{ModeAdd, ModeMod, ModeRename, ModeDelAttrs} {
		c := *base
		c.Mode = mode

		if err := RunCheck(&c); err != nil {
			t.Fatalf("RunCheck failed for mode %s: %v", mode, err)
		}
	}
}

func TestRunCheckMissingCSVFails(t *testing.T) {
	cfg := &Config{EntryCSVPath: filepath.Join(t.TempDir(), "missing.csv")}

	if err := RunCheck(cfg); err == nil {
		t.Fatalf("expected error for missing csv")
	}
}
