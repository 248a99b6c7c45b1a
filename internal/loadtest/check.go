package loadtest

// Provides a lightweight connectivity/config verification that can be
// executed via --check to validate CLI parameters, entry CSV, and
// directory access without running the full load test.

import (
	"context"
	"fmt"
)

// RunCheck performs a short verification sequence and returns precise
// errors.
func RunCheck(cfg *Config) error {
	entries, err := Load(cfg.EntryCSVPath)
	if err != nil {
		return fmt.Errorf("csv error: %w", err)
	}

	if len(entries.All) == 0 {
		return fmt.Errorf("csv error: no entries found in %s", cfg.EntryCSVPath)
	}

	fmt.Printf("OK: CSV '%s' loaded (%d entries)\n", cfg.EntryCSVPath, len(entries.All))

	sess, err := newEntrySession(cfg)
	if err != nil {
		return fmt.Errorf("session error: %w", err)
	}

	defer sess.Free()

	fmt.Println("OK: connection reached RUN")

	e := entries.All[0]
	ctx := context.Background()

	switch cfg.Mode {
	case ModeAdd:
		if _, err := sess.AddEntry(ctx, e.Name, e.Parent, e.Prefix, e.Attrs); err != nil {
			return fmt.Errorf("add_entry failed for '%s': %w", e.Name, err)
		}

		fmt.Printf("OK: add_entry for '%s'\n", e.Name)
	case ModeMod:
		if _, err := sess.ModEntry(ctx, e.Name, e.Parent, e.Prefix, e.Attrs); err != nil {
			return fmt.Errorf("mod_entry failed for '%s': %w", e.Name, err)
		}

		fmt.Printf("OK: mod_entry for '%s'\n", e.Name)
	case ModeRename:
		if _, err := sess.RenameEntry(ctx, e.Name, e.NewName, e.Parent, e.Prefix); err != nil {
			return fmt.Errorf("rename_entry failed for '%s': %w", e.Name, err)
		}

		fmt.Printf("OK: rename_entry for '%s'\n", e.Name)
	case ModeDelAttrs:
		if _, err := sess.ModEntryAttrs(ctx, e.Name, e.Parent, e.Prefix, e.Attrs, cfg.AttrOp); err != nil {
			return fmt.Errorf("mod_entry_attrs failed for '%s': %w", e.Name, err)
		}

		fmt.Printf("OK: mod_entry_attrs for '%s'\n", e.Name)
	}

	return nil
}
