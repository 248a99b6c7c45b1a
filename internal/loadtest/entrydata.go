package loadtest

// Loading of load-test entry rows from a CSV file. Expected header:
// name,parent,prefix,new_name,attrs,expected_ok — all but name/parent are
// optional depending on --mode.

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/croessner/ldapdomain/internal/protocol"
)

// Entry represents one entry row to exercise.
type Entry struct {
	Name    string
	Parent  string
	Prefix  string
	NewName string // only consulted for --mode=rename
	Attrs   protocol.AttrList
	// ExpectedOK reflects optional CSV column `expected_ok`. When the
	// column exists, only rows with true are included by Load.
	ExpectedOK bool
}

// Entries holds all parsed rows.
type Entries struct {
	All []Entry
}

// Load reads a CSV file and returns all entry rows. Additional columns are
// ignored.
func Load(path string) (*Entries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	r := csv.NewReader(f)

	h, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idxName, idxParent, idxPrefix, idxNewName, idxAttrs, idxOK := -1, -1, -1, -1, -1, -1
	for i, name := range h {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "name":
			idxName = i
		case "parent":
			idxParent = i
		case "prefix":
			idxPrefix = i
		case "new_name":
			idxNewName = i
		case "attrs":
			idxAttrs = i
		case "expected_ok":
			idxOK = i
		}
	}

	if idxName < 0 || idxParent < 0 {
		return nil, fmt.Errorf("csv must have name,parent headers")
	}

	var entries []Entry

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		if idxName >= len(rec) || idxParent >= len(rec) {
			continue
		}

		e := Entry{
			Name:   strings.TrimSpace(rec[idxName]),
			Parent: strings.TrimSpace(rec[idxParent]),
		}

		if idxPrefix >= 0 && idxPrefix < len(rec) {
			e.Prefix = strings.TrimSpace(rec[idxPrefix])
		}

		if idxNewName >= 0 && idxNewName < len(rec) {
			e.NewName = strings.TrimSpace(rec[idxNewName])
		}

		if idxAttrs >= 0 && idxAttrs < len(rec) {
			e.Attrs = parseAttrs(rec[idxAttrs])
		}

		if idxOK >= 0 {
			val := ""
			if idxOK < len(rec) {
				val = rec[idxOK]
			}

			if strings.EqualFold(strings.TrimSpace(val), "true") {
				e.ExpectedOK = true
			} else {
				continue
			}
		}

		entries = append(entries, e)
	}

	return &Entries{All: entries}, nil
}

// parseAttrs decodes the "attrs" column: semicolon-separated
// "name=val1,val2,..." pairs, e.g. "objectClass=person;sn=One,Two".
func parseAttrs(field string) protocol.AttrList {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}

	parts := strings.Split(field, ";")
	attrs := make(protocol.AttrList, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		name, values, found := strings.Cut(p, "=")
		if !found {
			continue
		}

		attr := protocol.Attr{Name: strings.TrimSpace(name)}
		if values != "" {
			for _, v := range strings.Split(values, ",") {
				attr.Values = append(attr.Values, strings.TrimSpace(v))
			}
		}

		attrs = append(attrs, attr)
	}

	return attrs
}
