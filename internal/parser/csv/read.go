// Package csv reads the candidate CSV into an in-memory dataset.
//
// Header names are passed through verbatim (minus BOM and edge whitespace);
// canonicalization happens downstream in internal/transform.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ShadowBlack33/workshop1-etl/internal/dataset"
)

// Options control CSV parsing.
type Options struct {
	// Comma is the field separator. Zero means ';' (the upstream export format).
	Comma rune
	// LazyQuotes relaxes quote handling for sloppy exports.
	LazyQuotes bool
}

// Read parses src into a dataset. The first record is the header row.
//
// Cell handling:
//   - edge whitespace is trimmed
//   - empty cells become nil, not ""
//   - short records are padded with nil; long records are truncated
//
// A missing header row is an error; malformed data rows are skipped and
// reported through onErr (may be nil).
func Read(src io.Reader, opt Options, onErr func(line int, err error)) (*dataset.Dataset, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ';'
	}

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		columns[i] = h
	}

	ds := dataset.New(columns)
	for {
		rec, err := readRec()
		if err == io.EOF {
			return ds, nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := make([]any, len(columns))
		for i := range columns {
			if i >= len(rec) {
				row[i] = nil
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				row[i] = nil
			} else {
				row[i] = v
			}
		}
		ds.Append(row)
	}
}
