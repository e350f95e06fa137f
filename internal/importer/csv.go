package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one data row keyed by header.
type Row map[string]string

// Table is a parsed CSV export.
type Table struct {
	Headers []string
	Rows    []Row
}

var ErrEmptyFile = errors.New("csv file has no header row")

// ReadCSV parses a comma separated export with a header row. Blank lines are
// skipped and short rows are padded with empty values.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importer: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	t := &Table{Headers: make([]string, 0, len(header))}
	for _, h := range header {
		t.Headers = append(t.Headers, strings.TrimSpace(h))
	}

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(t.Headers))
		for i, h := range t.Headers {
			if _, dup := row[h]; dup {
				continue
			}
			row[h] = colVal(rec, i)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func colVal(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
