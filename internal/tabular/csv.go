// Package tabular reads small delimited and spreadsheet tables into string rows.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV reads every record from r. The first record becomes the header.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.ReuseRecord = false

	t := &Table{}
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}

		if first {
			first = false
			t.Header = record
			continue
		}
		if isBlank(record) {
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if first {
		return nil, eris.New("csv: missing header row")
	}
	return t, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, opts CSVOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: %s", path)
	}
	return t, nil
}

// Columns maps lower-cased header names to their index.
func (t *Table) Columns() map[string]int {
	cols := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
