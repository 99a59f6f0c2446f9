package ridership

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/tabular"
)

// CSVSource reads ridership rows from a CSV export.
type CSVSource struct {
	Path string
}

// Load implements Source.
func (s *CSVSource) Load(_ context.Context) ([]StopRecord, error) {
	t, err := tabular.ReadCSVFile(s.Path, tabular.CSVOptions{TrimSpace: true, LazyQuotes: true})
	if err != nil {
		return nil, eris.Wrap(err, "ridership: read csv")
	}
	records, err := RecordsFromTable(t)
	if err != nil {
		return nil, eris.Wrapf(err, "ridership: %s", s.Path)
	}
	zap.L().Debug("ridership: loaded csv", zap.String("path", s.Path), zap.Int("stops", len(records)))
	return records, nil
}

// XLSXSource reads ridership rows from a workbook sheet.
type XLSXSource struct {
	Path  string
	Sheet string
}

// Load implements Source.
func (s *XLSXSource) Load(_ context.Context) ([]StopRecord, error) {
	t, err := tabular.ReadXLSX(s.Path, tabular.XLSXOptions{SheetName: s.Sheet})
	if err != nil {
		return nil, eris.Wrap(err, "ridership: read xlsx")
	}
	records, err := RecordsFromTable(t)
	if err != nil {
		return nil, eris.Wrapf(err, "ridership: %s", s.Path)
	}
	zap.L().Debug("ridership: loaded xlsx", zap.String("path", s.Path), zap.Int("stops", len(records)))
	return records, nil
}

// LoadStops reads stop locations from CSV or XLSX files, in order, keeping
// the first occurrence of each stop id across files.
func LoadStops(paths ...string) ([]Stop, error) {
	seen := make(map[int64]bool)
	var all []Stop
	for _, p := range paths {
		var (
			t   *tabular.Table
			err error
		)
		if strings.EqualFold(filepath.Ext(p), ".xlsx") {
			t, err = tabular.ReadXLSX(p, tabular.XLSXOptions{})
		} else {
			t, err = tabular.ReadCSVFile(p, tabular.CSVOptions{TrimSpace: true, LazyQuotes: true})
		}
		if err != nil {
			return nil, eris.Wrap(err, "ridership: read stops")
		}

		stops, err := StopsFromTable(t)
		if err != nil {
			return nil, eris.Wrapf(err, "ridership: %s", p)
		}
		for _, s := range stops {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			all = append(all, s)
		}
	}
	return all, nil
}
