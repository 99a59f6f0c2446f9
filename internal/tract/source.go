package tract

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/tabular"
)

// TSVHeader is the header line of the tract source table.
const TSVHeader = "census tract\tfull id\tshape"

// LoadTSV reads the tract source table at path. Any missing or malformed row
// fails the whole load.
func LoadTSV(path string) ([]*Tract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	tracts, err := ParseTSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: %s", path)
	}
	zap.L().Info("tract: loaded tracts", zap.String("path", path), zap.Int("tracts", len(tracts)))
	return tracts, nil
}

// ParseTSV parses rows of "key \t full id \t lon,lat lon,lat ..." after one
// header line.
func ParseTSV(r io.Reader) ([]*Tract, error) {
	t, err := tabular.ReadCSV(r, tabular.CSVOptions{Delimiter: '\t', LazyQuotes: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "tract: read table")
	}

	tracts := make([]*Tract, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := i + 2
		if len(row) < 3 {
			return nil, eris.Errorf("tract: line %d: expected 3 columns, got %d", line, len(row))
		}
		ring, err := parseRing(row[2])
		if err != nil {
			return nil, eris.Wrapf(err, "tract: line %d", line)
		}
		tr, err := New(row[0], row[1], [][]Point{ring})
		if err != nil {
			return nil, eris.Wrapf(err, "tract: line %d", line)
		}
		tracts = append(tracts, tr)
	}
	if len(tracts) == 0 {
		return nil, eris.New("tract: no tracts in source table")
	}
	return tracts, nil
}

// parseRing parses space-separated "lon,lat" pairs.
func parseRing(s string) ([]Point, error) {
	fields := strings.Fields(s)
	ring := make([]Point, 0, len(fields))
	for _, pair := range fields {
		lonStr, latStr, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, eris.Errorf("malformed vertex %q", pair)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "vertex %q: lon", pair)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "vertex %q: lat", pair)
		}
		ring = append(ring, Point{Lon: lon, Lat: lat})
	}
	return ring, nil
}

// WriteTSV writes tracts as a source table. Multi-ring tracts are flattened
// into one vertex list, which is what downstream readers of the table expect.
func WriteTSV(w io.Writer, tracts []*Tract) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, TSVHeader); err != nil {
		return eris.Wrap(err, "tract: write header")
	}

	for _, t := range tracts {
		var sb strings.Builder
		for _, ring := range t.Rings {
			for _, p := range ring {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
				sb.WriteByte(',')
				sb.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
			}
		}
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", t.Key, t.FullID, sb.String()); err != nil {
			return eris.Wrapf(err, "tract: write %s", t.Key)
		}
	}
	return eris.Wrap(bw.Flush(), "tract: flush")
}
