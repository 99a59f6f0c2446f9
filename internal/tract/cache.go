package tract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/tabular"
)

// StopCacheHeader is the header line of the stop→tract cache file.
const StopCacheHeader = "stop_id,tract"

// LoadStopCache reads a stop→tract cache. The cache is optional: a missing
// file returns (nil, nil).
func LoadStopCache(path string) (map[int64]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Debug("tract: no stop cache", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "tract: open stop cache %s", path)
	}
	defer f.Close() //nolint:errcheck

	cache, err := ParseStopCache(f)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: stop cache %s", path)
	}
	return cache, nil
}

// ParseStopCache parses "stop_id,tract" rows after one header line.
func ParseStopCache(r io.Reader) (map[int64]string, error) {
	t, err := tabular.ReadCSV(r, tabular.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "tract: read stop cache")
	}

	cache := make(map[int64]string, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) < 2 || row[1] == "" {
			return nil, eris.Errorf("tract: stop cache line %d: expected stop_id,tract", i+2)
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "tract: stop cache line %d: stop id", i+2)
		}
		cache[id] = row[1]
	}
	return cache, nil
}

// WriteStopCache writes the cache sorted by stop id.
func WriteStopCache(w io.Writer, cache map[int64]string) error {
	ids := make([]int64, 0, len(cache))
	for id := range cache {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, StopCacheHeader); err != nil {
		return eris.Wrap(err, "tract: write stop cache header")
	}
	for _, id := range ids {
		if _, err := fmt.Fprintf(bw, "%d,%s\n", id, cache[id]); err != nil {
			return eris.Wrapf(err, "tract: write stop %d", id)
		}
	}
	return eris.Wrap(bw.Flush(), "tract: flush stop cache")
}

// BuildStopCache resolves every stop with a polygon scan. Stops with no
// containing tract are returned as misses.
func BuildStopCache(idx *Index, stops []ridership.Stop) (map[int64]string, []ridership.Stop) {
	cache := make(map[int64]string, len(stops))
	var misses []ridership.Stop
	for _, s := range stops {
		key, ok := idx.ForPoint(s.Lat, s.Lon)
		if !ok {
			misses = append(misses, s)
			continue
		}
		cache[s.ID] = key
	}
	return cache, misses
}
