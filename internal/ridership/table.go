package ridership

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ridership-cli/internal/tabular"
)

// Column names recognised in ridership and stop tables (case-insensitive).
const (
	ColStopID    = "stop_id"
	ColStopName  = "stop_name"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColOn        = "psgr_on"
	ColOff       = "psgr_off"
	ColLoad      = "psgr_load"
)

// RecordsFromTable converts a ridership table into stop records. Rows sharing
// a stop id are summed; output keeps first-seen stop order. The location and
// name of the first row of each stop win.
func RecordsFromTable(t *tabular.Table) ([]StopRecord, error) {
	cols := t.Columns()
	for _, c := range []string{ColStopID, ColLatitude, ColLongitude, ColOn, ColOff} {
		if _, ok := cols[c]; !ok {
			return nil, eris.Errorf("ridership: missing column %q", c)
		}
	}

	byID := make(map[int64]int)
	var records []StopRecord
	for i, row := range t.Rows {
		line := i + 2
		stop, err := stopFromRow(row, cols, line)
		if err != nil {
			return nil, err
		}

		on, err := intField(row, cols, ColOn, line)
		if err != nil {
			return nil, err
		}
		off, err := intField(row, cols, ColOff, line)
		if err != nil {
			return nil, err
		}
		load, err := intField(row, cols, ColLoad, line)
		if err != nil {
			return nil, err
		}

		if at, ok := byID[stop.ID]; ok {
			records[at].Boardings += on
			records[at].Alightings += off
			records[at].Load += load
			continue
		}
		byID[stop.ID] = len(records)
		records = append(records, StopRecord{Stop: stop, Boardings: on, Alightings: off, Load: load})
	}

	return records, nil
}

// StopsFromTable reads stop locations (stop_id, stop_name, latitude,
// longitude). Duplicate ids keep the first row.
func StopsFromTable(t *tabular.Table) ([]Stop, error) {
	cols := t.Columns()
	for _, c := range []string{ColStopID, ColLatitude, ColLongitude} {
		if _, ok := cols[c]; !ok {
			return nil, eris.Errorf("ridership: missing column %q", c)
		}
	}

	seen := make(map[int64]bool)
	var stops []Stop
	for i, row := range t.Rows {
		stop, err := stopFromRow(row, cols, i+2)
		if err != nil {
			return nil, err
		}
		if seen[stop.ID] {
			continue
		}
		seen[stop.ID] = true
		stops = append(stops, stop)
	}
	return stops, nil
}

func stopFromRow(row []string, cols map[string]int, line int) (Stop, error) {
	id, err := strconv.ParseInt(field(row, cols, ColStopID), 10, 64)
	if err != nil {
		return Stop{}, eris.Wrapf(err, "ridership: line %d: stop_id", line)
	}
	lat, err := strconv.ParseFloat(field(row, cols, ColLatitude), 64)
	if err != nil {
		return Stop{}, eris.Wrapf(err, "ridership: line %d: latitude", line)
	}
	lon, err := strconv.ParseFloat(field(row, cols, ColLongitude), 64)
	if err != nil {
		return Stop{}, eris.Wrapf(err, "ridership: line %d: longitude", line)
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Stop{}, eris.Errorf("ridership: line %d: invalid location (%v, %v)", line, lat, lon)
	}
	return Stop{ID: id, Name: field(row, cols, ColStopName), Lat: lat, Lon: lon}, nil
}

// intField parses an optional count column; absent or empty means zero.
// Fractional values (spreadsheet exports) are truncated.
func intField(row []string, cols map[string]int, name string, line int) (int64, error) {
	v := field(row, cols, name)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "ridership: line %d: %s", line, name)
	}
	return int64(f), nil
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
