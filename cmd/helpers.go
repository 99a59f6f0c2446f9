package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ridership-cli/internal/aggregate"
	"github.com/sells-group/ridership-cli/internal/config"
	"github.com/sells-group/ridership-cli/internal/db"
	"github.com/sells-group/ridership-cli/internal/export"
	"github.com/sells-group/ridership-cli/internal/grid"
	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/tract"
)

const dateLayout = "2006-01-02"

// splitAndTrim splits a comma-separated list, dropping empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(n)]
		if !ok {
			return nil, eris.Errorf("unknown weekday %q", n)
		}
		days = append(days, d)
	}
	return days, nil
}

// parseDateRange parses inclusive YYYY-MM-DD bounds. An empty end means now;
// a set end covers that whole day.
func parseDateRange(begin, end string) (time.Time, time.Time, error) {
	var b, e time.Time
	if begin != "" {
		t, err := time.Parse(dateLayout, begin)
		if err != nil {
			return b, e, eris.Wrapf(err, "parse --begin %q", begin)
		}
		b = t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return b, e, eris.Wrapf(err, "parse --end %q", end)
		}
		e = t.Add(24*time.Hour - time.Nanosecond)
	}
	return b, e, nil
}

func newGridIndex(c config.GridConfig) (*grid.Index, error) {
	var opts []grid.Option
	if c.Strict {
		opts = append(opts, grid.WithStrictOrigin())
	}
	return grid.New(c.DX, c.DY, c.OriginLat, c.OriginLon, opts...)
}

func boundsFilter(c config.BoundsConfig) *aggregate.BoundsFilter {
	if !c.Enabled {
		return nil
	}
	return &aggregate.BoundsFilter{
		MinLat: c.MinLat,
		MinLon: c.MinLon,
		MaxLat: c.MaxLat,
		MaxLon: c.MaxLon,
	}
}

// loadTracts reads a tract TSV, or a TIGER shapefile when path ends in .shp.
func loadTracts(path string, c config.TractsConfig) ([]*tract.Tract, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return tract.LoadShapefile(path, c.IDField, c.NameField)
	}
	return tract.LoadTSV(path)
}

// sourceOptions is the resolved ridership input of one command run.
type sourceOptions struct {
	Driver   string
	Paths    []string
	Sheet    string
	Table    string
	Begin    time.Time
	End      time.Time
	Weekdays []time.Weekday
}

// openSource builds the ridership source. The returned close func releases
// the database pool, if any.
func openSource(ctx context.Context, src sourceOptions, databaseURL string) (ridership.Source, func(), error) {
	noop := func() {}
	switch src.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return nil, noop, err
		}
		return &ridership.PostgresSource{
			Pool:     pool,
			Table:    src.Table,
			Begin:    src.Begin,
			End:      src.End,
			Weekdays: src.Weekdays,
		}, pool.Close, nil
	case "csv", "xlsx":
		if len(src.Paths) == 0 {
			return nil, noop, eris.Errorf("%s source requires at least one path", src.Driver)
		}
		return fileSources(src), noop, nil
	default:
		return nil, noop, eris.Errorf("unknown source driver %q", src.Driver)
	}
}

// multiSource concatenates the records of several file sources.
type multiSource []ridership.Source

func (m multiSource) Load(ctx context.Context) ([]ridership.StopRecord, error) {
	var all []ridership.StopRecord
	for _, s := range m {
		recs, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

// fileSources picks CSV or XLSX per file extension so one run can mix both.
func fileSources(src sourceOptions) multiSource {
	srcs := make(multiSource, 0, len(src.Paths))
	for _, p := range src.Paths {
		if strings.EqualFold(filepath.Ext(p), ".xlsx") {
			srcs = append(srcs, &ridership.XLSXSource{Path: p, Sheet: src.Sheet})
			continue
		}
		srcs = append(srcs, &ridership.CSVSource{Path: p})
	}
	return srcs
}

// exportPool connects to the PostGIS database and applies the ridership
// schema when configured to.
func exportPool(ctx context.Context, c config.ExportConfig) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if c.Migrate {
		if err := export.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "export: migrate")
		}
	}
	return pool, nil
}
