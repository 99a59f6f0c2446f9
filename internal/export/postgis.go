package export

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/aggregate"
	"github.com/sells-group/ridership-cli/internal/db"
	"github.com/sells-group/ridership-cli/internal/grid"
	"github.com/sells-group/ridership-cli/internal/zoning"
)

// PostGIS destination tables.
const (
	GridBucketsTable    = "ridership.grid_buckets"
	TractBucketsTable   = "ridership.tract_buckets"
	ZoneRectanglesTable = "ridership.zone_rectangles"
)

var (
	gridBucketColumns = []string{
		"run_id", "box_address", "row_idx", "col_idx", "rank",
		"boardings", "alightings", "load", "metric", "num_stops", "geom",
	}
	tractBucketColumns = []string{
		"run_id", "tract", "full_id", "rank",
		"boardings", "alightings", "load", "metric", "num_stops", "geom",
	}
	zoneRectangleColumns = []string{
		"run_id", "zone", "rect_idx", "row0", "col0", "row1", "col1", "geom",
	}
)

// PostGIS loads export rows into the ridership schema with COPY. Every row
// of one PostGIS value shares a run id.
type PostGIS struct {
	pool  db.Pool
	runID string
}

// NewPostGIS creates a loader. An empty runID gets a fresh UUID.
func NewPostGIS(pool db.Pool, runID string) *PostGIS {
	if runID == "" {
		runID = uuid.New().String()
	}
	return &PostGIS{pool: pool, runID: runID}
}

// RunID identifies the rows written by this loader.
func (p *PostGIS) RunID() string { return p.runID }

// WriteGridBuckets loads grid buckets in result order.
func (p *PostGIS) WriteGridBuckets(ctx context.Context, res *aggregate.Result, idx *grid.Index) (int64, error) {
	var rows [][]any
	for _, b := range res.Sorted() {
		if b.Cell == nil {
			continue
		}
		geom, err := EncodeEWKB([]Ring{Ring(idx.Bounds(*b.Cell).Ring())})
		if err != nil {
			return 0, eris.Wrapf(err, "export: grid bucket %s", b.Key)
		}
		rows = append(rows, []any{
			p.runID, b.Key, b.Cell.Row, b.Cell.Col, b.Rank,
			b.Boardings, b.Alightings, b.Load, b.Metric, b.NumStops, geom,
		})
	}
	return p.copy(ctx, GridBucketsTable, gridBucketColumns, rows)
}

// WriteTractBuckets loads tract buckets in result order. Buckets without a
// polygon get a NULL geometry.
func (p *PostGIS) WriteTractBuckets(ctx context.Context, res *aggregate.Result) (int64, error) {
	var rows [][]any
	for _, b := range res.Sorted() {
		var fullID any
		var geom []byte
		if b.Tract != nil {
			fullID = b.Tract.FullID
			rings := make([]Ring, 0, len(b.Tract.Rings))
			for _, r := range b.Tract.Rings {
				ring := make(Ring, len(r))
				for i, pt := range r {
					ring[i] = [2]float64{pt.Lon, pt.Lat}
				}
				rings = append(rings, ring)
			}
			var err error
			if geom, err = EncodeEWKB(rings); err != nil {
				return 0, eris.Wrapf(err, "export: tract bucket %s", b.Key)
			}
		}
		rows = append(rows, []any{
			p.runID, b.Key, fullID, b.Rank,
			b.Boardings, b.Alightings, b.Load, b.Metric, b.NumStops, geom,
		})
	}
	return p.copy(ctx, TractBucketsTable, tractBucketColumns, rows)
}

// WriteZoneRectangles loads one row per rectangle, numbered within its zone.
func (p *PostGIS) WriteZoneRectangles(ctx context.Context, rects []zoning.GeoRectangle) (int64, error) {
	seq := make(map[string]int)
	rows := make([][]any, 0, len(rects))
	for _, r := range rects {
		geom, err := EncodeEWKB([]Ring{Ring(r.Bounds().Ring())})
		if err != nil {
			return 0, eris.Wrapf(err, "export: zone %s rectangle", r.Zone)
		}
		rows = append(rows, []any{
			p.runID, r.Zone, seq[r.Zone], r.Row0, r.Col0, r.Row1, r.Col1, geom,
		})
		seq[r.Zone]++
	}
	return p.copy(ctx, ZoneRectanglesTable, zoneRectangleColumns, rows)
}

func (p *PostGIS) copy(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	n, err := db.CopyFrom(ctx, p.pool, table, columns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "export: load %s", table)
	}
	zap.L().Info("export: loaded rows",
		zap.String("table", table),
		zap.String("run_id", p.runID),
		zap.Int64("rows", n),
	)
	return n, nil
}
