package aggregate

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/grid"
	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/tract"
)

// BoundsFilter restricts stops to a lat/lon box. Nil sides are unbounded.
type BoundsFilter struct {
	MinLat *float64 `json:"min_lat,omitempty"`
	MinLon *float64 `json:"min_lon,omitempty"`
	MaxLat *float64 `json:"max_lat,omitempty"`
	MaxLon *float64 `json:"max_lon,omitempty"`
}

// Allows reports whether (lat, lon) passes the filter. A nil filter allows
// everything.
func (f *BoundsFilter) Allows(lat, lon float64) bool {
	if f == nil {
		return true
	}
	switch {
	case f.MinLat != nil && lat < *f.MinLat:
		return false
	case f.MaxLat != nil && lat > *f.MaxLat:
		return false
	case f.MinLon != nil && lon < *f.MinLon:
		return false
	case f.MaxLon != nil && lon > *f.MaxLon:
		return false
	}
	return true
}

// Options control which stops are aggregated.
type Options struct {
	Bounds *BoundsFilter
	// MinRiders drops a stop when both its boardings and alightings are below
	// the threshold. Zero keeps every stop.
	MinRiders int64
}

func (o Options) keep(r ridership.StopRecord) bool {
	if o.MinRiders > 0 && r.Boardings < o.MinRiders && r.Alightings < o.MinRiders {
		return false
	}
	return o.Bounds.Allows(r.Lat, r.Lon)
}

// ByGrid buckets stops by grid cell. In strict mode stops outside the grid
// origin are counted as misses.
func ByGrid(stops []ridership.StopRecord, idx *grid.Index, opts Options) (*Result, error) {
	if idx == nil {
		return nil, eris.New("aggregate: nil grid index")
	}

	res := newResult()
	for _, s := range stops {
		if !opts.keep(s) {
			res.Filtered++
			continue
		}

		cell, err := idx.Address(s.Lat, s.Lon)
		if eris.Is(err, grid.ErrOutOfRange) {
			res.Misses++
			zap.L().Debug("aggregate: stop outside grid",
				zap.Int64("stop_id", s.ID),
				zap.Float64("lat", s.Lat),
				zap.Float64("lon", s.Lon),
			)
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "aggregate: address stop %d", s.ID)
		}

		b, created := res.bucket(cell.String())
		if created {
			c := cell
			b.Cell = &c
		}
		b.add(s)
	}
	return res, nil
}

// ByTract buckets stops by tract key using resolve. idx, when non-nil,
// attaches the tract polygon to each bucket. Unresolved stops are counted as
// misses and skipped.
func ByTract(stops []ridership.StopRecord, resolve tract.ResolveFunc, idx *tract.Index, opts Options) (*Result, error) {
	if resolve == nil {
		return nil, eris.New("aggregate: nil tract resolver")
	}

	res := newResult()
	for _, s := range stops {
		if !opts.keep(s) {
			res.Filtered++
			continue
		}

		key, ok := resolve(s.ID, s.Lat, s.Lon)
		if !ok {
			res.Misses++
			zap.L().Debug("aggregate: no tract for stop",
				zap.Int64("stop_id", s.ID),
				zap.Float64("lat", s.Lat),
				zap.Float64("lon", s.Lon),
			)
			continue
		}

		b, created := res.bucket(key)
		if created && idx != nil {
			b.Tract, _ = idx.Get(key)
		}
		b.add(s)
	}
	return res, nil
}
