// Package grid maps geographic coordinates to cells of a fixed-size degree grid.
package grid

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Default grid parameters: 1 km cells anchored south-west of the SF Bay Area.
const (
	DefaultCellMeters = 1000.0
	DefaultOriginLat  = 37.0
	DefaultOriginLon  = -122.54
)

// ErrOutOfRange is returned in strict mode for points south or west of the origin.
var ErrOutOfRange = eris.New("grid: point outside grid origin")

// Cell addresses one grid box relative to the origin. Row grows northward,
// Col grows eastward.
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// String renders the cell the way it appears in exported attribute tables.
func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.Row, c.Col)
}

// Less orders cells in row-major order.
func (c Cell) Less(o Cell) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Bounds is a lat/lon box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether (lat, lon) lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Ring returns the closed (lon, lat) outline of the box, counter-clockwise
// from the south-west corner.
func (b Bounds) Ring() [][2]float64 {
	return [][2]float64{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat},
		{b.MinLon, b.MinLat},
	}
}

// Option configures an Index.
type Option func(*Index)

// WithStrictOrigin makes Address fail with ErrOutOfRange instead of clamping
// points south or west of the origin into row/col 0.
func WithStrictOrigin() Option {
	return func(idx *Index) {
		idx.strict = true
	}
}

// Index converts between coordinates and cells. It is immutable after New.
type Index struct {
	originLat float64
	originLon float64
	dx        float64
	dy        float64
	dlat      float64
	dlon      float64
	strict    bool
}

// New builds an Index with dx-by-dy meter cells anchored at (originLat, originLon).
// Degree deltas use the ellipsoidal length-of-a-degree series evaluated at the
// origin latitude.
func New(dx, dy, originLat, originLon float64, opts ...Option) (*Index, error) {
	if dx <= 0 || dy <= 0 {
		return nil, eris.Errorf("grid: cell size must be positive (dx=%v, dy=%v)", dx, dy)
	}
	if originLat < -90 || originLat > 90 || originLon < -180 || originLon > 180 {
		return nil, eris.Errorf("grid: invalid origin (%v, %v)", originLat, originLon)
	}

	idx := &Index{
		originLat: originLat,
		originLon: originLon,
		dx:        dx,
		dy:        dy,
	}
	idx.dlon = dx / MetersPerLonDeg(originLat)
	idx.dlat = dy / MetersPerLatDeg(originLat)

	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// MetersPerLonDeg returns the length in meters of one degree of longitude at lat.
func MetersPerLonDeg(lat float64) float64 {
	phi := lat * math.Pi / 180
	return 111412.84*math.Cos(phi) - 93.5*math.Cos(3*phi)
}

// MetersPerLatDeg returns the length in meters of one degree of latitude at lat.
func MetersPerLatDeg(lat float64) float64 {
	phi := lat * math.Pi / 180
	return 111132.92 - 559.82*math.Cos(2*phi) + 1.175*math.Cos(4*phi)
}

// Address returns the cell containing (lat, lon).
//
// Offsets south or west of the origin are clamped to zero, so all such points
// alias into row/col 0 unless the index was built WithStrictOrigin.
// Non-finite or out-of-range coordinates always fail with ErrOutOfRange.
func (idx *Index) Address(lat, lon float64) (Cell, error) {
	if !validCoord(lat, lon) {
		return Cell{}, eris.Wrapf(ErrOutOfRange, "invalid coordinate (%v, %v)", lat, lon)
	}

	diffLat := lat - idx.originLat
	diffLon := lon - idx.originLon
	if diffLat < 0 || diffLon < 0 {
		if idx.strict {
			return Cell{}, eris.Wrapf(ErrOutOfRange, "(%v, %v)", lat, lon)
		}
		diffLat = math.Max(0, diffLat)
		diffLon = math.Max(0, diffLon)
	}

	return Cell{
		Row: int(math.Ceil(diffLat / idx.dlat)),
		Col: int(math.Ceil(diffLon / idx.dlon)),
	}, nil
}

// validCoord rejects NaN, infinities, and coordinates off the globe.
func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Bounds returns the box of the given cell. Address rounds up, so cell r spans
// ((r-1)*dlat, r*dlat] north of the origin; row/col 0 is the box ending on the
// origin line, which is also where clamped points land.
func (idx *Index) Bounds(c Cell) Bounds {
	maxLat := idx.originLat + float64(c.Row)*idx.dlat
	maxLon := idx.originLon + float64(c.Col)*idx.dlon
	return Bounds{
		MinLat: maxLat - idx.dlat,
		MinLon: maxLon - idx.dlon,
		MaxLat: maxLat,
		MaxLon: maxLon,
	}
}

// Origin returns the grid origin as (lat, lon).
func (idx *Index) Origin() (float64, float64) { return idx.originLat, idx.originLon }

// DLat is the cell height in degrees.
func (idx *Index) DLat() float64 { return idx.dlat }

// DLon is the cell width in degrees.
func (idx *Index) DLon() float64 { return idx.dlon }

// CellMeters returns the configured (dx, dy) cell size in meters.
func (idx *Index) CellMeters() (float64, float64) { return idx.dx, idx.dy }

// Strict reports whether out-of-origin points are rejected.
func (idx *Index) Strict() bool { return idx.strict }
