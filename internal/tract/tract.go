// Package tract loads census tract polygons and resolves points and stops to
// tract keys.
package tract

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Point is a (lon, lat) vertex.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Tract is one census tract. Rings holds the polygon outline; tracts read from
// shapefiles may carry several rings (islands and holes).
type Tract struct {
	Key    string    `json:"key"`
	FullID string    `json:"full_id"`
	Rings  [][]Point `json:"rings"`

	rings  []*geom.LinearRing
	bounds *geom.Bounds
}

// New validates rings, closes them if needed and builds the geometry used
// for containment tests.
func New(key, fullID string, rings [][]Point) (*Tract, error) {
	if key == "" {
		return nil, eris.New("tract: empty key")
	}
	if len(rings) == 0 {
		return nil, eris.Errorf("tract %s: no rings", key)
	}

	t := &Tract{
		Key:    key,
		FullID: fullID,
		bounds: geom.NewBounds(geom.XY),
	}
	for i, r := range rings {
		if len(r) > 0 && r[0] != r[len(r)-1] {
			r = append(append(make([]Point, 0, len(r)+1), r...), r[0])
		}
		if len(r) < 4 {
			return nil, eris.Errorf("tract %s: ring %d has %d vertices, need at least 3", key, i, len(r)-1)
		}

		flat := make([]float64, 0, 2*len(r))
		for _, p := range r {
			flat = append(flat, p.Lon, p.Lat)
		}
		lr := geom.NewLinearRingFlat(geom.XY, flat)
		t.rings = append(t.rings, lr)
		t.bounds.Extend(lr)
		t.Rings = append(t.Rings, r)
	}
	return t, nil
}

// Contains reports whether (lat, lon) lies strictly inside the tract. Rings
// combine under the even-odd rule so holes are excluded; points on any ring
// boundary are outside.
func (t *Tract) Contains(lat, lon float64) bool {
	c := geom.Coord{lon, lat}
	if !t.bounds.OverlapsPoint(geom.XY, c) {
		return false
	}

	inside := false
	for _, r := range t.rings {
		switch xy.LocatePointInRing(geom.XY, c, r.FlatCoords()) {
		case location.Boundary:
			return false
		case location.Interior:
			inside = !inside
		}
	}
	return inside
}

// Bounds returns the tract's bounding box.
func (t *Tract) Bounds() *geom.Bounds {
	return t.bounds.Clone()
}

// MultiPolygon returns the tract as a multipolygon with one single-ring
// polygon per ring.
func (t *Tract) MultiPolygon() *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, r := range t.rings {
		p := geom.NewPolygon(geom.XY)
		if err := p.Push(r); err != nil {
			continue
		}
		if err := mp.Push(p); err != nil {
			continue
		}
	}
	return mp
}
