package tract

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TIGER attribute names for census tract shapefiles. Older vintages use
// trctid/trctname, newer ones GEOID/NAMELSAD.
const (
	DefaultIDField   = "GEOID"
	DefaultNameField = "NAMELSAD"
)

// LoadShapefile reads tract polygons from a TIGER shapefile. The key is the
// last whitespace-separated token of nameField ("Census Tract 4001" → "4001")
// and the full id is idField. Records with no polygon are skipped.
func LoadShapefile(shpPath, idField, nameField string) ([]*Tract, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	idIdx, ok := fieldIdx[strings.ToLower(idField)]
	if !ok {
		return nil, eris.Errorf("tract: shapefile %s has no %s field", shpPath, idField)
	}
	nameIdx, ok := fieldIdx[strings.ToLower(nameField)]
	if !ok {
		return nil, eris.Errorf("tract: shapefile %s has no %s field", shpPath, nameField)
	}

	var tracts []*Tract
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil || poly.NumPoints == 0 {
			skipped++
			continue
		}

		fullID := attr(reader, idIdx)
		name := strings.Fields(attr(reader, nameIdx))
		if len(name) == 0 {
			skipped++
			continue
		}

		t, err := New(name[len(name)-1], fullID, polygonRings(poly))
		if err != nil {
			return nil, eris.Wrapf(err, "tract: record %d", n)
		}
		tracts = append(tracts, t)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tract: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("tract: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return tracts, nil
}

func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// polygonRings splits a shapefile polygon into its parts.
func polygonRings(p *shp.Polygon) [][]Point {
	rings := make([][]Point, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := p.NumPoints
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		ring := make([]Point, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, Point{Lon: pt.X, Lat: pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
