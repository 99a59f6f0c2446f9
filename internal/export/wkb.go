package export

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// SRID of every exported geometry.
const SRID = 4326

// EncodeEWKB encodes rings as an EWKB MultiPolygon with SRID 4326, one
// polygon per ring. It returns nil, nil when no ring is usable.
func EncodeEWKB(rings []Ring) ([]byte, error) {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)

	for i, r := range rings {
		flat := make([]float64, 0, 2*len(r))
		for _, p := range r {
			flat = append(flat, p[0], p[1])
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("export: skipping malformed ring", zap.Int("ring", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("export: skipping malformed polygon", zap.Int("ring", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil, nil
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "export: encode EWKB")
	}
	return data, nil
}
