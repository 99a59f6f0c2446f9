package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// FeatureCollection converts features to GeoJSON. Each feature becomes a
// MultiPolygon with one counter-clockwise polygon per ring.
func FeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		mp := make(orb.MultiPolygon, 0, len(f.Rings))
		for _, r := range f.Rings {
			if signedArea(r) < 0 {
				r = reversed(r)
			}
			ring := make(orb.Ring, len(r))
			for i, p := range r {
				ring[i] = orb.Point{p[0], p[1]}
			}
			mp = append(mp, orb.Polygon{ring})
		}

		gf := geojson.NewFeature(mp)
		gf.Properties["name"] = f.Name
		for _, a := range f.Attrs {
			gf.Properties[a.Name] = a.Value
		}
		fc.Append(gf)
	}
	return fc
}

// WriteGeoJSON writes features as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, features []Feature) error {
	data, err := FeatureCollection(features).MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

// WriteGeoJSONFile writes features to path.
func WriteGeoJSONFile(path string, features []Feature) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteGeoJSON(f, features); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
