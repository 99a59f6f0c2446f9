package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WGS84PRJ is the ESRI projection text for EPSG:4326 written next to every
// shapefile.
const WGS84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// DBF field widths.
const (
	stringFieldLen = 64
	numberFieldLen = 18
	floatFieldLen  = 24
	floatDecimals  = 8
)

// WriteShapefile writes features as polygon records to path (.shp, .shx,
// .dbf) plus a .prj sidecar. Each feature becomes one record whose rings are
// the polygon parts. The attribute table follows the first feature's
// attributes.
func WriteShapefile(path string, features []Feature) error {
	if len(features) == 0 {
		return eris.Errorf("export: no features for shapefile %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}

	attrs := features[0].Attrs
	if err := w.SetFields(dbfFields(attrs)); err != nil {
		w.Close()
		return eris.Wrapf(err, "export: set fields on %s", path)
	}

	for _, f := range features {
		parts := make([][]shp.Point, 0, len(f.Rings))
		for _, r := range f.Rings {
			// Shapefile outer rings run clockwise.
			if signedArea(r) > 0 {
				r = reversed(r)
			}
			pts := make([]shp.Point, len(r))
			for i, p := range r {
				pts[i] = shp.Point{X: p[0], Y: p[1]}
			}
			parts = append(parts, pts)
		}

		poly := shp.Polygon(*shp.NewPolyLine(parts))
		row := int(w.Write(&poly))
		for i, a := range attrs {
			v := lookupAttr(f.Attrs, a.Name)
			if err := w.WriteAttribute(row, i, v); err != nil {
				w.Close()
				return eris.Wrapf(err, "export: write %s.%s", f.Name, a.Name)
			}
		}
	}
	w.Close()

	if err := fixDBFName(path); err != nil {
		return err
	}
	if err := WritePRJ(path); err != nil {
		return err
	}

	zap.L().Info("export: wrote shapefile",
		zap.String("path", path),
		zap.Int("features", len(features)),
	)
	return nil
}

// fixDBFName moves the attribute table go-shp writes as "<base>dbf" to
// "<base>.dbf", where shapefile readers look for it.
func fixDBFName(shpPath string) error {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "export: rename attribute table for %s", shpPath)
	}
	return nil
}

// WritePRJ writes the WGS84 projection file for the shapefile at shpPath.
func WritePRJ(shpPath string) error {
	prj := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	if err := os.WriteFile(prj, []byte(WGS84PRJ), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", prj)
	}
	return nil
}

func dbfFields(attrs []Attr) []shp.Field {
	fields := make([]shp.Field, len(attrs))
	for i, a := range attrs {
		name := a.Name
		if len(name) > 10 {
			name = name[:10]
		}
		switch a.Value.(type) {
		case int, int64:
			fields[i] = shp.NumberField(name, numberFieldLen)
		case float64:
			fields[i] = shp.FloatField(name, floatFieldLen, floatDecimals)
		default:
			fields[i] = shp.StringField(name, stringFieldLen)
		}
	}
	return fields
}

// lookupAttr returns the formatted value of name, or "" when the feature
// lacks it.
func lookupAttr(attrs []Attr, name string) string {
	for _, a := range attrs {
		if a.Name == name {
			return formatValue(a.Value)
		}
	}
	return ""
}
