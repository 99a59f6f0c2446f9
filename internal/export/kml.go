package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Default KML ramp settings.
const (
	DefaultKMLColors    = 10
	DefaultKMLMinMetric = 2000
)

// KMLOptions control placemark styling.
type KMLOptions struct {
	// Name is the document name.
	Name string
	// Colors is the number of ramp steps; styles clr0..clrN are emitted.
	Colors int
	// MinMetric drops features whose Metric is below it.
	MinMetric int64
	// MaxMetric maps to the top of the ramp. Zero uses half the largest
	// Metric.
	MaxMetric int64
	// ByIndex colours features by position instead of Metric, one ramp step
	// per feature. MinMetric is ignored.
	ByIndex bool
	// Altitude of polygon vertices in meters.
	Altitude float64
}

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name,omitempty"`
	Styles     []kmlStyle     `xml:"Style"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlStyle struct {
	ID        string       `xml:"id,attr"`
	LineStyle kmlLineStyle `xml:"LineStyle"`
	PolyStyle kmlPolyStyle `xml:"PolyStyle"`
}

type kmlLineStyle struct {
	Color string `xml:"color"`
	Width int    `xml:"width"`
}

type kmlPolyStyle struct {
	Color string `xml:"color"`
}

type kmlPlacemark struct {
	Name        string           `xml:"name"`
	Description string           `xml:"description,omitempty"`
	StyleURL    string           `xml:"styleUrl"`
	Geometry    kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlMultiGeometry struct {
	Polygons []kmlPolygon `xml:"Polygon"`
}

type kmlPolygon struct {
	Extrude      int         `xml:"extrude"`
	AltitudeMode string      `xml:"altitudeMode"`
	Outer        kmlBoundary `xml:"outerBoundaryIs"`
}

type kmlBoundary struct {
	Ring kmlRing `xml:"LinearRing"`
}

type kmlRing struct {
	Coordinates string `xml:"coordinates"`
}

// WriteKML writes features as KML placemarks coloured along a jet ramp.
func WriteKML(w io.Writer, features []Feature, opts KMLOptions) error {
	colors := opts.Colors
	if opts.ByIndex {
		colors = len(features)
	}
	if colors <= 0 {
		colors = DefaultKMLColors
	}

	// Without an explicit top, the ramp spans half the largest metric so the
	// upper half of the range saturates at the hottest colour.
	maxMetric := float64(opts.MaxMetric)
	if maxMetric <= 0 {
		var largest int64
		for _, f := range features {
			largest = max(largest, f.Metric)
		}
		maxMetric = 0.5 * float64(largest)
	}

	doc := kmlRoot{
		Xmlns:    "http://www.opengis.net/kml/2.2",
		Document: kmlDocument{Name: opts.Name},
	}
	for i := 0; i <= colors; i++ {
		c := jetColor(float64(i) / float64(colors))
		doc.Document.Styles = append(doc.Document.Styles, kmlStyle{
			ID:        "clr" + strconv.Itoa(i),
			LineStyle: kmlLineStyle{Color: c, Width: 1},
			PolyStyle: kmlPolyStyle{Color: c},
		})
	}

	for i, f := range features {
		step := i
		if !opts.ByIndex {
			if f.Metric < opts.MinMetric {
				continue
			}
			step = 0
			if maxMetric > 0 {
				step = min(colors, int(math.Round(float64(f.Metric)*float64(colors)/maxMetric)))
			}
		}

		pm := kmlPlacemark{
			Name:        strings.ReplaceAll(f.Name, "&", "and"),
			Description: f.Description,
			StyleURL:    "#clr" + strconv.Itoa(step),
		}
		for _, r := range f.Rings {
			pm.Geometry.Polygons = append(pm.Geometry.Polygons, kmlPolygon{
				Extrude:      1,
				AltitudeMode: "relativeToGround",
				Outer:        kmlBoundary{Ring: kmlRing{Coordinates: kmlCoordinates(r, opts.Altitude)}},
			})
		}
		doc.Document.Placemarks = append(doc.Document.Placemarks, pm)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return eris.Wrap(err, "export: write kml header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "export: encode kml")
	}
	return eris.Wrap(enc.Close(), "export: flush kml")
}

// WriteKMLFile writes features to path.
func WriteKMLFile(path string, features []Feature, opts KMLOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteKML(f, features, opts); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

func kmlCoordinates(r Ring, alt float64) string {
	parts := make([]string, len(r))
	for i, p := range r {
		parts[i] = fmt.Sprintf("%s,%s,%s",
			strconv.FormatFloat(p[0], 'f', -1, 64),
			strconv.FormatFloat(p[1], 'f', -1, 64),
			strconv.FormatFloat(alt, 'f', -1, 64),
		)
	}
	return strings.Join(parts, " ")
}

// jetColor returns the KML aabbggrr colour at x in [0, 1] on the jet ramp.
func jetColor(x float64) string {
	channel := func(offset float64) int {
		v := 1.5 - math.Abs(4*x-offset)
		return int(255 * math.Max(0, math.Min(1, v)))
	}
	r, g, b := channel(3), channel(2), channel(1)
	return fmt.Sprintf("FF%02X%02X%02X", b, g, r)
}
