package zoning

import (
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ridership-cli/internal/grid"
)

// File is a zoning document: a frame plus cell clusters, one per zone.
type File struct {
	// BoundingBox is [min_lon, min_lat, max_lon, max_lat].
	BoundingBox []float64 `yaml:"bounding_box"`
	// Dims is [rows, cols].
	Dims []int `yaml:"dims"`
	// LonDegPerDx and LatDegPerDy override the cell size derived from the
	// bounding box when set.
	LonDegPerDx float64             `yaml:"londeg_per_dx,omitempty"`
	LatDegPerDy float64             `yaml:"latdeg_per_dy,omitempty"`
	Clusters    []Cluster           `yaml:"clusters"`
	Meta        map[string]ZoneMeta `yaml:"meta,omitempty"`
}

// Cluster lists the [row, col] cells of one zone.
type Cluster struct {
	Zone  string  `yaml:"zone"`
	Cells [][]int `yaml:"cells"`
}

// ZoneMeta holds per-parameter statistics of a zone.
type ZoneMeta struct {
	ParamStats map[string]ParamStats `yaml:"param_stats"`
}

// ParamStats summarizes one measured parameter over a zone.
type ParamStats struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Mean float64 `yaml:"mean"`
}

// LoadFile reads a zoning document from path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	zf, err := ParseFile(f)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: %s", path)
	}
	return zf, nil
}

// ParseFile decodes and validates a zoning document.
func ParseFile(r io.Reader) (*File, error) {
	var zf File
	if err := yaml.NewDecoder(r).Decode(&zf); err != nil {
		return nil, eris.Wrap(err, "zoning: parse yaml")
	}
	if len(zf.BoundingBox) != 4 {
		return nil, eris.Errorf("zoning: bounding_box needs 4 values, got %d", len(zf.BoundingBox))
	}
	if len(zf.Dims) != 2 {
		return nil, eris.Errorf("zoning: dims needs 2 values, got %d", len(zf.Dims))
	}
	for k, c := range zf.Clusters {
		for _, cell := range c.Cells {
			if len(cell) != 2 {
				return nil, eris.Errorf("zoning: cluster %d: cell %v is not [row, col]", k, cell)
			}
		}
	}
	if _, err := zf.Frame(); err != nil {
		return nil, err
	}
	return &zf, nil
}

// Frame returns the grid→geo mapping of the document.
func (zf *File) Frame() (Frame, error) {
	var bbox [4]float64
	copy(bbox[:], zf.BoundingBox)
	frame, err := FrameFromBBox(bbox, zf.Dims[0], zf.Dims[1])
	if err != nil {
		return Frame{}, err
	}
	if zf.LonDegPerDx > 0 {
		frame.DLon = zf.LonDegPerDx
	}
	if zf.LatDegPerDy > 0 {
		frame.DLat = zf.LatDegPerDy
	}
	return frame, nil
}

// Masks returns one mask per cluster. Clusters without a zone name are
// named by their position.
func (zf *File) Masks() []ClusterMask {
	masks := make([]ClusterMask, len(zf.Clusters))
	for k, c := range zf.Clusters {
		zone := c.Zone
		if zone == "" {
			zone = strconv.Itoa(k)
		}
		cells := make([]grid.Cell, len(c.Cells))
		for i, rc := range c.Cells {
			cells[i] = grid.Cell{Row: rc[0], Col: rc[1]}
		}
		masks[k] = ClusterMask{Zone: zone, Cells: cells}
	}
	return masks
}

// Stats returns the parameter statistics recorded for zone, if any.
func (zf *File) Stats(zone string) map[string]ParamStats {
	if m, ok := zf.Meta[zone]; ok {
		return m.ParamStats
	}
	return nil
}
