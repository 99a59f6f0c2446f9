package zoning

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/ridership-cli/internal/grid"
)

// Frame maps grid rows and columns to degrees. Row 0 starts at MinLat and
// column 0 at MinLon.
type Frame struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	DLon   float64 `json:"dlon"`
	DLat   float64 `json:"dlat"`
	Rows   int     `json:"rows"`
	Cols   int     `json:"cols"`
}

// FrameFromBBox spreads a rows-by-cols grid evenly over bbox, given as
// [min_lon, min_lat, max_lon, max_lat].
func FrameFromBBox(bbox [4]float64, rows, cols int) (Frame, error) {
	if rows <= 0 || cols <= 0 {
		return Frame{}, eris.Errorf("zoning: invalid dims %dx%d", rows, cols)
	}
	if bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return Frame{}, eris.Errorf("zoning: empty bounding box %v", bbox)
	}
	return Frame{
		MinLon: bbox[0],
		MinLat: bbox[1],
		DLon:   (bbox[2] - bbox[0]) / float64(cols),
		DLat:   (bbox[3] - bbox[1]) / float64(rows),
		Rows:   rows,
		Cols:   cols,
	}, nil
}

// FrameFromGrid builds a frame whose cells coincide with the cells of idx,
// so a rectangle over cell (r, c) has the same box as idx.Bounds(r, c).
func FrameFromGrid(idx *grid.Index, rows, cols int) Frame {
	lat, lon := idx.Origin()
	return Frame{
		MinLon: lon - idx.DLon(),
		MinLat: lat - idx.DLat(),
		DLon:   idx.DLon(),
		DLat:   idx.DLat(),
		Rows:   rows,
		Cols:   cols,
	}
}

// Validate checks that the frame has positive dims and cell sizes.
func (f Frame) Validate() error {
	if f.Rows <= 0 || f.Cols <= 0 {
		return eris.Errorf("zoning: invalid frame dims %dx%d", f.Rows, f.Cols)
	}
	if f.DLon <= 0 || f.DLat <= 0 {
		return eris.Errorf("zoning: invalid cell size (%v, %v)", f.DLon, f.DLat)
	}
	return nil
}

// BBox returns the frame extent as [min_lon, min_lat, max_lon, max_lat].
func (f Frame) BBox() [4]float64 {
	return [4]float64{
		f.MinLon,
		f.MinLat,
		f.MinLon + float64(f.Cols)*f.DLon,
		f.MinLat + float64(f.Rows)*f.DLat,
	}
}

// Geo maps a grid rectangle to its geographic box.
func (f Frame) Geo(zone string, r Rect) GeoRectangle {
	return GeoRectangle{
		Zone:   zone,
		MinLon: f.MinLon + float64(r.Col0)*f.DLon,
		MinLat: f.MinLat + float64(r.Row0)*f.DLat,
		MaxLon: f.MinLon + float64(r.Col1+1)*f.DLon,
		MaxLat: f.MinLat + float64(r.Row1+1)*f.DLat,
		Row0:   r.Row0,
		Col0:   r.Col0,
		Row1:   r.Row1,
		Col1:   r.Col1,
	}
}

// GeoRectangle is one rectangle of a zone in degrees, with the grid block it
// came from.
type GeoRectangle struct {
	Zone   string  `json:"zone"`
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
	Row0   int     `json:"row0"`
	Col0   int     `json:"col0"`
	Row1   int     `json:"row1"`
	Col1   int     `json:"col1"`
}

// Rect returns the grid block of the rectangle.
func (g GeoRectangle) Rect() Rect {
	return Rect{Row0: g.Row0, Col0: g.Col0, Row1: g.Row1, Col1: g.Col1}
}

// Bounds returns the rectangle as a grid.Bounds box.
func (g GeoRectangle) Bounds() grid.Bounds {
	return grid.Bounds{MinLat: g.MinLat, MinLon: g.MinLon, MaxLat: g.MaxLat, MaxLon: g.MaxLon}
}
