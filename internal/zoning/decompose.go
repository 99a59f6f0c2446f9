// Package zoning splits clusters of grid cells into axis-aligned rectangles
// and maps them to geographic boxes.
package zoning

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/ridership-cli/internal/grid"
)

// ErrCellOutOfFrame is returned when a cluster cell lies outside the frame.
var ErrCellOutOfFrame = eris.New("zoning: cell outside frame")

// ClusterMask is the set of cells that belong to one zone.
type ClusterMask struct {
	Zone  string      `json:"zone" yaml:"zone"`
	Cells []grid.Cell `json:"cells" yaml:"cells"`
}

// Rect is an inclusive block of grid rows and columns.
type Rect struct {
	Row0 int `json:"row0"`
	Col0 int `json:"col0"`
	Row1 int `json:"row1"`
	Col1 int `json:"col1"`
}

// Rows is the number of rows the rectangle spans.
func (r Rect) Rows() int { return r.Row1 - r.Row0 + 1 }

// Cols is the number of columns the rectangle spans.
func (r Rect) Cols() int { return r.Col1 - r.Col0 + 1 }

// Area is the number of cells in the rectangle.
func (r Rect) Area() int { return r.Rows() * r.Cols() }

// Contains reports whether c lies in the rectangle.
func (r Rect) Contains(c grid.Cell) bool {
	return c.Row >= r.Row0 && c.Row <= r.Row1 && c.Col >= r.Col0 && c.Col <= r.Col1
}

type matrix struct {
	rows, cols int
	cells      []bool
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, cells: make([]bool, rows*cols)}
}

func (m *matrix) at(i, j int) bool { return m.cells[i*m.cols+j] }

func (m *matrix) set(i, j int, v bool) { m.cells[i*m.cols+j] = v }

// fullRow reports whether every cell of row i in columns j0..j1 is marked.
func (m *matrix) fullRow(i, j0, j1 int) bool {
	for j := j0; j <= j1; j++ {
		if !m.at(i, j) {
			return false
		}
	}
	return true
}

// fullCol reports whether every cell of column j in rows i0..i1 is marked.
func (m *matrix) fullCol(j, i0, i1 int) bool {
	for i := i0; i <= i1; i++ {
		if !m.at(i, j) {
			return false
		}
	}
	return true
}

// DecomposeGrid covers the cells of mask with disjoint rectangles in a
// rows-by-cols frame. Rectangles are emitted in row-major order of their
// top-left cell. The cover is greedy and not guaranteed to use the fewest
// rectangles.
func DecomposeGrid(mask ClusterMask, rows, cols int) ([]Rect, error) {
	if rows <= 0 || cols <= 0 {
		return nil, eris.Errorf("zoning: invalid frame dims %dx%d", rows, cols)
	}

	m := newMatrix(rows, cols)
	marked := 0
	for _, c := range mask.Cells {
		if c.Row < 0 || c.Row >= rows || c.Col < 0 || c.Col >= cols {
			return nil, eris.Wrapf(ErrCellOutOfFrame, "zone %s: cell %s in %dx%d frame", mask.Zone, c, rows, cols)
		}
		if !m.at(c.Row, c.Col) {
			m.set(c.Row, c.Col, true)
			marked++
		}
	}

	var rects []Rect
	pos := 0
	for marked > 0 {
		for !m.cells[pos] {
			pos++
		}
		i0, j0 := pos/cols, pos%cols

		i1 := i0
		for i1+1 < rows && m.at(i1+1, j0) {
			i1++
		}
		j1 := j0
		for j1+1 < cols && m.at(i0, j1+1) {
			j1++
		}

		a := Rect{Row0: i0, Col0: j0, Row1: i1, Col1: j1}
		for r := i0 + 1; r <= i1; r++ {
			if !m.fullRow(r, j0, j1) {
				a.Row1 = r - 1
				break
			}
		}
		b := Rect{Row0: i0, Col0: j0, Row1: i1, Col1: j1}
		for c := j0 + 1; c <= j1; c++ {
			if !m.fullCol(c, i0, i1) {
				b.Col1 = c - 1
				break
			}
		}

		chosen := a
		if b.Area() > a.Area() {
			chosen = b
		}
		for i := chosen.Row0; i <= chosen.Row1; i++ {
			for j := chosen.Col0; j <= chosen.Col1; j++ {
				m.set(i, j, false)
			}
		}
		marked -= chosen.Area()
		rects = append(rects, chosen)
	}
	return rects, nil
}

// Decompose covers the cells of mask with rectangles and maps them to
// geographic boxes through frame.
func Decompose(mask ClusterMask, frame Frame) ([]GeoRectangle, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	rects, err := DecomposeGrid(mask, frame.Rows, frame.Cols)
	if err != nil {
		return nil, err
	}

	out := make([]GeoRectangle, len(rects))
	for i, r := range rects {
		out[i] = frame.Geo(mask.Zone, r)
	}
	return out, nil
}
