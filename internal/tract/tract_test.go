package tract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minLon, minLat, maxLon, maxLat float64) []Point {
	return []Point{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat},
	}
}

func mustTract(t *testing.T, key string, rings ...[]Point) *Tract {
	t.Helper()
	tr, err := New(key, "06075"+key, rings)
	require.NoError(t, err)
	return tr
}

func TestNew_ClosesRing(t *testing.T) {
	tr := mustTract(t, "101", square(0, 0, 1, 1))
	require.Len(t, tr.Rings, 1)
	assert.Len(t, tr.Rings[0], 5)
	assert.Equal(t, tr.Rings[0][0], tr.Rings[0][4])
}

func TestNew_Errors(t *testing.T) {
	_, err := New("", "x", [][]Point{square(0, 0, 1, 1)})
	require.Error(t, err)

	_, err = New("1", "x", nil)
	require.Error(t, err)

	_, err = New("1", "x", [][]Point{{{0, 0}, {1, 1}}})
	require.Error(t, err)
}

func TestContains(t *testing.T) {
	tr := mustTract(t, "101", square(-122.5, 37.7, -122.4, 37.8))

	assert.True(t, tr.Contains(37.75, -122.45))
	assert.False(t, tr.Contains(37.9, -122.45), "north of box")
	assert.False(t, tr.Contains(37.75, -122.3), "east of box")
	assert.False(t, tr.Contains(37.7, -122.45), "on the south edge")
	assert.False(t, tr.Contains(37.7, -122.5), "on a vertex")
}

func TestContains_Concave(t *testing.T) {
	// U-shape opening north.
	u := []Point{{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}}
	tr := mustTract(t, "u", u)

	assert.True(t, tr.Contains(2, 0.5), "left arm")
	assert.True(t, tr.Contains(2, 2.5), "right arm")
	assert.False(t, tr.Contains(2, 1.5), "notch")
}

func TestContains_HoleAndIsland(t *testing.T) {
	tr := mustTract(t, "h",
		square(0, 0, 10, 10),
		square(4, 4, 6, 6),
		square(20, 20, 21, 21),
	)

	assert.True(t, tr.Contains(1, 1))
	assert.False(t, tr.Contains(5, 5), "inside hole")
	assert.True(t, tr.Contains(20.5, 20.5), "island")
	assert.False(t, tr.Contains(15, 15))
}

func TestMultiPolygon(t *testing.T) {
	tr := mustTract(t, "h", square(0, 0, 1, 1), square(2, 2, 3, 3))
	mp := tr.MultiPolygon()
	assert.Equal(t, 2, mp.NumPolygons())

	b := tr.Bounds()
	assert.InDelta(t, 0.0, b.Min(0), 1e-12)
	assert.InDelta(t, 3.0, b.Max(1), 1e-12)
}
