package grid

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault(t *testing.T, opts ...Option) *Index {
	t.Helper()
	idx, err := New(DefaultCellMeters, DefaultCellMeters, DefaultOriginLat, DefaultOriginLon, opts...)
	require.NoError(t, err)
	return idx
}

func TestNew_InvalidCellSize(t *testing.T) {
	_, err := New(0, 1000, 37, -122)
	require.Error(t, err)

	_, err = New(1000, -5, 37, -122)
	require.Error(t, err)
}

func TestNew_InvalidOrigin(t *testing.T) {
	_, err := New(1000, 1000, 95, -122)
	require.Error(t, err)
}

func TestDegreeDeltas(t *testing.T) {
	idx := newDefault(t)

	// At 37°N a degree of latitude is ~111 km and of longitude ~89 km.
	assert.InDelta(t, 110977.6, MetersPerLatDeg(37), 0.5)
	assert.InDelta(t, 89011.8, MetersPerLonDeg(37), 0.5)
	assert.InDelta(t, 1000/MetersPerLatDeg(37), idx.DLat(), 1e-12)
	assert.InDelta(t, 1000/MetersPerLonDeg(37), idx.DLon(), 1e-12)
	assert.Greater(t, idx.DLon(), idx.DLat())
}

func TestAddress_Origin(t *testing.T) {
	idx := newDefault(t)
	c, err := idx.Address(DefaultOriginLat, DefaultOriginLon)
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 0, Col: 0}, c)
}

func TestAddress_UsesCeil(t *testing.T) {
	idx := newDefault(t)
	lat := DefaultOriginLat + 2.5*idx.DLat()
	lon := DefaultOriginLon + 0.1*idx.DLon()

	c, err := idx.Address(lat, lon)
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 3, Col: 1}, c)
}

func TestAddress_ClampsSouthWest(t *testing.T) {
	idx := newDefault(t)

	c, err := idx.Address(36.5, -123.0)
	require.NoError(t, err)
	assert.Equal(t, Cell{}, c)

	c, err = idx.Address(36.5, DefaultOriginLon+3.5*idx.DLon())
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 0, Col: 4}, c)
}

func TestAddress_StrictRejectsSouthWest(t *testing.T) {
	idx := newDefault(t, WithStrictOrigin())
	assert.True(t, idx.Strict())

	_, err := idx.Address(36.5, -122.0)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOutOfRange))

	c, err := idx.Address(37.5, -122.0)
	require.NoError(t, err)
	assert.Positive(t, c.Row)
}

func TestAddress_RejectsInvalidCoordinates(t *testing.T) {
	points := [][2]float64{
		{math.NaN(), -122.4},
		{37.5, math.NaN()},
		{math.Inf(1), -122.4},
		{37.5, math.Inf(1)},
		{math.Inf(-1), math.Inf(-1)},
		{90.5, -122.4},
		{37.5, 180.5},
	}
	for _, strict := range []bool{false, true} {
		var opts []Option
		if strict {
			opts = append(opts, WithStrictOrigin())
		}
		idx := newDefault(t, opts...)
		for _, p := range points {
			c, err := idx.Address(p[0], p[1])
			require.Error(t, err, "point %v strict=%v", p, strict)
			assert.True(t, eris.Is(err, ErrOutOfRange))
			assert.Equal(t, Cell{}, c)
		}
	}
}

func TestAddress_Monotonic(t *testing.T) {
	idx := newDefault(t)

	prev := Cell{}
	for i := 0; i < 500; i++ {
		lat := DefaultOriginLat + float64(i)*0.00137
		lon := DefaultOriginLon + float64(i)*0.00211
		c, err := idx.Address(lat, lon)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.Row, prev.Row, "row must not decrease at step %d", i)
		assert.GreaterOrEqual(t, c.Col, prev.Col, "col must not decrease at step %d", i)
		prev = c
	}
}

// Cells share edges, so a point exactly on an edge may land on either side
// after rounding; allow a hair of tolerance.
func TestBoundsOfAddressContainsPoint(t *testing.T) {
	idx := newDefault(t)

	points := [][2]float64{
		{37.0, -122.54},
		{37.7749, -122.4194},
		{37.8044, -122.2712},
		{38.0, -121.9},
		{37.00001, -122.53999},
	}
	for _, p := range points {
		c, err := idx.Address(p[0], p[1])
		require.NoError(t, err)
		b := idx.Bounds(c)
		assert.True(t, containsWithTolerance(b, p[0], p[1]),
			"cell %s bounds %+v should contain %v", c, b, p)
	}
}

func containsWithTolerance(b Bounds, lat, lon float64) bool {
	const eps = 1e-9
	return lat >= b.MinLat-eps && lat <= b.MaxLat+eps && lon >= b.MinLon-eps && lon <= b.MaxLon+eps
}

func TestBounds(t *testing.T) {
	idx := newDefault(t)
	b := idx.Bounds(Cell{Row: 2, Col: 3})

	assert.InDelta(t, DefaultOriginLat+2*idx.DLat(), b.MaxLat, 1e-12)
	assert.InDelta(t, DefaultOriginLon+3*idx.DLon(), b.MaxLon, 1e-12)
	assert.InDelta(t, idx.DLat(), b.MaxLat-b.MinLat, 1e-12)
	assert.InDelta(t, idx.DLon(), b.MaxLon-b.MinLon, 1e-12)

	ring := b.Ring()
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
}

func TestBoundsTileWithoutGaps(t *testing.T) {
	idx := newDefault(t)
	a := idx.Bounds(Cell{Row: 4, Col: 7})
	north := idx.Bounds(Cell{Row: 5, Col: 7})
	east := idx.Bounds(Cell{Row: 4, Col: 8})

	assert.InDelta(t, a.MaxLat, north.MinLat, 1e-12)
	assert.InDelta(t, a.MaxLon, east.MinLon, 1e-12)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "(4, 12)", Cell{Row: 4, Col: 12}.String())
}

func TestCellLess(t *testing.T) {
	assert.True(t, Cell{0, 5}.Less(Cell{1, 0}))
	assert.True(t, Cell{1, 0}.Less(Cell{1, 1}))
	assert.False(t, Cell{1, 1}.Less(Cell{1, 1}))
}
