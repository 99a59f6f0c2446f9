package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/ridership-cli/internal/aggregate"
	"github.com/sells-group/ridership-cli/internal/grid"
	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/tract"
	"github.com/sells-group/ridership-cli/internal/zoning"
)

func testGrid(t *testing.T) *grid.Index {
	t.Helper()
	idx, err := grid.New(grid.DefaultCellMeters, grid.DefaultCellMeters, grid.DefaultOriginLat, grid.DefaultOriginLon)
	require.NoError(t, err)
	return idx
}

func stop(id int64, lat, lon float64, on, off int64) ridership.StopRecord {
	return ridership.StopRecord{
		Stop:       ridership.Stop{ID: id, Lat: lat, Lon: lon},
		Boardings:  on,
		Alightings: off,
	}
}

// rankedGrid returns two ranked grid buckets: metric 5000 then 2500.
func rankedGrid(t *testing.T) (*aggregate.Result, *grid.Index) {
	t.Helper()
	idx := testGrid(t)
	res, err := aggregate.ByGrid([]ridership.StopRecord{
		stop(1, 37.7745, -122.4190, 2500, 100),
		stop(2, 37.8044, -122.2712, 5000, 4000),
		stop(3, 37.3382, -121.8863, 10, 20),
	}, idx, aggregate.Options{})
	require.NoError(t, err)

	top, err := aggregate.RankAndTruncate(res, aggregate.MetricMax, 2)
	require.NoError(t, err)
	return top, idx
}

func rankedTracts(t *testing.T) *aggregate.Result {
	t.Helper()
	a, err := tract.New("101", "06075010100", [][]tract.Point{{{Lon: -122.5, Lat: 37.7}, {Lon: -122.4, Lat: 37.7}, {Lon: -122.4, Lat: 37.8}, {Lon: -122.5, Lat: 37.8}}})
	require.NoError(t, err)
	idx := tract.NewIndex([]*tract.Tract{a}, nil)

	res, err := aggregate.ByTract([]ridership.StopRecord{
		stop(1, 37.75, -122.45, 3000, 10),
	}, idx.Resolver(true), idx, aggregate.Options{})
	require.NoError(t, err)

	top, err := aggregate.RankAndTruncate(res, aggregate.MetricMax, 0)
	require.NoError(t, err)
	return top
}

func zoneRects(t *testing.T) []zoning.GeoRectangle {
	t.Helper()
	frame, err := zoning.FrameFromBBox([4]float64{-122.5, 37.5, -122.0, 38.0}, 10, 5)
	require.NoError(t, err)

	var rects []zoning.GeoRectangle
	for _, m := range []zoning.ClusterMask{
		{Zone: "a", Cells: []grid.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 0}}},
		{Zone: "b", Cells: []grid.Cell{{Row: 5, Col: 4}}},
	} {
		r, err := zoning.Decompose(m, frame)
		require.NoError(t, err)
		rects = append(rects, r...)
	}
	return rects
}
