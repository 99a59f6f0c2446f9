package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ridership-cli/internal/tract"
)

const testTractsTSV = "census tract\tfull id\tshape\n" +
	"101\t06075010100\t-122.5,37.7 -122.4,37.7 -122.4,37.8 -122.5,37.8\n" +
	"102\t06075010200\t-122.4,37.7 -122.3,37.7 -122.3,37.8 -122.4,37.8\n"

// Stops 1 and 2 share grid cell (86, 11) and tract 101; stop 3 lies in
// neither tract.
const testRidershipCSV = "stop_id,stop_name,latitude,longitude,psgr_on,psgr_off,psgr_load\n" +
	"1,Market & 5th,37.7749,-122.4194,3000,1200,40\n" +
	"2,Market & 6th,37.7745,-122.4190,500,900,12\n" +
	"3,Broadway,37.8044,-122.2712,2500,2600,30\n"

const testZoningYAML = `
bounding_box: [-122.5, 37.5, -122.0, 38.0]
dims: [10, 5]
clusters:
  - zone: downtown
    cells: [[0, 0], [0, 1], [1, 0]]
  - zone: uptown
    cells: [[5, 4]]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command from an empty working directory so no
// stray config.yaml is picked up.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	t.Setenv("RIDERSHIP_LOG_LEVEL", "error")

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func readCollection(t *testing.T, path string) *geojson.FeatureCollection {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	return fc
}

func TestAggregateCommand_GridFromCSV(t *testing.T) {
	data := t.TempDir()
	csvPath := writeFile(t, data, "apc.csv", testRidershipCSV)
	out := filepath.Join(data, "out")

	err := runCLI(t, "aggregate", "--by", "grid", "--source", "csv", "--paths", csvPath,
		"--formats", "geojson,kml", "--out", out, "--top-n", "5")
	require.NoError(t, err)

	fc := readCollection(t, filepath.Join(out, "grid.geojson"))
	require.Len(t, fc.Features, 2)
	// Cell (86, 11) sums stops 1 and 2: on 3500, off 2100.
	assert.Equal(t, "(86, 11)", fc.Features[0].Properties["box_addr"])
	assert.InDelta(t, 3500.0, fc.Features[0].Properties["on"], 1e-9)

	_, err = os.Stat(filepath.Join(out, "grid.kml"))
	assert.NoError(t, err)
}

func TestStop2TractThenAggregateByTract(t *testing.T) {
	data := t.TempDir()
	csvPath := writeFile(t, data, "apc.csv", testRidershipCSV)
	tsvPath := writeFile(t, data, "tracts.tsv", testTractsTSV)
	cachePath := filepath.Join(data, "cache", "stop2tract.csv")
	out := filepath.Join(data, "out")

	err := runCLI(t, "stop2tract", "--stops", csvPath, "--tracts", tsvPath, "--cache", cachePath)
	require.NoError(t, err)

	cache, err := tract.LoadStopCache(cachePath)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "101", 2: "101"}, cache)

	t.Setenv("RIDERSHIP_TRACTS_FILE", tsvPath)
	t.Setenv("RIDERSHIP_TRACTS_CACHE_FILE", cachePath)
	err = runCLI(t, "aggregate", "--by", "tract", "--source", "csv", "--paths", csvPath,
		"--formats", "geojson", "--out", out)
	require.NoError(t, err)

	fc := readCollection(t, filepath.Join(out, "tracts.geojson"))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "101", fc.Features[0].Properties["tract"])
	assert.Equal(t, "06075010100", fc.Features[0].Properties["full_id"])
}

func TestZonesCommand(t *testing.T) {
	data := t.TempDir()
	path := writeFile(t, data, "zoning.yaml", testZoningYAML)
	out := filepath.Join(data, "out")

	err := runCLI(t, "zones", path, "--formats", "geojson,shapefile", "--out", out, "--workers", "2")
	require.NoError(t, err)

	fc := readCollection(t, filepath.Join(out, "zones.geojson"))
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "downtown", fc.Features[0].Properties["zone"])
	assert.InDelta(t, 2.0, fc.Features[0].Properties["rects"], 1e-9)
	assert.Equal(t, "uptown", fc.Features[1].Properties["zone"])

	_, err = os.Stat(filepath.Join(out, "zones.shp"))
	assert.NoError(t, err)
}

func TestZonesCommand_MissingFile(t *testing.T) {
	err := runCLI(t, "zones", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTractsExtractCommand(t *testing.T) {
	data := t.TempDir()
	shpPath := filepath.Join(data, "tl_2020_06_tract.shp")
	writeTractShapefile(t, shpPath)
	out := filepath.Join(data, "tracts.tsv")

	err := runCLI(t, "tracts", "extract", shpPath, "--out", out)
	require.NoError(t, err)

	tracts, err := tract.LoadTSV(out)
	require.NoError(t, err)
	require.Len(t, tracts, 1)
	assert.Equal(t, "101", tracts[0].Key)
	assert.Equal(t, "06075010100", tracts[0].FullID)
}

func writeTractShapefile(t *testing.T, path string) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("GEOID", 11),
		shp.StringField("NAMELSAD", 40),
	}))

	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: -122.5, Y: 37.7}, {X: -122.5, Y: 37.8}, {X: -122.4, Y: 37.8}, {X: -122.4, Y: 37.7}, {X: -122.5, Y: 37.7}},
	}))
	n := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(n), 0, "06075010100"))
	require.NoError(t, w.WriteAttribute(int(n), 1, "Census Tract 101"))
	w.Close()

	// go-shp writes the attribute table as "<base>dbf".
	base := strings.TrimSuffix(path, filepath.Ext(path))
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}
