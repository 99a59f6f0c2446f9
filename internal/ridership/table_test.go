package ridership

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ridership-cli/internal/tabular"
)

const ridershipCSV = `STOP_ID,STOP_NAME,ROUTE,LATITUDE,LONGITUDE,PSGR_ON,PSGR_OFF,PSGR_LOAD
50101,Broadway & 14th,51A,37.8044,-122.2712,10,4,30
50102,Telegraph & 40th,6,37.8297,-122.2618,3,8,12
50101,Broadway & 14th,72,37.8044,-122.2712,5,1,9
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRecordsFromTable_SumsByStop(t *testing.T) {
	src := &CSVSource{Path: writeFile(t, "apc.csv", ridershipCSV)}
	records, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, int64(50101), records[0].ID)
	assert.Equal(t, int64(15), records[0].Boardings)
	assert.Equal(t, int64(5), records[0].Alightings)
	assert.Equal(t, int64(39), records[0].Load)
	assert.Equal(t, int64(15), records[0].Metric())
	assert.Equal(t, int64(8), records[1].Metric())
}

func TestRecordsFromTable_MissingColumn(t *testing.T) {
	tbl := &tabular.Table{Header: []string{"stop_id", "latitude", "longitude", "psgr_on"}}
	_, err := RecordsFromTable(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "psgr_off")
}

func TestRecordsFromTable_BadNumber(t *testing.T) {
	tbl := &tabular.Table{
		Header: []string{"stop_id", "latitude", "longitude", "psgr_on", "psgr_off"},
		Rows:   [][]string{{"1", "37.8", "-122.2", "many", "2"}},
	}
	_, err := RecordsFromTable(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRecordsFromTable_InvalidLocation(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
	}{
		{"nan latitude", "NaN", "-122.4"},
		{"infinite longitude", "37.5", "Inf"},
		{"negative infinity", "-Inf", "-122.4"},
		{"latitude out of range", "91", "-122.4"},
		{"longitude out of range", "37.5", "-181"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &tabular.Table{
				Header: []string{"stop_id", "latitude", "longitude", "psgr_on", "psgr_off"},
				Rows:   [][]string{{"1", tt.lat, tt.lon, "10", "5"}},
			}
			_, err := RecordsFromTable(tbl)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")

			_, err = StopsFromTable(tbl)
			assert.Error(t, err)
		})
	}
}

func TestRecordsFromTable_FractionalAndEmptyCounts(t *testing.T) {
	tbl := &tabular.Table{
		Header: []string{"stop_id", "latitude", "longitude", "psgr_on", "psgr_off"},
		Rows:   [][]string{{"1", "37.8", "-122.2", "4.0", ""}},
	}
	records, err := RecordsFromTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(4), records[0].Boardings)
	assert.Zero(t, records[0].Alightings)
	assert.Zero(t, records[0].Load)
}

func TestXLSXSource_Load(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"stop_id", "stop_name", "latitude", "longitude", "psgr_on", "psgr_off", "psgr_load"},
		{"7", "Main", "37.9", "-122.0", "11", "2", "40"},
	} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "apc.xlsx")
	require.NoError(t, f.Save(path))

	records, err := (&XLSXSource{Path: path}).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Main", records[0].Name)
	assert.Equal(t, int64(11), records[0].Metric())
}

func TestLoadStops_MergesFiles(t *testing.T) {
	a := writeFile(t, "a.csv", "stop_id,stop_name,latitude,longitude\n1,A,37.8,-122.2\n2,B,37.9,-122.3\n")
	b := writeFile(t, "b.csv", "stop_id,stop_name,latitude,longitude\n2,B dup,0,0\n3,C,38.0,-122.1\n")

	stops, err := LoadStops(a, b)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	assert.Equal(t, "B", stops[1].Name)
	assert.Equal(t, int64(3), stops[2].ID)
}

func TestLoadStops_MissingFile(t *testing.T) {
	_, err := LoadStops(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]StopRecord{
		{Boardings: 10, Alightings: 30},
		{Boardings: 5, Alightings: 1},
		{Boardings: 50, Alightings: 0},
	})
	assert.Equal(t, 3, s.Stops)
	assert.Equal(t, int64(5), s.MinMetric)
	assert.Equal(t, int64(50), s.MaxMetric)
	assert.Equal(t, int64(65), s.Boardings)

	assert.Equal(t, Summary{}, Summarize(nil))
}
