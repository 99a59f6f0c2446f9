// Package ridership loads per-stop passenger totals from external stores.
package ridership

import "context"

// Stop is a transit stop location.
type Stop struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// StopRecord is a stop with passenger totals summed over a query window.
type StopRecord struct {
	Stop
	Boardings  int64 `json:"on"`
	Alightings int64 `json:"off"`
	Load       int64 `json:"load"`
}

// Metric is the ranking value of a stop: the larger of boardings and alightings.
func (r StopRecord) Metric() int64 {
	return max(r.Boardings, r.Alightings)
}

// Source produces stop records for one batch.
type Source interface {
	Load(ctx context.Context) ([]StopRecord, error)
}

// Summary describes a loaded batch.
type Summary struct {
	Stops     int   `json:"stops"`
	MinMetric int64 `json:"min_metric"`
	MaxMetric int64 `json:"max_metric"`
	Boardings int64 `json:"boardings"`
}

// Summarize computes the metric range and totals of records.
func Summarize(records []StopRecord) Summary {
	var s Summary
	s.Stops = len(records)
	for i, r := range records {
		m := r.Metric()
		if i == 0 || m < s.MinMetric {
			s.MinMetric = m
		}
		if m > s.MaxMetric {
			s.MaxMetric = m
		}
		s.Boardings += r.Boardings
	}
	return s
}
