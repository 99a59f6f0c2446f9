// Package aggregate sums stop ridership into grid-cell and tract buckets and
// ranks the buckets.
package aggregate

import (
	"github.com/sells-group/ridership-cli/internal/grid"
	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/tract"
)

// Bucket accumulates the stops that fall into one grid cell or tract.
type Bucket struct {
	Key        string                 `json:"key"`
	Cell       *grid.Cell             `json:"cell,omitempty"`
	Tract      *tract.Tract           `json:"-"`
	Boardings  int64                  `json:"on"`
	Alightings int64                  `json:"off"`
	Load       int64                  `json:"load"`
	NumStops   int                    `json:"num_stops"`
	Stops      []ridership.StopRecord `json:"stops,omitempty"`
	Metric     int64                  `json:"metric"`
	Rank       int                    `json:"rank,omitempty"`
}

func (b *Bucket) add(r ridership.StopRecord) {
	b.Boardings += r.Boardings
	b.Alightings += r.Alightings
	b.Load += r.Load
	b.NumStops++
	b.Stops = append(b.Stops, r)
	b.Metric = max(b.Boardings, b.Alightings)
}

// Result is a set of buckets plus bookkeeping for the stops that did not land
// in one.
type Result struct {
	Buckets map[string]*Bucket `json:"buckets"`
	// Order lists bucket keys in first-seen order, or rank order after ranking.
	Order []string `json:"order"`
	// Misses counts stops with no grid cell or tract.
	Misses int `json:"misses"`
	// Filtered counts stops dropped by the bounds filter or threshold.
	Filtered int `json:"filtered"`
}

func newResult() *Result {
	return &Result{Buckets: make(map[string]*Bucket)}
}

func (res *Result) bucket(key string) (*Bucket, bool) {
	b, ok := res.Buckets[key]
	if !ok {
		b = &Bucket{Key: key}
		res.Buckets[key] = b
		res.Order = append(res.Order, key)
	}
	return b, !ok
}

// Sorted returns buckets in Order.
func (res *Result) Sorted() []*Bucket {
	out := make([]*Bucket, 0, len(res.Order))
	for _, key := range res.Order {
		if b, ok := res.Buckets[key]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Len is the number of buckets.
func (res *Result) Len() int { return len(res.Buckets) }

// Totals are passenger sums across every bucket of a result.
type Totals struct {
	Boardings  int64 `json:"on"`
	Alightings int64 `json:"off"`
	Load       int64 `json:"load"`
	Stops      int   `json:"stops"`
}

// Totals sums every bucket.
func (res *Result) Totals() Totals {
	var t Totals
	for _, b := range res.Buckets {
		t.Boardings += b.Boardings
		t.Alightings += b.Alightings
		t.Load += b.Load
		t.Stops += b.NumStops
	}
	return t
}
