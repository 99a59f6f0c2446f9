package aggregate

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ErrUnknownMetric is returned for a ranking key that is not a bucket field.
var ErrUnknownMetric = eris.New("aggregate: unknown metric")

// MetricKey names the bucket field buckets are ranked by.
type MetricKey string

// Ranking keys.
const (
	MetricMax        MetricKey = "metric"
	MetricBoardings  MetricKey = "boardings"
	MetricAlightings MetricKey = "alightings"
	MetricLoad       MetricKey = "load"
	MetricStops      MetricKey = "stops"
)

// MetricKeys lists every valid ranking key.
var MetricKeys = []MetricKey{MetricMax, MetricBoardings, MetricAlightings, MetricLoad, MetricStops}

// ParseMetricKey validates s as a ranking key.
func ParseMetricKey(s string) (MetricKey, error) {
	k := MetricKey(s)
	if _, err := k.value(&Bucket{}); err != nil {
		return "", err
	}
	return k, nil
}

func (k MetricKey) value(b *Bucket) (int64, error) {
	switch k {
	case MetricMax:
		return b.Metric, nil
	case MetricBoardings:
		return b.Boardings, nil
	case MetricAlightings:
		return b.Alightings, nil
	case MetricLoad:
		return b.Load, nil
	case MetricStops:
		return int64(b.NumStops), nil
	}
	return 0, eris.Wrapf(ErrUnknownMetric, "%q", string(k))
}

// Rank returns copies of the buckets of res sorted by key, highest first,
// with ties kept in res.Order. At most topN buckets are returned; topN <= 0
// keeps all. Each returned bucket carries its 1-based Rank.
func Rank(res *Result, key MetricKey, topN int) ([]*Bucket, error) {
	if _, err := key.value(&Bucket{}); err != nil {
		return nil, err
	}

	type ranked struct {
		b *Bucket
		v int64
	}
	list := make([]ranked, 0, len(res.Order))
	for _, b := range res.Sorted() {
		v, _ := key.value(b)
		list = append(list, ranked{b: b, v: v})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].v > list[j].v })

	if topN > 0 && len(list) > topN {
		list = list[:topN]
	}

	out := make([]*Bucket, len(list))
	for i, r := range list {
		cp := *r.b
		cp.Rank = i + 1
		out[i] = &cp
	}
	return out, nil
}

// RankAndTruncate ranks res and returns a new result holding the top buckets
// in rank order. Miss and filter counts carry over. Ranking a ranked result
// with the same key and topN returns the same buckets.
func RankAndTruncate(res *Result, key MetricKey, topN int) (*Result, error) {
	buckets, err := Rank(res, key, topN)
	if err != nil {
		return nil, err
	}

	out := &Result{
		Buckets:  make(map[string]*Bucket, len(buckets)),
		Order:    make([]string, 0, len(buckets)),
		Misses:   res.Misses,
		Filtered: res.Filtered,
	}
	for _, b := range buckets {
		out.Buckets[b.Key] = b
		out.Order = append(out.Order, b.Key)
	}
	return out, nil
}
