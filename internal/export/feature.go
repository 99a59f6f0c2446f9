// Package export writes ranked buckets and zone rectangles to map formats
// and PostGIS.
package export

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/aggregate"
	"github.com/sells-group/ridership-cli/internal/grid"
	"github.com/sells-group/ridership-cli/internal/zoning"
)

// Ring is a closed outline of (lon, lat) vertices.
type Ring [][2]float64

// Attr is one named attribute of a feature. Value is a string, int64,
// int or float64.
type Attr struct {
	Name  string
	Value any
}

// Feature is one exported map object: a set of polygon rings plus ordered
// attributes.
type Feature struct {
	Name        string
	Description string
	Rings       []Ring
	Attrs       []Attr
	// Metric drives the KML colour ramp.
	Metric int64
}

func bucketAttrs(b *aggregate.Bucket) []Attr {
	return []Attr{
		{Name: "rank", Value: b.Rank},
		{Name: "on", Value: b.Boardings},
		{Name: "off", Value: b.Alightings},
		{Name: "load", Value: b.Load},
		{Name: "metric", Value: b.Metric},
		{Name: "num_stops", Value: b.NumStops},
	}
}

func bucketDescription(b *aggregate.Bucket) string {
	return fmt.Sprintf("Passengers On: %d\nPassengers Off: %d\nPassengers Load: %d\nStops: %d",
		b.Boardings, b.Alightings, b.Load, b.NumStops)
}

// GridFeatures turns grid buckets into one box feature per cell, in result
// order.
func GridFeatures(res *aggregate.Result, idx *grid.Index) []Feature {
	buckets := res.Sorted()
	out := make([]Feature, 0, len(buckets))
	for _, b := range buckets {
		if b.Cell == nil {
			continue
		}
		ring := Ring(idx.Bounds(*b.Cell).Ring())
		out = append(out, Feature{
			Name:        "Box " + b.Key,
			Description: bucketDescription(b),
			Rings:       []Ring{ring},
			Attrs:       append([]Attr{{Name: "box_addr", Value: b.Key}}, bucketAttrs(b)...),
			Metric:      b.Metric,
		})
	}
	return out
}

// TractFeatures turns tract buckets into one feature per tract. Buckets
// without a tract polygon are skipped.
func TractFeatures(res *aggregate.Result) []Feature {
	buckets := res.Sorted()
	out := make([]Feature, 0, len(buckets))
	var skipped int
	for _, b := range buckets {
		if b.Tract == nil {
			skipped++
			continue
		}
		rings := make([]Ring, 0, len(b.Tract.Rings))
		for _, r := range b.Tract.Rings {
			ring := make(Ring, len(r))
			for i, p := range r {
				ring[i] = [2]float64{p.Lon, p.Lat}
			}
			rings = append(rings, ring)
		}
		attrs := []Attr{
			{Name: "tract", Value: b.Key},
			{Name: "full_id", Value: b.Tract.FullID},
		}
		out = append(out, Feature{
			Name:        "Tract " + b.Key,
			Description: bucketDescription(b),
			Rings:       rings,
			Attrs:       append(attrs, bucketAttrs(b)...),
			Metric:      b.Metric,
		})
	}
	if skipped > 0 {
		zap.L().Debug("export: tract buckets without polygon", zap.Int("skipped", skipped))
	}
	return out
}

// StatsFunc returns parameter statistics for a zone, or nil.
type StatsFunc func(zone string) map[string]zoning.ParamStats

// ZoneFeatures groups rectangles by zone into one multi-part feature per
// zone, in first-seen zone order. stats may be nil.
func ZoneFeatures(rects []zoning.GeoRectangle, stats StatsFunc) []Feature {
	var order []string
	byZone := make(map[string][]zoning.GeoRectangle)
	for _, r := range rects {
		if _, ok := byZone[r.Zone]; !ok {
			order = append(order, r.Zone)
		}
		byZone[r.Zone] = append(byZone[r.Zone], r)
	}

	out := make([]Feature, 0, len(order))
	for _, zone := range order {
		zr := byZone[zone]
		f := Feature{Name: "Zone " + zone}

		cells := 0
		for _, r := range zr {
			f.Rings = append(f.Rings, Ring(r.Bounds().Ring()))
			cells += r.Rect().Area()
		}
		f.Attrs = []Attr{
			{Name: "zone", Value: zone},
			{Name: "rects", Value: len(zr)},
			{Name: "cells", Value: cells},
		}

		if stats != nil {
			ps := stats(zone)
			for _, name := range slices.Sorted(maps.Keys(ps)) {
				s := ps[name]
				f.Attrs = append(f.Attrs,
					Attr{Name: "min" + name, Value: s.Min},
					Attr{Name: "max" + name, Value: s.Max},
					Attr{Name: "mean" + name, Value: s.Mean},
				)
				f.Description += fmt.Sprintf("%s: min = %.4f, max = %.4f, mean = %.4f\n", name, s.Min, s.Max, s.Mean)
			}
		}
		out = append(out, f)
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// signedArea is positive for counter-clockwise rings.
func signedArea(r Ring) float64 {
	var a float64
	for i := 0; i+1 < len(r); i++ {
		a += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return a / 2
}

func reversed(r Ring) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}
