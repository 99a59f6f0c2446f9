package zoning

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// DecomposeAll decomposes each mask concurrently, at most workers at a time,
// and returns the rectangles grouped in mask order.
func DecomposeAll(ctx context.Context, masks []ClusterMask, frame Frame, workers int) ([]GeoRectangle, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([][]GeoRectangle, len(masks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, mask := range masks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rects, err := Decompose(mask, frame)
			if err != nil {
				return err
			}
			results[i] = rects
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "zoning: decompose zones")
	}

	var out []GeoRectangle
	for _, rects := range results {
		out = append(out, rects...)
	}
	return out, nil
}
