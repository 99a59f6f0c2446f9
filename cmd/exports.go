package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/config"
	"github.com/sells-group/ridership-cli/internal/export"
)

// postgisWriter loads one result set through an open PostGIS loader.
type postgisWriter func(ctx context.Context, pg *export.PostGIS) (int64, error)

// exportJob describes the outputs of one command run.
type exportJob struct {
	Base     string
	Formats  []string
	Dir      string
	Features []export.Feature
	KML      export.KMLOptions
	PostGIS  postgisWriter
	RunID    string
}

// runExports writes every requested format. A failing format does not stop
// the others; all failures are returned joined.
func runExports(ctx context.Context, log *zap.Logger, ec config.ExportConfig, job exportJob) error {
	var errs []error
	for _, format := range job.Formats {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var err error
		switch format {
		case "shapefile":
			err = export.WriteShapefile(filepath.Join(job.Dir, job.Base+".shp"), job.Features)
		case "geojson":
			err = export.WriteGeoJSONFile(filepath.Join(job.Dir, job.Base+".geojson"), job.Features)
		case "kml":
			err = export.WriteKMLFile(filepath.Join(job.Dir, job.Base+".kml"), job.Features, job.KML)
		case "postgis":
			err = writePostGIS(ctx, log, ec, job)
		default:
			err = eris.Errorf("unknown export format %q", format)
		}
		if err != nil {
			log.Error("export failed", zap.String("format", format), zap.Error(err))
			errs = append(errs, eris.Wrapf(err, "export %s", format))
		}
	}
	return errors.Join(errs...)
}

func writePostGIS(ctx context.Context, log *zap.Logger, ec config.ExportConfig, job exportJob) error {
	if job.PostGIS == nil {
		return eris.Errorf("postgis export not supported for %s", job.Base)
	}
	pool, err := exportPool(ctx, ec)
	if err != nil {
		return err
	}
	defer pool.Close()

	pg := export.NewPostGIS(pool, job.RunID)
	n, err := job.PostGIS(ctx, pg)
	if err != nil {
		return err
	}
	log.Info("loaded postgis rows",
		zap.String("run_id", pg.RunID()),
		zap.Int64("rows", n),
	)
	return nil
}

func kmlOptions(ec config.ExportConfig, name string) export.KMLOptions {
	return export.KMLOptions{
		Name:      name,
		Colors:    ec.KMLColors,
		MinMetric: ec.KMLMinMetric,
	}
}
