package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/aggregate"
	"github.com/sells-group/ridership-cli/internal/config"
	"github.com/sells-group/ridership-cli/internal/export"
	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/store"
	"github.com/sells-group/ridership-cli/internal/tract"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Bucket stop ridership by grid cell or census tract",
	Long: `Loads per-stop passenger totals, buckets them into fixed-size grid cells
(--by grid) or census tracts (--by tract), ranks the buckets, and writes the
top N to each configured export format.

Tract mode resolves stops through the stop→tract cache built by stop2tract.
Pass --fallback-scan to resolve uncached stops by polygon scan.

Cell addresses round up, so box (r, c) spans the r-th cell north and c-th
cell east of the origin ending on that line: its north-east corner is
origin + (r·dlat, c·dlon). Boxes from older exports that put the south-west
corner there sit one cell north-east of these.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyAggregateFlags(cmd, cfg)
		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}

		by, _ := cmd.Flags().GetString("by")
		beginStr, _ := cmd.Flags().GetString("begin")
		endStr, _ := cmd.Flags().GetString("end")
		runID, _ := cmd.Flags().GetString("run-id")

		log := zap.L().With(zap.String("command", "aggregate"), zap.String("by", by))

		begin, end, err := parseDateRange(beginStr, endStr)
		if err != nil {
			return err
		}
		weekdays, err := parseWeekdays(cfg.Source.Weekdays)
		if err != nil {
			return err
		}
		key, err := aggregate.ParseMetricKey(cfg.Rank.Metric)
		if err != nil {
			return err
		}

		src, closeSrc, err := openSource(ctx, sourceOptions{
			Driver:   cfg.Source.Driver,
			Paths:    cfg.Source.Paths,
			Sheet:    cfg.Source.Sheet,
			Table:    cfg.Source.Table,
			Begin:    begin,
			End:      end,
			Weekdays: weekdays,
		}, cfg.Source.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "aggregate: open source")
		}
		defer closeSrc()

		records, err := src.Load(ctx)
		if err != nil {
			return eris.Wrap(err, "aggregate: load ridership")
		}
		sum := ridership.Summarize(records)
		log.Info("loaded ridership",
			zap.Int("stops", sum.Stops),
			zap.Int64("boardings", sum.Boardings),
			zap.Int64("min_metric", sum.MinMetric),
			zap.Int64("max_metric", sum.MaxMetric),
		)

		opts := aggregate.Options{
			Bounds:    boundsFilter(cfg.Filter.Bounds),
			MinRiders: cfg.Filter.MinRiders,
		}

		var job exportJob
		switch by {
		case "grid":
			job, err = aggregateGrid(records, opts, key)
		case "tract":
			job, err = aggregateTracts(ctx, records, opts, key)
		default:
			return eris.Errorf("aggregate: unknown --by %q (want grid or tract)", by)
		}
		if err != nil {
			return err
		}
		if len(job.Features) == 0 {
			log.Warn("no buckets to export")
			return nil
		}

		job.Formats = cfg.Export.Formats
		job.Dir = cfg.Export.Dir
		job.RunID = runID
		if err := runExports(ctx, log, cfg.Export, job); err != nil {
			return err
		}

		fmt.Printf("Exported %d %s buckets to %v\n", len(job.Features), by, job.Formats)
		return nil
	},
}

func aggregateGrid(records []ridership.StopRecord, opts aggregate.Options, key aggregate.MetricKey) (exportJob, error) {
	log := zap.L().With(zap.String("command", "aggregate"))

	idx, err := newGridIndex(cfg.Grid)
	if err != nil {
		return exportJob{}, eris.Wrap(err, "aggregate: grid")
	}
	res, err := aggregate.ByGrid(records, idx, opts)
	if err != nil {
		return exportJob{}, err
	}
	logResult(log, res)

	ranked, err := aggregate.RankAndTruncate(res, key, cfg.Rank.TopN)
	if err != nil {
		return exportJob{}, err
	}
	return exportJob{
		Base:     "grid",
		Features: export.GridFeatures(ranked, idx),
		KML:      kmlOptions(cfg.Export, "Ridership by grid cell"),
		PostGIS: func(ctx context.Context, pg *export.PostGIS) (int64, error) {
			return pg.WriteGridBuckets(ctx, ranked, idx)
		},
	}, nil
}

func aggregateTracts(ctx context.Context, records []ridership.StopRecord, opts aggregate.Options, key aggregate.MetricKey) (exportJob, error) {
	log := zap.L().With(zap.String("command", "aggregate"))

	tracts, err := loadTracts(cfg.Tracts.File, cfg.Tracts)
	if err != nil {
		return exportJob{}, err
	}
	cache, err := store.LoadStopCache(ctx, cfg.Tracts.CacheFile)
	if err != nil {
		return exportJob{}, err
	}
	if cache == nil {
		log.Warn("stop→tract cache not found", zap.String("path", cfg.Tracts.CacheFile))
	}

	idx := tract.NewIndex(tracts, cache)
	log.Info("loaded tracts",
		zap.Int("tracts", idx.Len()),
		zap.Int("cached_stops", idx.CacheSize()),
		zap.Bool("fallback_scan", cfg.Tracts.FallbackScan),
	)

	res, err := aggregate.ByTract(records, idx.Resolver(cfg.Tracts.FallbackScan), idx, opts)
	if err != nil {
		return exportJob{}, err
	}
	logResult(log, res)

	ranked, err := aggregate.RankAndTruncate(res, key, cfg.Rank.TopN)
	if err != nil {
		return exportJob{}, err
	}
	return exportJob{
		Base:     "tracts",
		Features: export.TractFeatures(ranked),
		KML:      kmlOptions(cfg.Export, "Ridership by census tract"),
		PostGIS: func(ctx context.Context, pg *export.PostGIS) (int64, error) {
			return pg.WriteTractBuckets(ctx, ranked)
		},
	}, nil
}

func logResult(log *zap.Logger, res *aggregate.Result) {
	tot := res.Totals()
	fields := []zap.Field{
		zap.Int("buckets", res.Len()),
		zap.Int("stops", tot.Stops),
		zap.Int64("boardings", tot.Boardings),
		zap.Int("filtered", res.Filtered),
		zap.Int("misses", res.Misses),
	}
	if res.Misses > 0 {
		log.Warn("aggregated with unresolved stops", fields...)
		return
	}
	log.Info("aggregated", fields...)
}

// applyAggregateFlags overlays explicitly set flags on the loaded config.
func applyAggregateFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("source") {
		c.Source.Driver, _ = f.GetString("source")
	}
	if f.Changed("paths") {
		paths, _ := f.GetString("paths")
		c.Source.Paths = splitAndTrim(paths)
	}
	if f.Changed("weekdays") {
		days, _ := f.GetString("weekdays")
		c.Source.Weekdays = splitAndTrim(days)
	}
	if f.Changed("metric") {
		c.Rank.Metric, _ = f.GetString("metric")
	}
	if f.Changed("top-n") {
		c.Rank.TopN, _ = f.GetInt("top-n")
	}
	if f.Changed("formats") {
		formats, _ := f.GetString("formats")
		c.Export.Formats = splitAndTrim(formats)
	}
	if f.Changed("out") {
		c.Export.Dir, _ = f.GetString("out")
	}
	if f.Changed("fallback-scan") {
		c.Tracts.FallbackScan, _ = f.GetBool("fallback-scan")
	}
	if f.Changed("min-riders") {
		c.Filter.MinRiders, _ = f.GetInt64("min-riders")
	}
	if f.Changed("strict") {
		c.Grid.Strict, _ = f.GetBool("strict")
	}
	if f.Changed("no-bounds") {
		noBounds, _ := f.GetBool("no-bounds")
		c.Filter.Bounds.Enabled = !noBounds
	}
}

func init() {
	aggregateCmd.Flags().String("by", "grid", "bucket stops by grid or tract")
	aggregateCmd.Flags().String("begin", "", "first service day, YYYY-MM-DD (postgres source)")
	aggregateCmd.Flags().String("end", "", "last service day, YYYY-MM-DD (default: today)")
	aggregateCmd.Flags().String("weekdays", "", "comma-separated days to include, e.g. mon,tue,wed")
	aggregateCmd.Flags().String("source", "", "ridership source: postgres, csv, or xlsx (default: from config)")
	aggregateCmd.Flags().String("paths", "", "comma-separated csv/xlsx files for file sources")
	aggregateCmd.Flags().String("metric", "", "ranking metric: metric, boardings, alightings, load, stops")
	aggregateCmd.Flags().Int("top-n", 0, "keep the N highest buckets; 0 keeps all (default: from config)")
	aggregateCmd.Flags().String("formats", "", "comma-separated export formats: shapefile, geojson, kml, postgis")
	aggregateCmd.Flags().String("out", "", "export directory (default: from config)")
	aggregateCmd.Flags().Bool("fallback-scan", false, "resolve stops missing from the cache by polygon scan")
	aggregateCmd.Flags().Int64("min-riders", 0, "drop stops whose boardings and alightings are both below this")
	aggregateCmd.Flags().Bool("strict", false, "reject stops south or west of the grid origin")
	aggregateCmd.Flags().Bool("no-bounds", false, "disable the configured lat/lon bounds filter")
	aggregateCmd.Flags().String("run-id", "", "run id for postgis rows (default: new uuid)")
	rootCmd.AddCommand(aggregateCmd)
}
