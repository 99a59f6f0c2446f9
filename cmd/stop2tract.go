package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/ridership"
	"github.com/sells-group/ridership-cli/internal/store"
	"github.com/sells-group/ridership-cli/internal/tract"
)

var stop2tractCmd = &cobra.Command{
	Use:   "stop2tract",
	Short: "Build the stop→tract cache",
	Long: `Resolves every stop location to its census tract by polygon scan and
writes the mapping to the cache file (CSV, or SQLite when the path ends in
.db, .sqlite, or .sqlite3). aggregate --by tract reads this cache.

Stops come from --stops files when given, otherwise from the configured
ridership source.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("tracts") {
			cfg.Tracts.File, _ = cmd.Flags().GetString("tracts")
		}
		if cmd.Flags().Changed("cache") {
			cfg.Tracts.CacheFile, _ = cmd.Flags().GetString("cache")
		}
		if err := cfg.Validate("stop2tract"); err != nil {
			return err
		}
		stopsFlag, _ := cmd.Flags().GetString("stops")

		log := zap.L().With(zap.String("command", "stop2tract"))

		tracts, err := loadTracts(cfg.Tracts.File, cfg.Tracts)
		if err != nil {
			return err
		}
		idx := tract.NewIndex(tracts, nil)

		var (
			stops  []ridership.Stop
			source string
		)
		if paths := splitAndTrim(stopsFlag); len(paths) > 0 {
			stops, err = ridership.LoadStops(paths...)
			if err != nil {
				return err
			}
			source = stopsFlag
		} else {
			src, closeSrc, err := openSource(ctx, sourceOptions{
				Driver: cfg.Source.Driver,
				Paths:  cfg.Source.Paths,
				Sheet:  cfg.Source.Sheet,
				Table:  cfg.Source.Table,
			}, cfg.Source.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "stop2tract: open source")
			}
			defer closeSrc()

			records, err := src.Load(ctx)
			if err != nil {
				return eris.Wrap(err, "stop2tract: load stops")
			}
			stops = make([]ridership.Stop, len(records))
			for i, r := range records {
				stops[i] = r.Stop
			}
			source = cfg.Source.Driver
		}

		log.Info("resolving stops", zap.Int("stops", len(stops)), zap.Int("tracts", idx.Len()))
		cache, misses := tract.BuildStopCache(idx, stops)
		for _, m := range misses {
			log.Debug("stop outside every tract",
				zap.Int64("stop_id", m.ID),
				zap.Float64("lat", m.Lat),
				zap.Float64("lon", m.Lon),
			)
		}
		if len(misses) > 0 {
			log.Warn("stops without tract", zap.Int("misses", len(misses)))
		}

		run := store.CacheRun{
			ID:        uuid.New().String(),
			Source:    source,
			Stops:     len(stops),
			Misses:    len(misses),
			CreatedAt: time.Now().UTC(),
		}
		if err := store.SaveStopCache(ctx, cfg.Tracts.CacheFile, cache, run); err != nil {
			return err
		}

		fmt.Printf("Cached %d of %d stops to %s\n", len(cache), len(stops), cfg.Tracts.CacheFile)
		return nil
	},
}

func init() {
	stop2tractCmd.Flags().String("stops", "", "comma-separated csv/xlsx stop files (default: configured source)")
	stop2tractCmd.Flags().String("tracts", "", "tract TSV or TIGER shapefile (default: from config)")
	stop2tractCmd.Flags().String("cache", "", "output cache path (default: from config)")
	rootCmd.AddCommand(stop2tractCmd)
}
