package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/export"
	"github.com/sells-group/ridership-cli/internal/zoning"
)

var zonesCmd = &cobra.Command{
	Use:   "zones <zoning.yaml>",
	Short: "Decompose zone clusters into rectangles",
	Long: `Reads a zoning file (bounding box, grid dims, and per-zone cell lists),
decomposes every zone into axis-aligned rectangles, and writes one
multi-part polygon per zone to each configured export format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("workers") {
			cfg.Zoning.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("formats") {
			formats, _ := cmd.Flags().GetString("formats")
			cfg.Export.Formats = splitAndTrim(formats)
		}
		if cmd.Flags().Changed("out") {
			cfg.Export.Dir, _ = cmd.Flags().GetString("out")
		}
		if err := cfg.Validate("zones"); err != nil {
			return err
		}
		runID, _ := cmd.Flags().GetString("run-id")

		log := zap.L().With(zap.String("command", "zones"), zap.String("file", args[0]))

		zf, err := zoning.LoadFile(args[0])
		if err != nil {
			return err
		}
		frame, err := zf.Frame()
		if err != nil {
			return err
		}
		masks := zf.Masks()

		rects, err := zoning.DecomposeAll(ctx, masks, frame, cfg.Zoning.Workers)
		if err != nil {
			return err
		}
		log.Info("decomposed zones",
			zap.Int("zones", len(masks)),
			zap.Int("rectangles", len(rects)),
			zap.Int("workers", cfg.Zoning.Workers),
		)
		if len(rects) == 0 {
			log.Warn("no zone cells to export")
			return nil
		}

		kml := kmlOptions(cfg.Export, "Zones")
		kml.ByIndex = true

		job := exportJob{
			Base:     "zones",
			Formats:  cfg.Export.Formats,
			Dir:      cfg.Export.Dir,
			Features: export.ZoneFeatures(rects, zf.Stats),
			KML:      kml,
			RunID:    runID,
			PostGIS: func(ctx context.Context, pg *export.PostGIS) (int64, error) {
				return pg.WriteZoneRectangles(ctx, rects)
			},
		}
		if err := runExports(ctx, log, cfg.Export, job); err != nil {
			return eris.Wrap(err, "zones")
		}

		fmt.Printf("Exported %d zones (%d rectangles) to %v\n", len(job.Features), len(rects), job.Formats)
		return nil
	},
}

func init() {
	zonesCmd.Flags().Int("workers", 0, "zones decomposed in parallel (default: from config)")
	zonesCmd.Flags().String("formats", "", "comma-separated export formats: shapefile, geojson, kml, postgis")
	zonesCmd.Flags().String("out", "", "export directory (default: from config)")
	zonesCmd.Flags().String("run-id", "", "run id for postgis rows (default: new uuid)")
	rootCmd.AddCommand(zonesCmd)
}
