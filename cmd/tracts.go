package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ridership-cli/internal/tract"
)

var tractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Census tract table commands",
}

var tractsExtractCmd = &cobra.Command{
	Use:   "extract <tracts.shp>",
	Short: "Convert a TIGER tract shapefile into the tract TSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("tracts"); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Tracts.File
		}
		idField, _ := cmd.Flags().GetString("id-field")
		if idField == "" {
			idField = cfg.Tracts.IDField
		}
		nameField, _ := cmd.Flags().GetString("name-field")
		if nameField == "" {
			nameField = cfg.Tracts.NameField
		}

		log := zap.L().With(zap.String("command", "tracts extract"), zap.String("shapefile", args[0]))

		tracts, err := tract.LoadShapefile(args[0], idField, nameField)
		if err != nil {
			return err
		}

		if err := writeTractTSV(out, tracts); err != nil {
			return err
		}
		log.Info("wrote tract table", zap.String("path", out), zap.Int("tracts", len(tracts)))

		fmt.Printf("Extracted %d tracts to %s\n", len(tracts), out)
		return nil
	},
}

func writeTractTSV(path string, tracts []*tract.Tract) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "tracts: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "tracts: create %s", path)
	}
	if err := tract.WriteTSV(f, tracts); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "tracts: close %s", path)
}

func init() {
	tractsExtractCmd.Flags().String("out", "", "output TSV path (default: tracts.file from config)")
	tractsExtractCmd.Flags().String("id-field", "", "attribute holding the full tract id (default: GEOID)")
	tractsExtractCmd.Flags().String("name-field", "", "attribute holding the tract name (default: NAMELSAD)")
	tractsCmd.AddCommand(tractsExtractCmd)
	rootCmd.AddCommand(tractsCmd)
}
