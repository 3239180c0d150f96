package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/ingest"
	"github.com/nordatlas/atlas-cli/internal/store"
)

var migrateSourceID string

var migrateCmd = &cobra.Command{
	Use:   "migrate [dataset...]",
	Short: "Apply store migrations and optionally import datasets",
	Long:  "Creates the place tables, then imports any given GeoJSON or shapefile datasets. File type is chosen by extension.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))

		for _, path := range args {
			var places []store.Place
			switch strings.ToLower(filepath.Ext(path)) {
			case ".geojson", ".json":
				places, err = ingest.PlacesFromGeoJSONFile(cmd.Context(), path, migrateSourceID)
			case ".shp":
				places, err = ingest.PlacesFromShapefile(path, migrateSourceID)
			default:
				return eris.Errorf("migrate: unsupported dataset type %s", path)
			}
			if err != nil {
				return err
			}

			n, err := st.InsertPlaces(cmd.Context(), places)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d places\n", path, n)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSourceID, "source-id", "import", "source id stamped on imported places")
	rootCmd.AddCommand(migrateCmd)
}
