package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/internal/source"
	"github.com/nordatlas/atlas-cli/internal/spatial"
)

var (
	searchLat    float64
	searchLon    float64
	searchRadius float64
	searchStored bool
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find points within a radius of a location",
	Long:  "Fetches every configured source and filters the visible layers to points within the radius. With --stored the query runs against the local place store instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
			return eris.New("search: --lat and --lon are required")
		}
		radius := searchRadius
		if radius <= 0 {
			radius = cfg.Search.DefaultRadiusKm
		}

		if searchStored {
			st, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			limit := searchLimit
			if limit <= 0 {
				limit = cfg.Search.MaxResults
			}
			places, err := st.WithinRadius(cmd.Context(), searchLat, searchLon, radius, limit)
			if err != nil {
				return err
			}
			fc := model.NewFeatureCollection()
			for _, p := range places {
				if err := fc.Add(p.Feature()); err != nil {
					zap.L().Debug("dropping stored place", zap.String("id", p.ID), zap.Error(err))
				}
			}
			fc.SetMeta(model.MetaTotalCount, fc.Len())
			return writeGeoJSON(fc.GeoJSON())
		}

		reg, err := initRegistry()
		if err != nil {
			return err
		}
		reg.SetSearchPoint(searchLat, searchLon)

		fails := reg.FetchAll(cmd.Context(), source.FetchParams{})
		for id, ferr := range fails {
			zap.L().Warn("source failed", zap.String("source", id), zap.Error(ferr))
		}

		center := model.SearchPoint{Lat: searchLat, Lon: searchLon}
		out := model.NewFeatureCollection()
		for _, ls := range reg.VisibleLayers() {
			hits := spatial.WithinRadius(ls.Features, center, radius)
			for _, f := range hits.Features {
				if err := out.Add(f); err != nil {
					zap.L().Debug("dropping feature", zap.String("source", ls.SourceID), zap.Error(err))
				}
			}
		}
		out.SetMeta(model.MetaTotalCount, out.Len())
		return writeGeoJSON(out.GeoJSON())
	},
}

func init() {
	searchCmd.Flags().Float64Var(&searchLat, "lat", 0, "latitude of the search center")
	searchCmd.Flags().Float64Var(&searchLon, "lon", 0, "longitude of the search center")
	searchCmd.Flags().Float64Var(&searchRadius, "radius", 0, "radius in kilometers (default from config)")
	searchCmd.Flags().BoolVar(&searchStored, "stored", false, "query the local place store instead of live sources")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results for stored queries")
	rootCmd.AddCommand(searchCmd)
}
