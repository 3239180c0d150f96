package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/config"
	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/internal/registry"
	"github.com/nordatlas/atlas-cli/internal/source"
	"github.com/nordatlas/atlas-cli/internal/spatial"
	"github.com/nordatlas/atlas-cli/internal/store"
)

type layerResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Visible  bool   `json:"visible"`
	Color    string `json:"color"`
	Features int    `json:"features"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var (
		nf   *model.NotFoundError
		ferr *model.FetchError
	)
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &ferr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeCollection(w http.ResponseWriter, fc *model.FeatureCollection) {
	data, err := fc.GeoJSON()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseCenter reads lat/lon query params; both are required.
func parseCenter(r *http.Request) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return 0, 0, errors.New("lat is required")
	}
	lon, err = strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		return 0, 0, errors.New("lon is required")
	}
	return lat, lon, nil
}

func parseRadius(r *http.Request, fallback float64) float64 {
	if v, err := strconv.ParseFloat(r.URL.Query().Get("radius_km"), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

// buildRouter wires the HTTP API. The store may be nil when no place store
// is configured; the stored-places route then reports unavailable.
func buildRouter(reg *registry.Registry, st store.Store, search config.SearchConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/sources", func(w http.ResponseWriter, _ *http.Request) {
			layers := reg.Layers()
			out := make([]layerResponse, 0, len(layers))
			for _, ls := range layers {
				out = append(out, layerResponse{
					ID:       ls.SourceID,
					Name:     ls.Name,
					Status:   string(ls.Status()),
					Visible:  ls.Visible,
					Color:    ls.Color,
					Features: ls.Features.Len(),
				})
			}
			writeJSON(w, http.StatusOK, map[string]any{"sources": out, "total": len(out)})
		})

		r.Post("/sources/{id}/fetch", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			fc, err := reg.Fetch(req.Context(), id, source.FetchParams{})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"source": id, "features": fc.Len()})
		})

		r.Post("/sources/{id}/toggle", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			visible, err := reg.ToggleVisibility(id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"source": id, "visible": visible})
		})

		r.Get("/search", func(w http.ResponseWriter, req *http.Request) {
			lat, lon, err := parseCenter(req)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			radius := parseRadius(req, search.DefaultRadiusKm)
			reg.SetSearchPoint(lat, lon)

			center := model.SearchPoint{Lat: lat, Lon: lon}
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
			writeCollection(w, out)
		})

		r.Get("/places/near", func(w http.ResponseWriter, req *http.Request) {
			if st == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "place store not configured"})
				return
			}
			lat, lon, err := parseCenter(req)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			radius := parseRadius(req, search.DefaultRadiusKm)

			places, err := st.WithinRadius(req.Context(), lat, lon, radius, search.MaxResults)
			if err != nil {
				writeError(w, err)
				return
			}
			fc := model.NewFeatureCollection()
			for _, p := range places {
				if err := fc.Add(p.Feature()); err != nil {
					zap.L().Debug("dropping stored place", zap.String("id", p.ID), zap.Error(err))
				}
			}
			fc.SetMeta(model.MetaTotalCount, fc.Len())
			writeCollection(w, fc)
		})
	})

	return r
}
