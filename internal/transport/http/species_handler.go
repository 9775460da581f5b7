package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "trawlscope/internal/errors"
	mw "trawlscope/internal/middleware"
	"trawlscope/internal/services"
	api "trawlscope/pkg/contracts/api/v1"
)

// SpeciesHandler serves the species selector list and the per-species
// summary series consumed by the dashboard plots.
type SpeciesHandler struct {
	service      *services.SpeciesService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSpeciesHandler creates a species handler.
func NewSpeciesHandler(service *services.SpeciesService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SpeciesHandler {
	return &SpeciesHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "species")),
		errorHandler: errorHandler,
	}
}

// Routes returns the species routes.
func (h *SpeciesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)

	r.Route("/{name}", func(r chi.Router) {
		r.Use(h.SpeciesCtx)
		r.Get("/annual", h.AnnualSeries)
		r.Get("/seasonal", h.SeasonalSeries)
	})

	return r
}

// SpeciesCtx validates the species name URL parameter.
func (h *SpeciesHandler) SpeciesCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.SpeciesRequest{Species: speciesName(r)}
		if err := mw.ValidateStruct(&req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List handles GET /api/species. The optional prefix query parameter narrows
// the list to display names starting with it, case-insensitively.
func (h *SpeciesHandler) List(w http.ResponseWriter, r *http.Request) {
	req := api.SpeciesListRequest{Prefix: r.URL.Query().Get("prefix")}
	if err := mw.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	list, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if req.Prefix != "" {
		narrowed := list[:0:0]
		for _, info := range list {
			if strings.HasPrefix(strings.ToLower(info.Name), strings.ToLower(req.Prefix)) {
				narrowed = append(narrowed, info)
			}
		}
		list = narrowed
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   list,
		"count":  len(list),
	})
}

// AnnualSeries handles GET /api/species/{name}/annual.
func (h *SpeciesHandler) AnnualSeries(w http.ResponseWriter, r *http.Request) {
	name := speciesName(r)

	series, err := h.service.AnnualSeries(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "annual series served",
		slog.String("species", name),
		slog.Int("years", len(series)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	points := api.SummaryPointsFrom(series)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   points,
		"count":  len(points),
	})
}

// SeasonalSeries handles GET /api/species/{name}/seasonal. The optional
// season query parameter narrows the series to Spring or Fall.
func (h *SpeciesHandler) SeasonalSeries(w http.ResponseWriter, r *http.Request) {
	name := speciesName(r)
	season := r.URL.Query().Get("season")

	series, err := h.service.Seasonal(r.Context(), name, season)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.SeasonalSeriesResponse{
		Summaries: api.SummaryPointsFrom(series.Summaries),
		Centroids: api.CentroidPointsFrom(series.Centroids),
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
		"count":  len(resp.Summaries),
	})
}

func speciesName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
