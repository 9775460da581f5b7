package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "trawlscope/internal/errors"
	"trawlscope/internal/services"
)

// DatasetHandler serves dataset status for the dashboard status panel.
type DatasetHandler struct {
	service      *services.DatasetService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a dataset handler.
func NewDatasetHandler(service *services.DatasetService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "dataset")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes.
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/status", h.Status)
	return r
}

// Status handles GET /api/dataset/status.
func (h *DatasetHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.service.Status(r.Context())

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   status,
	})
}
