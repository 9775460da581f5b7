package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "trawlscope/internal/errors"
	mw "trawlscope/internal/middleware"
	api "trawlscope/pkg/contracts/api/v1"
	"trawlscope/pkg/contracts/domain"
)

// RunManager starts pipeline runs and reports their state. *operations.Manager
// satisfies it; tests substitute fakes.
type RunManager interface {
	Start(ctx context.Context, trigger domain.RunTrigger, opts domain.RunOptions) (string, error)
	Status(id string) (domain.PipelineRun, error)
	Current() (domain.PipelineRun, bool)
	Runs() []domain.PipelineRun
}

// OperationsHandler exposes pipeline run control over HTTP: triggering a
// refresh, polling individual runs and listing recent history.
type OperationsHandler struct {
	runs           RunManager
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	queryValidator *mw.QueryParamValidator
}

// NewOperationsHandler creates an operations handler backed by the given run manager.
func NewOperationsHandler(runs RunManager, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		runs:           runs,
		logger:         logger.With(slog.String("handler", "operations")),
		errorHandler:   errorHandler,
		queryValidator: mw.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the operations API routes.
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/refresh", h.Refresh)
	r.Get("/", h.List)
	r.Get("/current", h.Current)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.RunCtx)
		r.Get("/", h.RunStatus)
	})

	return r
}

// RunCtx validates the run id path parameter before the status handler runs.
func (h *OperationsHandler) RunCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "run id is required"))
			return
		}
		if len(id) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "run id too long"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Refresh triggers a new pipeline run. The request body is optional; when
// present it may override the snapshot source or ask for a dry run. The run
// executes asynchronously; the response carries the run id to poll. A second
// refresh while a run is active is rejected with 409.
func (h *OperationsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	data := &api.RefreshRequest{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, data); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewAppValidationError(err.Error()))
			return
		}
	}

	opts := domain.RunOptions{
		Source: data.Source,
		Format: data.Format,
		DryRun: data.DryRun,
	}

	id, err := h.runs.Start(r.Context(), domain.RunTriggerAPI, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "pipeline refresh accepted",
		slog.String("run_id", id),
		slog.Bool("dry_run", opts.DryRun))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"run_id":   id,
			"status":   string(domain.RunStatusPending),
			"dry_run":  opts.DryRun,
			"poll_url": "/api/operations/" + id,
		},
	})
}

// RunStatus returns the state of a single run, live or from history.
func (h *OperationsHandler) RunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runs.Status(id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   run,
	})
}

// List returns recent runs, newest first. The limit query parameter bounds
// the page size.
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryValidator.ValidateInt(w, r, "limit", 1, 100, 20)
	if !ok {
		return
	}

	runs := h.runs.Runs()
	if len(runs) > limit {
		runs = runs[:limit]
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   runs,
		"count":  len(runs),
	})
}

// Current returns the active run, or an empty payload when the pipeline is idle.
func (h *OperationsHandler) Current(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Current()
	if !ok {
		render.JSON(w, r, map[string]interface{}{
			"status": "success",
			"data":   nil,
			"active": false,
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   run,
		"active": true,
	})
}
