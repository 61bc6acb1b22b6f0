package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "corrpulse/internal/errors"
	"corrpulse/internal/middleware"
	"corrpulse/pkg/contracts/domain"
)

// CorrelationComputer is the correlation service slice the handler
// needs.
type CorrelationComputer interface {
	Compute(ctx context.Context, req domain.CorrelationRequest) (*domain.CorrelationResponse, error)
	ComputeLagged(ctx context.Context, req domain.LaggedCorrelationRequest) (*domain.LaggedCorrelationResponse, error)
	ComputeRolling(ctx context.Context, req domain.RollingCorrelationRequest) (*domain.RollingCorrelationResponse, error)
}

// CorrelationHandler serves the POST /api/correlation endpoints.
type CorrelationHandler struct {
	service      CorrelationComputer
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCorrelationHandler creates the correlation handler.
func NewCorrelationHandler(service CorrelationComputer, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CorrelationHandler {
	return &CorrelationHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "correlation_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the correlation routes.
func (h *CorrelationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.PostCorrelation)
	r.Post("/lagged", h.PostLagged)
	r.Post("/rolling", h.PostRolling)
	return r
}

// decodeAndValidate decodes the request body into v and validates the
// struct tags, writing the problem response itself on failure.
func (h *CorrelationHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validator.ValidateStruct(v); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// PostCorrelation computes the pairwise correlation matrix for a
// symbol batch.
func (h *CorrelationHandler) PostCorrelation(w http.ResponseWriter, r *http.Request) {
	var req domain.CorrelationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Compute(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "correlation batch failed",
			slog.Int("symbols", len(req.Symbols)),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// PostLagged computes lead/lag matrices for each requested lag.
func (h *CorrelationHandler) PostLagged(w http.ResponseWriter, r *http.Request) {
	var req domain.LaggedCorrelationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.ComputeLagged(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "lagged correlation failed",
			slog.Int("symbols", len(req.Symbols)),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// PostRolling computes the windowed correlation for one pair.
func (h *CorrelationHandler) PostRolling(w http.ResponseWriter, r *http.Request) {
	var req domain.RollingCorrelationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.ComputeRolling(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "rolling correlation failed",
			slog.String("left", req.Left),
			slog.String("right", req.Right),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}
