package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "corrpulse/internal/errors"
	"corrpulse/internal/middleware"
	"corrpulse/pkg/contracts/domain"
)

// EarningsLister is the earnings service slice the handler needs.
type EarningsLister interface {
	List(ctx context.Context, query domain.EarningsQuery) (*domain.EarningsResponse, error)
}

// EarningsHandler serves GET /api/earnings.
type EarningsHandler struct {
	service      EarningsLister
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEarningsHandler creates the earnings handler.
func NewEarningsHandler(service EarningsLister, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EarningsHandler {
	return &EarningsHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "earnings_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the earnings routes.
func (h *EarningsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetEarnings)
	return r
}

// GetEarnings returns upcoming earnings in the range, scoped to the
// requested index universe.
func (h *EarningsHandler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	query := domain.EarningsQuery{
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
		Index:  domain.IndexScope(r.URL.Query().Get("index")),
		Symbol: r.URL.Query().Get("symbol"),
	}

	if err := h.validator.ValidateStruct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.List(r.Context(), query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "earnings lookup failed",
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, apierrors.UpstreamError(err))
		return
	}

	render.JSON(w, r, resp)
}
