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

// EventsLister is the events service slice the handler needs.
type EventsLister interface {
	List(ctx context.Context, query domain.EventsQuery) (*domain.EventsResponse, error)
}

// EventsHandler serves GET /api/events.
type EventsHandler struct {
	service      EventsLister
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEventsHandler creates the events handler.
func NewEventsHandler(service EventsLister, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EventsHandler {
	return &EventsHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "events_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the events routes.
func (h *EventsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetEvents)
	return r
}

// GetEvents returns macro events inside the inclusive date range.
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := domain.EventsQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}

	if err := h.validator.ValidateStruct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.List(r.Context(), query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "macro event lookup failed",
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}
