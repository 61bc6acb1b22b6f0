package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "corrpulse/internal/errors"
	"corrpulse/pkg/contracts/domain"
)

// UniverseResolver is the resolver slice the universe handler needs.
type UniverseResolver interface {
	Resolve(ctx context.Context, scope domain.IndexScope) (domain.UniverseData, error)
}

// UniverseHandler serves GET /api/universe.
type UniverseHandler struct {
	resolver     UniverseResolver
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewUniverseHandler creates the universe handler.
func NewUniverseHandler(resolver UniverseResolver, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *UniverseHandler {
	return &UniverseHandler{
		resolver:     resolver,
		logger:       logger.With(slog.String("component", "universe_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the universe routes.
func (h *UniverseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetUniverse)
	return r
}

// GetUniverse resolves the index scope from the query string, with
// "both" as the default.
func (h *UniverseHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	rawScope := r.URL.Query().Get("index")
	if rawScope == "" {
		rawScope = string(domain.ScopeBoth)
	}

	scope := domain.IndexScope(rawScope)
	if !scope.Valid() {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("index",
			"index must be one of: sp500, nasdaq100, both"))
		return
	}

	universe, err := h.resolver.Resolve(r.Context(), scope)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "universe resolution failed",
			slog.String("scope", rawScope),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, apierrors.UpstreamError(err))
		return
	}

	render.JSON(w, r, domain.UniverseResponse{
		Symbols: universe.Symbols,
		AsOf:    time.Now().UTC().Format("2006-01-02"),
		Sources: universe.Sources,
	})
}
