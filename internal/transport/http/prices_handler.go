package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "corrpulse/internal/errors"
	"corrpulse/internal/middleware"
	"corrpulse/internal/services"
	"corrpulse/pkg/contracts/domain"
)

// PricesHandler serves GET /api/prices.
type PricesHandler struct {
	provider     services.MarketDataProvider
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPricesHandler creates the prices handler.
func NewPricesHandler(provider services.MarketDataProvider, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PricesHandler {
	return &PricesHandler{
		provider:     provider,
		validator:    validator,
		logger:       logger.With(slog.String("component", "prices_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the prices routes.
func (h *PricesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetPrices)
	return r
}

// GetPrices returns daily candles for one symbol over a date range.
func (h *PricesHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	query := domain.PricesQuery{
		Symbol: r.URL.Query().Get("symbol"),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
		Preset: domain.DatePreset(r.URL.Query().Get("preset")),
	}

	if err := h.validator.ValidateStruct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if query.From == "" || query.To == "" {
		if query.Preset == "" {
			h.errorHandler.HandleError(w, r,
				apierrors.ErrValidation("from", "Provide from and to dates, or a preset"))
			return
		}
		query.From, query.To = services.RangeFromPreset(query.Preset)
	}

	symbol := strings.ToUpper(query.Symbol)
	candles, err := h.provider.GetDailyCandles(r.Context(), symbol, query.From, query.To)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "price fetch failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, apierrors.UpstreamError(err))
		return
	}

	render.JSON(w, r, domain.PricesResponse{Symbol: symbol, Candles: candles})
}
