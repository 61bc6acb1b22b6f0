package marketdata

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"corrpulse/internal/cache"
	"corrpulse/internal/fetch"
	"corrpulse/internal/metrics"
	"corrpulse/pkg/contracts/domain"
)

// CandleSource serves daily candles for one symbol over a date range.
type CandleSource interface {
	DailyCandles(ctx context.Context, symbol, from, to string) ([]domain.Candle, error)
}

// CalendarSource serves the earnings calendar for a date range.
type CalendarSource interface {
	EarningsCalendar(ctx context.Context, from, to string) ([]CalendarEntry, error)
}

// Provider is the cached market data facade. Candles come from the
// primary source with an automatic switch to the fallback when the
// primary denies access; both paths land in the same cache entry.
type Provider struct {
	primary     CandleSource
	fallback    CandleSource
	calendar    CalendarSource
	cache       *cache.Service
	priceTTL    time.Duration
	earningsTTL time.Duration
	logger      *slog.Logger
}

// NewProvider wires the provider facade.
func NewProvider(primary CandleSource, fallback CandleSource, calendar CalendarSource, cacheSvc *cache.Service, priceTTL, earningsTTL time.Duration, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		primary:     primary,
		fallback:    fallback,
		calendar:    calendar,
		cache:       cacheSvc,
		priceTTL:    priceTTL,
		earningsTTL: earningsTTL,
		logger:      logger,
	}
}

// GetDailyCandles returns daily candles for symbol in the inclusive
// range. Access denial from the primary source triggers the fallback;
// every other failure propagates so callers can classify it.
func (p *Provider) GetDailyCandles(ctx context.Context, symbol, from, to string) ([]domain.Candle, error) {
	upper := strings.ToUpper(symbol)
	key := "candles:" + upper + ":" + from + ":" + to

	return cache.GetOrSet(ctx, p.cache, key, p.priceTTL, func(ctx context.Context) ([]domain.Candle, error) {
		candles, err := p.primary.DailyCandles(ctx, upper, from, to)
		if err == nil {
			return candles, nil
		}
		if !fetch.IsAccessDenied(err) {
			return nil, err
		}

		p.logger.WarnContext(ctx, "primary candle source denied access, using fallback",
			"symbol", upper)
		metrics.ProviderRequests.WithLabelValues("stooq", metrics.OutcomeFallback).Inc()

		return p.fallback.DailyCandles(ctx, upper, from, to)
	})
}

// GetRecentDailyCandles returns candles for the trailing lookbackDays
// calendar days ending today.
func (p *Provider) GetRecentDailyCandles(ctx context.Context, symbol string, lookbackDays int) ([]domain.Candle, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	to := now.Format("2006-01-02")
	return p.GetDailyCandles(ctx, symbol, from, to)
}

// GetEarningsCalendar returns the cached earnings calendar for the
// range. Access denial propagates so the earnings service can degrade
// to an empty, flagged response.
func (p *Provider) GetEarningsCalendar(ctx context.Context, from, to string) ([]CalendarEntry, error) {
	key := "earnings:" + from + ":" + to

	return cache.GetOrSet(ctx, p.cache, key, p.earningsTTL, func(ctx context.Context) ([]CalendarEntry, error) {
		return p.calendar.EarningsCalendar(ctx, from, to)
	})
}
