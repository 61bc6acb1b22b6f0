// Package services holds the request orchestration layer: correlation
// batches, earnings enrichment, and the macro event calendar.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"corrpulse/internal/analytics"
	"corrpulse/internal/concurrent"
	apierrors "corrpulse/internal/errors"
	"corrpulse/internal/metrics"
	"corrpulse/pkg/contracts/domain"
)

// MarketDataProvider is the slice of the market data facade the
// services layer consumes.
type MarketDataProvider interface {
	GetDailyCandles(ctx context.Context, symbol, from, to string) ([]domain.Candle, error)
	GetRecentDailyCandles(ctx context.Context, symbol string, lookbackDays int) ([]domain.Candle, error)
}

// CorrelationLimits bounds a correlation batch.
type CorrelationLimits struct {
	Concurrency      int
	MaxLookbackYears int
	MinObservations  int
}

// CorrelationService turns symbol batches into correlation matrices,
// lagged lead/lag scans, and rolling pair correlations.
type CorrelationService struct {
	provider MarketDataProvider
	limits   CorrelationLimits
	logger   *slog.Logger
}

// NewCorrelationService creates the orchestrator.
func NewCorrelationService(provider MarketDataProvider, limits CorrelationLimits, logger *slog.Logger) *CorrelationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationService{provider: provider, limits: limits, logger: logger}
}

// symbolReturns is the per-symbol outcome of a batch fetch. A failed
// or too-short series leaves returns nil; the symbol lands in the
// dropped list instead of failing the batch.
type symbolReturns struct {
	symbol  string
	returns []domain.ReturnPoint
}

// dedupeSymbols uppercases and deduplicates while preserving request
// order.
func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		upper := strings.ToUpper(symbol)
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		out = append(out, upper)
	}
	return out
}

func (s *CorrelationService) checkLookback(from, to string) error {
	// YearsBetween reports 0 for unparseable dates, which would let a
	// garbage range slip past the lookback cap.
	if !IsValidISODate(from) || !IsValidISODate(to) {
		return apierrors.ErrValidation("from", "Dates must be calendar days in YYYY-MM-DD form")
	}
	if YearsBetween(from, to) > float64(s.limits.MaxLookbackYears) {
		return apierrors.ErrValidation("from",
			fmt.Sprintf("Lookback cannot exceed %d years", s.limits.MaxLookbackYears))
	}
	return nil
}

// loadReturns fetches candles for every symbol concurrently and
// converts them to daily returns. Per-symbol failures are swallowed
// uniformly: the symbol is dropped whether the fetch errored or the
// series was too short to produce two returns.
func (s *CorrelationService) loadReturns(ctx context.Context, symbols []string, from, to string) (map[string][]domain.ReturnPoint, []string, error) {
	results, err := concurrent.Map(ctx, symbols, s.limits.Concurrency,
		func(ctx context.Context, symbol string, _ int) (symbolReturns, error) {
			candles, err := s.provider.GetDailyCandles(ctx, symbol, from, to)
			if err != nil {
				s.logger.WarnContext(ctx, "dropping symbol after fetch failure",
					"symbol", symbol, "error", err)
				return symbolReturns{symbol: symbol}, nil
			}

			returns := analytics.ToDailyReturns(candles)
			if len(returns) < 2 {
				return symbolReturns{symbol: symbol}, nil
			}
			return symbolReturns{symbol: symbol, returns: returns}, nil
		})
	if err != nil {
		return nil, nil, err
	}

	series := make(map[string][]domain.ReturnPoint, len(results))
	dropped := make([]string, 0)
	for _, result := range results {
		if result.returns == nil {
			dropped = append(dropped, result.symbol)
			metrics.DroppedSymbols.Inc()
			continue
		}
		series[result.symbol] = result.returns
	}
	return series, dropped, nil
}

// align enforces the batch floor: at least two surviving symbols and
// enough overlapping observations.
func (s *CorrelationService) align(series map[string][]domain.ReturnPoint) (analytics.AlignedSeries, error) {
	aligned := analytics.AlignSeriesByDate(series)

	if len(aligned.Symbols) < 2 {
		return analytics.AlignedSeries{}, apierrors.InsufficientData("Not enough valid symbols with price history")
	}
	if len(aligned.Dates) < s.limits.MinObservations {
		return analytics.AlignedSeries{}, apierrors.InsufficientData(fmt.Sprintf(
			"Need at least %d overlapping observations. Adjust range or symbols.",
			s.limits.MinObservations))
	}
	return aligned, nil
}

// Compute builds the pairwise correlation matrix for a symbol batch.
func (s *CorrelationService) Compute(ctx context.Context, req domain.CorrelationRequest) (*domain.CorrelationResponse, error) {
	if err := s.checkLookback(req.From, req.To); err != nil {
		return nil, err
	}

	symbols := dedupeSymbols(req.Symbols)
	series, dropped, err := s.loadReturns(ctx, symbols, req.From, req.To)
	if err != nil {
		return nil, err
	}

	aligned, err := s.align(series)
	if err != nil {
		return nil, err
	}

	return &domain.CorrelationResponse{
		Matrix:         analytics.BuildCorrelationMatrix(aligned.Symbols, aligned.Values),
		Observations:   len(aligned.Dates),
		DroppedSymbols: dropped,
	}, nil
}

// ComputeLagged builds lead/lag matrices for each requested lag.
func (s *CorrelationService) ComputeLagged(ctx context.Context, req domain.LaggedCorrelationRequest) (*domain.LaggedCorrelationResponse, error) {
	if err := s.checkLookback(req.From, req.To); err != nil {
		return nil, err
	}

	symbols := dedupeSymbols(req.Symbols)
	series, dropped, err := s.loadReturns(ctx, symbols, req.From, req.To)
	if err != nil {
		return nil, err
	}

	aligned, err := s.align(series)
	if err != nil {
		return nil, err
	}

	return &domain.LaggedCorrelationResponse{
		Results:        analytics.BuildLaggedResults(aligned.Symbols, aligned.Values, req.Lags),
		Observations:   len(aligned.Dates),
		DroppedSymbols: dropped,
	}, nil
}

// ComputeRolling tracks a single pair's correlation over a trailing
// window. Unlike batch endpoints a fetch failure here is fatal: with
// only two symbols there is nothing left to correlate.
func (s *CorrelationService) ComputeRolling(ctx context.Context, req domain.RollingCorrelationRequest) (*domain.RollingCorrelationResponse, error) {
	if err := s.checkLookback(req.From, req.To); err != nil {
		return nil, err
	}

	left := strings.ToUpper(req.Left)
	right := strings.ToUpper(req.Right)
	if left == right {
		return nil, apierrors.ErrValidation("right", "left and right must differ")
	}

	window := req.Window
	if window <= 0 {
		window = analytics.DefaultRollingWindow
	}

	leftCandles, err := s.provider.GetDailyCandles(ctx, left, req.From, req.To)
	if err != nil {
		return nil, apierrors.UpstreamError(err)
	}
	rightCandles, err := s.provider.GetDailyCandles(ctx, right, req.From, req.To)
	if err != nil {
		return nil, apierrors.UpstreamError(err)
	}

	leftReturns := analytics.ToDailyReturns(leftCandles)
	rightReturns := analytics.ToDailyReturns(rightCandles)
	if len(leftReturns) < window || len(rightReturns) < window {
		return nil, apierrors.InsufficientData(fmt.Sprintf(
			"Need at least %d daily returns per symbol for a %d-day window.", window, window))
	}

	return &domain.RollingCorrelationResponse{
		Left:   left,
		Right:  right,
		Window: window,
		Points: analytics.RollingCorrelation(leftReturns, rightReturns, window),
	}, nil
}
