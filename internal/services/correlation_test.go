package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "corrpulse/internal/errors"
	"corrpulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProvider struct {
	candles map[string][]domain.Candle
	errs    map[string]error
}

func (p *stubProvider) GetDailyCandles(ctx context.Context, symbol, from, to string) ([]domain.Candle, error) {
	if err, ok := p.errs[symbol]; ok {
		return nil, err
	}
	return p.candles[symbol], nil
}

func (p *stubProvider) GetRecentDailyCandles(ctx context.Context, symbol string, lookbackDays int) ([]domain.Candle, error) {
	return p.GetDailyCandles(ctx, symbol, "", "")
}

// makeCandles builds a daily candle series starting 2024-01-01 with
// the given closes. Highs and lows track the close so expected move
// fixtures stay simple.
func makeCandles(closes ...float64) []domain.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, len(closes))
	for i, close := range closes {
		candles[i] = domain.Candle{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   close,
			High:   close * 1.01,
			Low:    close * 0.99,
			Close:  close,
			Volume: 1000,
		}
	}
	return candles
}

// trendingCloses produces n+1 closes whose daily returns alternate in
// sign, so correlations are well defined.
func trendingCloses(n int, up bool) []float64 {
	closes := make([]float64, n+1)
	closes[0] = 100
	for i := 1; i <= n; i++ {
		step := 1.0 + 0.01*float64(1+i%3)
		if !up {
			step = 1 / step
		}
		closes[i] = closes[i-1] * step
	}
	return closes
}

func newServiceForTest(provider MarketDataProvider) *CorrelationService {
	return NewCorrelationService(provider, CorrelationLimits{
		Concurrency:      5,
		MaxLookbackYears: 5,
		MinObservations:  5,
	}, testLogger())
}

func correlationRequest(symbols ...string) domain.CorrelationRequest {
	return domain.CorrelationRequest{
		Symbols: symbols,
		From:    "2024-01-01",
		To:      "2024-03-01",
		Metric:  "pearson_daily_returns",
	}
}

func TestComputeMatrix(t *testing.T) {
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL": makeCandles(trendingCloses(10, true)...),
		"MSFT": makeCandles(trendingCloses(10, true)...),
	}}
	svc := newServiceForTest(provider)

	resp, err := svc.Compute(context.Background(), correlationRequest("aapl", "msft"))
	require.NoError(t, err)

	assert.Equal(t, 10, resp.Observations)
	assert.Empty(t, resp.DroppedSymbols)
	require.Len(t, resp.Matrix, 4)

	for _, cell := range resp.Matrix {
		if cell.X == cell.Y {
			assert.Equal(t, 1.0, cell.Value)
		} else {
			assert.InDelta(t, 1.0, cell.Value, 1e-9)
		}
	}
}

func TestComputeDropsFailedSymbols(t *testing.T) {
	provider := &stubProvider{
		candles: map[string][]domain.Candle{
			"AAPL": makeCandles(trendingCloses(10, true)...),
			"MSFT": makeCandles(trendingCloses(10, false)...),
		},
		errs: map[string]error{"FAIL": errors.New("upstream exploded")},
	}
	svc := newServiceForTest(provider)

	resp, err := svc.Compute(context.Background(), correlationRequest("AAPL", "MSFT", "FAIL"))
	require.NoError(t, err)

	assert.Equal(t, []string{"FAIL"}, resp.DroppedSymbols)
}

func TestComputeDropsShortSeries(t *testing.T) {
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL":  makeCandles(trendingCloses(10, true)...),
		"MSFT":  makeCandles(trendingCloses(10, false)...),
		"THIN":  makeCandles(100, 101),
		"EMPTY": {},
	}}
	svc := newServiceForTest(provider)

	resp, err := svc.Compute(context.Background(), correlationRequest("AAPL", "MSFT", "THIN", "EMPTY"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"THIN", "EMPTY"}, resp.DroppedSymbols)
}

func TestComputeNotEnoughSurvivors(t *testing.T) {
	provider := &stubProvider{
		candles: map[string][]domain.Candle{"AAPL": makeCandles(trendingCloses(10, true)...)},
		errs:    map[string]error{"MSFT": errors.New("down")},
	}
	svc := newServiceForTest(provider)

	_, err := svc.Compute(context.Background(), correlationRequest("AAPL", "MSFT"))
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INSUFFICIENT_DATA", apiErr.ErrorCode)
}

func TestComputeNotEnoughObservations(t *testing.T) {
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL": makeCandles(trendingCloses(3, true)...),
		"MSFT": makeCandles(trendingCloses(3, false)...),
	}}
	svc := newServiceForTest(provider)

	_, err := svc.Compute(context.Background(), correlationRequest("AAPL", "MSFT"))
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INSUFFICIENT_DATA", apiErr.ErrorCode)
}

func TestComputeLookbackTooLong(t *testing.T) {
	svc := newServiceForTest(&stubProvider{})

	req := correlationRequest("AAPL", "MSFT")
	req.From = "2018-01-01"
	req.To = "2024-01-01"

	_, err := svc.Compute(context.Background(), req)
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
}

func TestComputeRejectsMalformedDates(t *testing.T) {
	svc := newServiceForTest(&stubProvider{})

	req := correlationRequest("AAPL", "MSFT")
	req.From = "not-a-date"
	req.To = "2024-06-30"

	_, err := svc.Compute(context.Background(), req)
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
}

func TestComputeDeduplicatesSymbols(t *testing.T) {
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL": makeCandles(trendingCloses(10, true)...),
		"MSFT": makeCandles(trendingCloses(10, false)...),
	}}
	svc := newServiceForTest(provider)

	resp, err := svc.Compute(context.Background(), correlationRequest("AAPL", "aapl", "MSFT"))
	require.NoError(t, err)

	// 2 distinct symbols -> 4 matrix cells, not 9.
	assert.Len(t, resp.Matrix, 4)
}

func TestComputeLagged(t *testing.T) {
	leaderCloses := trendingCloses(12, true)
	// Follower repeats the leader's closes one day later, so the
	// follower's returns equal the leader's shifted by one.
	followerCloses := append([]float64{leaderCloses[0]}, leaderCloses[:len(leaderCloses)-1]...)

	provider := &stubProvider{candles: map[string][]domain.Candle{
		"LEAD": makeCandles(leaderCloses...),
		"FOLW": makeCandles(followerCloses...),
	}}
	svc := newServiceForTest(provider)

	resp, err := svc.ComputeLagged(context.Background(), domain.LaggedCorrelationRequest{
		Symbols: []string{"LEAD", "FOLW"},
		From:    "2024-01-01",
		To:      "2024-03-01",
		Lags:    []int{1, 2},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].LagDays)

	require.NotEmpty(t, resp.Results[0].TopLeadLagPairs)
	top := resp.Results[0].TopLeadLagPairs[0]
	assert.Equal(t, "LEAD", top.Leader)
	assert.Equal(t, "FOLW", top.Follower)
	assert.InDelta(t, 1.0, top.Corr, 1e-9)
}

func TestComputeRolling(t *testing.T) {
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL": makeCandles(trendingCloses(15, true)...),
		"MSFT": makeCandles(trendingCloses(15, true)...),
	}}
	svc := newServiceForTest(provider)

	resp, err := svc.ComputeRolling(context.Background(), domain.RollingCorrelationRequest{
		Left:   "aapl",
		Right:  "msft",
		From:   "2024-01-01",
		To:     "2024-03-01",
		Window: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", resp.Left)
	assert.Equal(t, "MSFT", resp.Right)
	assert.Equal(t, 5, resp.Window)
	assert.Len(t, resp.Points, 11)
	for _, point := range resp.Points {
		assert.InDelta(t, 1.0, point.Value, 1e-9)
	}
}

func TestComputeRollingSameSymbol(t *testing.T) {
	svc := newServiceForTest(&stubProvider{})

	_, err := svc.ComputeRolling(context.Background(), domain.RollingCorrelationRequest{
		Left: "AAPL", Right: "aapl", From: "2024-01-01", To: "2024-03-01",
	})
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
}

func TestComputeRollingUpstreamFailure(t *testing.T) {
	provider := &stubProvider{errs: map[string]error{"AAPL": errors.New("down")}}
	svc := newServiceForTest(provider)

	_, err := svc.ComputeRolling(context.Background(), domain.RollingCorrelationRequest{
		Left: "AAPL", Right: "MSFT", From: "2024-01-01", To: "2024-03-01", Window: 5,
	})
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestDedupeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT"}, dedupeSymbols([]string{"aapl", "AAPL", "msft"}))
}

func TestYearsBetween(t *testing.T) {
	assert.InDelta(t, 1.0, YearsBetween("2023-01-01", "2024-01-01"), 0.01)
	assert.InDelta(t, 1.0, YearsBetween("2024-01-01", "2023-01-01"), 0.01)
	assert.InDelta(t, 6.0, YearsBetween("2018-01-01", "2024-01-01"), 0.02)
}

func TestRangeFromPreset(t *testing.T) {
	for _, preset := range []domain.DatePreset{
		domain.Preset1M, domain.Preset3M, domain.Preset6M,
		domain.Preset1Y, domain.Preset3Y, domain.Preset5Y,
	} {
		t.Run(string(preset), func(t *testing.T) {
			from, to := RangeFromPreset(preset)
			assert.True(t, IsValidISODate(from))
			assert.True(t, IsValidISODate(to))
			assert.Less(t, from, to)
		})
	}

	from, to := RangeFromPreset(domain.DatePreset("bogus"))
	oneMonth, _ := RangeFromPreset(domain.Preset1M)
	assert.Equal(t, oneMonth, from)
	assert.True(t, IsValidISODate(to))
}

func TestIsValidISODate(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"2024-01-31", true},
		{"2024-02-30", false},
		{"01/01/2024", false},
		{"2024-1-1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.value), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidISODate(tt.value))
		})
	}
}
