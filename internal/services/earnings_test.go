package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corrpulse/internal/fetch"
	"corrpulse/internal/marketdata"
	"corrpulse/pkg/contracts/domain"
)

type stubCalendar struct {
	entries []marketdata.CalendarEntry
	err     error
}

func (c *stubCalendar) GetEarningsCalendar(ctx context.Context, from, to string) ([]marketdata.CalendarEntry, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.entries, nil
}

type stubUniverse struct {
	data domain.UniverseData
	err  error
}

func (u *stubUniverse) Resolve(ctx context.Context, scope domain.IndexScope) (domain.UniverseData, error) {
	if u.err != nil {
		return domain.UniverseData{}, u.err
	}
	return u.data, nil
}

// flatCandles builds enough constant-range candles for an expected
// move estimate: each day's range is 1% of the previous close.
func flatCandles(n int) []domain.Candle {
	candles := makeCandles(make([]float64, n)...)
	for i := range candles {
		candles[i].Open = 100
		candles[i].High = 100.5
		candles[i].Low = 99.5
		candles[i].Close = 100
	}
	return candles
}

func earningsQuery() domain.EarningsQuery {
	return domain.EarningsQuery{
		From:  "2024-02-01",
		To:    "2024-02-07",
		Index: domain.ScopeSP500,
	}
}

func eps(v float64) *float64 { return &v }

func TestEarningsList(t *testing.T) {
	calendar := &stubCalendar{entries: []marketdata.CalendarEntry{
		{Symbol: "MSFT", Date: "2024-02-02", Hour: "bmo"},
		{Symbol: "aapl", Date: "2024-02-01", Hour: "amc", EPSEstimate: eps(2.1)},
		{Symbol: "ZZZZ", Date: "2024-02-03", Hour: "bmo"},
	}}
	universe := &stubUniverse{data: domain.UniverseData{Symbols: []string{"AAPL", "MSFT"}}}
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL": flatCandles(25),
		"MSFT": flatCandles(25),
	}}

	svc := NewEarningsService(calendar, provider, universe, 5, testLogger())
	resp, err := svc.List(context.Background(), earningsQuery())
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.False(t, resp.Partial)
	assert.Empty(t, resp.Warning)

	// Sorted by date; the out-of-universe symbol is filtered out.
	assert.Equal(t, "AAPL", resp.Items[0].Symbol)
	assert.Equal(t, domain.HourAfterClose, resp.Items[0].Hour)
	require.NotNil(t, resp.Items[0].EPSEstimate)
	assert.Equal(t, 2.1, *resp.Items[0].EPSEstimate)
	assert.InDelta(t, 1.0, resp.Items[0].ExpectedMovePct, 1e-9)
	assert.InDelta(t, 1.0, resp.Items[0].ExpectedMoveAbs, 1e-9)

	assert.Equal(t, "MSFT", resp.Items[1].Symbol)
	assert.Equal(t, domain.HourBeforeOpen, resp.Items[1].Hour)
}

func TestEarningsSymbolFilter(t *testing.T) {
	calendar := &stubCalendar{entries: []marketdata.CalendarEntry{
		{Symbol: "AAPL", Date: "2024-02-01"},
		{Symbol: "MSFT", Date: "2024-02-02"},
	}}
	universe := &stubUniverse{data: domain.UniverseData{Symbols: []string{"AAPL", "MSFT"}}}
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"AAPL": flatCandles(25),
		"MSFT": flatCandles(25),
	}}

	svc := NewEarningsService(calendar, provider, universe, 5, testLogger())

	query := earningsQuery()
	query.Symbol = "msft"
	resp, err := svc.List(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, "MSFT", resp.Items[0].Symbol)
}

func TestEarningsCalendarAccessDenied(t *testing.T) {
	calendar := &stubCalendar{err: &fetch.StatusError{Status: http.StatusForbidden}}
	universe := &stubUniverse{data: domain.UniverseData{Symbols: []string{"AAPL"}}}

	svc := NewEarningsService(calendar, &stubProvider{}, universe, 5, testLogger())
	resp, err := svc.List(context.Background(), earningsQuery())
	require.NoError(t, err)

	assert.Empty(t, resp.Items)
	assert.True(t, resp.Partial)
	assert.Equal(t, warningCalendarDenied, resp.Warning)
}

func TestEarningsCalendarOtherErrorFatal(t *testing.T) {
	calendar := &stubCalendar{err: errors.New("calendar down")}
	universe := &stubUniverse{data: domain.UniverseData{Symbols: []string{"AAPL"}}}

	svc := NewEarningsService(calendar, &stubProvider{}, universe, 5, testLogger())
	_, err := svc.List(context.Background(), earningsQuery())
	require.Error(t, err)
}

func TestEarningsPartialOnCandleFailure(t *testing.T) {
	calendar := &stubCalendar{entries: []marketdata.CalendarEntry{
		{Symbol: "AAPL", Date: "2024-02-01"},
	}}
	universe := &stubUniverse{data: domain.UniverseData{Symbols: []string{"AAPL"}}}
	provider := &stubProvider{errs: map[string]error{"AAPL": errors.New("no candles")}}

	svc := NewEarningsService(calendar, provider, universe, 5, testLogger())
	resp, err := svc.List(context.Background(), earningsQuery())
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Partial)
	assert.Equal(t, warningPartialMoves, resp.Warning)
	assert.Zero(t, resp.Items[0].ExpectedMovePct)
	assert.Zero(t, resp.Items[0].ExpectedMoveAbs)
}

func TestEarningsSortsByDateThenMove(t *testing.T) {
	calendar := &stubCalendar{entries: []marketdata.CalendarEntry{
		{Symbol: "CALM", Date: "2024-02-01"},
		{Symbol: "WILD", Date: "2024-02-01"},
	}}
	universe := &stubUniverse{data: domain.UniverseData{Symbols: []string{"CALM", "WILD"}}}

	wild := flatCandles(25)
	for i := range wild {
		wild[i].High = 103
		wild[i].Low = 97
	}
	provider := &stubProvider{candles: map[string][]domain.Candle{
		"CALM": flatCandles(25),
		"WILD": wild,
	}}

	svc := NewEarningsService(calendar, provider, universe, 5, testLogger())
	resp, err := svc.List(context.Background(), earningsQuery())
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, "WILD", resp.Items[0].Symbol)
	assert.Equal(t, "CALM", resp.Items[1].Symbol)
}

func TestNormalizeHour(t *testing.T) {
	assert.Equal(t, domain.HourBeforeOpen, normalizeHour("BMO"))
	assert.Equal(t, domain.HourAfterClose, normalizeHour("amc"))
	assert.Equal(t, domain.HourDuringMarket, normalizeHour(""))
	assert.Equal(t, domain.HourDuringMarket, normalizeHour("weird"))
}
