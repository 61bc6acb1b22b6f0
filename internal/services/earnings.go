package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"corrpulse/internal/analytics"
	"corrpulse/internal/concurrent"
	"corrpulse/internal/fetch"
	"corrpulse/internal/marketdata"
	"corrpulse/pkg/contracts/domain"
)

// expectedMoveLookbackDays is how far back the earnings enrichment
// looks for candles. Wide enough to yield 21 trading days even across
// holiday stretches.
const expectedMoveLookbackDays = 80

const (
	warningCalendarDenied = "Finnhub plan does not include earnings calendar access. Showing no events."
	warningPartialMoves   = "Some expected move values could not be computed due to data limits."
)

// UniverseResolver is the slice of the universe resolver the earnings
// service consumes.
type UniverseResolver interface {
	Resolve(ctx context.Context, scope domain.IndexScope) (domain.UniverseData, error)
}

// EarningsCalendarProvider serves raw vendor earnings rows.
type EarningsCalendarProvider interface {
	GetEarningsCalendar(ctx context.Context, from, to string) ([]marketdata.CalendarEntry, error)
}

// EarningsService joins the vendor earnings calendar with the resolved
// universe and enriches each event with an expected move estimate.
type EarningsService struct {
	calendar    EarningsCalendarProvider
	candles     MarketDataProvider
	universe    UniverseResolver
	concurrency int
	logger      *slog.Logger
}

// NewEarningsService creates the earnings orchestrator.
func NewEarningsService(calendar EarningsCalendarProvider, candles MarketDataProvider, universe UniverseResolver, concurrency int, logger *slog.Logger) *EarningsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EarningsService{
		calendar:    calendar,
		candles:     candles,
		universe:    universe,
		concurrency: concurrency,
		logger:      logger,
	}
}

// normalizeHour coerces free-form vendor hour strings into the three
// supported sessions, defaulting to during-market-hours.
func normalizeHour(hour string) domain.EarningsHour {
	switch strings.ToLower(hour) {
	case "bmo":
		return domain.HourBeforeOpen
	case "amc":
		return domain.HourAfterClose
	}
	return domain.HourDuringMarket
}

// List returns earnings events in the range, restricted to the scoped
// universe. A calendar entitlement denial degrades to an empty,
// flagged response instead of failing; per-symbol candle failures
// zero out that item's expected move and mark the response partial.
func (s *EarningsService) List(ctx context.Context, query domain.EarningsQuery) (*domain.EarningsResponse, error) {
	universeData, err := s.universe.Resolve(ctx, query.Index)
	if err != nil {
		return nil, err
	}

	calendarDenied := false
	entries, err := s.calendar.GetEarningsCalendar(ctx, query.From, query.To)
	if err != nil {
		if !fetch.IsAccessDenied(err) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "earnings calendar access denied, returning empty calendar")
		calendarDenied = true
		entries = nil
	}

	allowed := make(map[string]struct{}, len(universeData.Symbols))
	for _, symbol := range universeData.Symbols {
		allowed[symbol] = struct{}{}
	}

	symbolFilter := strings.ToUpper(query.Symbol)
	filtered := make([]marketdata.CalendarEntry, 0, len(entries))
	for _, entry := range entries {
		symbol := strings.ToUpper(entry.Symbol)
		if _, ok := allowed[symbol]; !ok {
			continue
		}
		if symbolFilter != "" && symbol != symbolFilter {
			continue
		}
		filtered = append(filtered, entry)
	}

	var partial atomic.Bool
	items, err := concurrent.Map(ctx, filtered, s.concurrency,
		func(ctx context.Context, entry marketdata.CalendarEntry, _ int) (domain.EarningsItem, error) {
			symbol := strings.ToUpper(entry.Symbol)
			item := domain.EarningsItem{
				Symbol:          symbol,
				CompanyName:     symbol,
				Date:            entry.Date,
				Hour:            normalizeHour(entry.Hour),
				EPSEstimate:     entry.EPSEstimate,
				RevenueEstimate: entry.RevenueEstimate,
			}

			candles, err := s.candles.GetRecentDailyCandles(ctx, symbol, expectedMoveLookbackDays)
			if err != nil {
				partial.Store(true)
				return item, nil
			}

			move := analytics.CalculateExpectedMove(candles)
			item.ExpectedMovePct = move.ExpectedMovePct
			item.ExpectedMoveAbs = move.ExpectedMoveAbs
			return item, nil
		})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date == items[j].Date {
			return items[i].ExpectedMovePct > items[j].ExpectedMovePct
		}
		return items[i].Date < items[j].Date
	})

	response := &domain.EarningsResponse{
		Items:   items,
		Partial: partial.Load() || calendarDenied,
	}
	switch {
	case calendarDenied:
		response.Warning = warningCalendarDenied
	case partial.Load():
		response.Warning = warningPartialMoves
	}
	return response, nil
}
