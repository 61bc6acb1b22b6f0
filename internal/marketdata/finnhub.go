// Package marketdata provides daily candles, index constituents, and
// earnings calendars from the primary vendor with a CSV fallback for
// price history.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"corrpulse/internal/fetch"
	"corrpulse/internal/metrics"
	"corrpulse/pkg/contracts/domain"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// CalendarEntry is one row of the vendor earnings calendar before
// enrichment.
type CalendarEntry struct {
	Symbol          string   `json:"symbol"`
	Date            string   `json:"date"`
	Hour            string   `json:"hour"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
}

// FinnhubClient talks to the Finnhub REST API.
type FinnhubClient struct {
	client  *fetch.Client
	baseURL string
	apiKey  string
}

// NewFinnhubClient creates a vendor client. The API key is appended to
// every request as the token parameter. An empty baseURL selects the
// production endpoint.
func NewFinnhubClient(client *fetch.Client, apiKey, baseURL string) *FinnhubClient {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	return &FinnhubClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *FinnhubClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("token", c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	body, err := c.client.Get(ctx, requestURL)
	if err != nil {
		if fetch.IsAccessDenied(err) {
			metrics.ProviderRequests.WithLabelValues("finnhub", metrics.OutcomeDenied).Inc()
		} else {
			metrics.ProviderRequests.WithLabelValues("finnhub", metrics.OutcomeError).Inc()
		}
		return err
	}
	metrics.ProviderRequests.WithLabelValues("finnhub", metrics.OutcomeOK).Inc()

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// IndexConstituents returns the membership of an index such as ^GSPC,
// uppercased.
func (c *FinnhubClient) IndexConstituents(ctx context.Context, indexSymbol string) ([]string, error) {
	params := url.Values{}
	params.Set("symbol", indexSymbol)

	var payload struct {
		Constituents []string `json:"constituents"`
	}
	if err := c.getJSON(ctx, "/index/constituents", params, &payload); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(payload.Constituents))
	for _, symbol := range payload.Constituents {
		symbols = append(symbols, strings.ToUpper(symbol))
	}
	return symbols, nil
}

// EarningsCalendar returns the vendor earnings calendar for the
// inclusive date range.
func (c *FinnhubClient) EarningsCalendar(ctx context.Context, from, to string) ([]CalendarEntry, error) {
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)

	var payload struct {
		EarningsCalendar []CalendarEntry `json:"earningsCalendar"`
	}
	if err := c.getJSON(ctx, "/calendar/earnings", params, &payload); err != nil {
		return nil, err
	}
	return payload.EarningsCalendar, nil
}

// DailyCandles returns daily candles for symbol over the inclusive
// date range. The vendor reports "no_data" through the status field
// rather than an error status, which maps to an empty slice here.
func (c *FinnhubClient) DailyCandles(ctx context.Context, symbol, from, to string) ([]domain.Candle, error) {
	fromUnix, err := toUnixSeconds(from)
	if err != nil {
		return nil, err
	}
	toUnix, err := toUnixSeconds(to)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", "D")
	params.Set("from", strconv.FormatInt(fromUnix, 10))
	params.Set("to", strconv.FormatInt(toUnix, 10))
	params.Set("adjusted", "true")

	var payload struct {
		Close  []float64 `json:"c"`
		High   []float64 `json:"h"`
		Low    []float64 `json:"l"`
		Open   []float64 `json:"o"`
		Status string    `json:"s"`
		Time   []int64   `json:"t"`
		Volume []float64 `json:"v"`
	}
	if err := c.getJSON(ctx, "/stock/candle", params, &payload); err != nil {
		return nil, err
	}

	if payload.Status != "ok" {
		return []domain.Candle{}, nil
	}

	n := len(payload.Time)
	if len(payload.Open) != n || len(payload.High) != n || len(payload.Low) != n ||
		len(payload.Close) != n || len(payload.Volume) != n {
		return nil, fmt.Errorf("finnhub candle response for %s has mismatched array lengths", symbol)
	}

	candles := make([]domain.Candle, 0, len(payload.Time))
	for i := range payload.Time {
		candles = append(candles, domain.Candle{
			Date:   time.Unix(payload.Time[i], 0).UTC().Format("2006-01-02"),
			Open:   payload.Open[i],
			High:   payload.High[i],
			Low:    payload.Low[i],
			Close:  payload.Close[i],
			Volume: payload.Volume[i],
		})
	}
	return candles, nil
}

// toUnixSeconds converts a YYYY-MM-DD day to the Unix timestamp of
// its UTC midnight.
func toUnixSeconds(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Unix(), nil
}
