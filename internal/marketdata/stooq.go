package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"corrpulse/internal/fetch"
	"corrpulse/internal/metrics"
	"corrpulse/pkg/contracts/domain"
)

const stooqBaseURL = "https://stooq.com"

// StooqClient downloads daily price history as CSV. It serves as the
// fallback when the primary vendor denies candle access.
type StooqClient struct {
	client  *fetch.Client
	baseURL string
}

// NewStooqClient creates the CSV fallback client. An empty baseURL
// selects the production endpoint.
func NewStooqClient(client *fetch.Client, baseURL string) *StooqClient {
	if baseURL == "" {
		baseURL = stooqBaseURL
	}
	return &StooqClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// stooqSymbol maps a US ticker to Stooq's naming: lowercase, dots
// become dashes, ".us" suffix. BRK.B becomes brk-b.us.
func stooqSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToLower(symbol), ".", "-") + ".us"
}

// DailyCandles downloads the full history for symbol and keeps rows
// inside the inclusive date range.
func (c *StooqClient) DailyCandles(ctx context.Context, symbol, from, to string) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("s", stooqSymbol(symbol))
	params.Set("i", "d")

	body, err := c.client.Get(ctx, c.baseURL+"/q/d/l/?"+params.Encode())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("stooq", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("stooq request failed: %w", err)
	}
	metrics.ProviderRequests.WithLabelValues("stooq", metrics.OutcomeOK).Inc()

	candles := parseStooqCSV(string(body))

	filtered := candles[:0]
	for _, candle := range candles {
		if candle.Date >= from && candle.Date <= to {
			filtered = append(filtered, candle)
		}
	}
	return filtered, nil
}

// parseStooqCSV parses Date,Open,High,Low,Close,Volume rows, skipping
// the header and any malformed line.
func parseStooqCSV(csv string) []domain.Candle {
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) < 2 {
		return []domain.Candle{}
	}

	candles := make([]domain.Candle, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Split(strings.TrimRight(line, "\r"), ",")
		if len(fields) < 6 {
			continue
		}

		date := fields[0]
		if date == "" {
			continue
		}

		values := make([]float64, 0, 5)
		valid := true
		for _, field := range fields[1:6] {
			if field == "" {
				valid = false
				break
			}
			parsed, err := strconv.ParseFloat(field, 64)
			if err != nil {
				valid = false
				break
			}
			values = append(values, parsed)
		}
		if !valid {
			continue
		}

		candles = append(candles, domain.Candle{
			Date:   date,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}
	return candles
}
