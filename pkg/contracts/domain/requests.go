package domain

// Request and response contracts shared between the HTTP transport and
// the services layer. Validation tags follow the conventions registered
// in internal/middleware (iso8601, ticker).

// PricesQuery is the query contract for GET /api/prices. Callers give
// either an explicit from/to range or a named preset.
type PricesQuery struct {
	Symbol string     `json:"symbol" validate:"required,ticker"`
	From   string     `json:"from,omitempty" validate:"omitempty,iso8601"`
	To     string     `json:"to,omitempty" validate:"omitempty,iso8601"`
	Preset DatePreset `json:"preset,omitempty" validate:"omitempty,oneof=1M 3M 6M 1Y 3Y 5Y"`
}

// EarningsQuery is the query contract for GET /api/earnings.
type EarningsQuery struct {
	From   string     `json:"from" validate:"required,iso8601"`
	To     string     `json:"to" validate:"required,iso8601"`
	Index  IndexScope `json:"index" validate:"required,oneof=sp500 nasdaq100 both"`
	Symbol string     `json:"symbol,omitempty" validate:"omitempty,ticker"`
}

// EventsQuery is the query contract for GET /api/events.
type EventsQuery struct {
	From string `json:"from" validate:"required,iso8601"`
	To   string `json:"to" validate:"required,iso8601"`
}

// CorrelationRequest is the body contract for POST /api/correlation.
// Symbol count and lookback window limits mirror the orchestrator's
// hard bounds.
type CorrelationRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=2,max=20,dive,ticker"`
	From    string   `json:"from" validate:"required,iso8601"`
	To      string   `json:"to" validate:"required,iso8601"`
	Metric  string   `json:"metric" validate:"required,eq=pearson_daily_returns"`
}

// LaggedCorrelationRequest is the body contract for
// POST /api/correlation/lagged.
type LaggedCorrelationRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=2,max=20,dive,ticker"`
	From    string   `json:"from" validate:"required,iso8601"`
	To      string   `json:"to" validate:"required,iso8601"`
	Lags    []int    `json:"lags" validate:"required,min=1,max=12,unique,dive,min=1,max=60"`
}

// RollingCorrelationRequest is the body contract for
// POST /api/correlation/rolling. Window defaults to 60 when omitted.
type RollingCorrelationRequest struct {
	Left   string `json:"left" validate:"required,ticker"`
	Right  string `json:"right" validate:"required,ticker"`
	From   string `json:"from" validate:"required,iso8601"`
	To     string `json:"to" validate:"required,iso8601"`
	Window int    `json:"window,omitempty" validate:"omitempty,min=2,max=250"`
}

// UniverseResponse is returned by GET /api/universe.
type UniverseResponse struct {
	Symbols []string `json:"symbols"`
	AsOf    string   `json:"asOf"`
	Sources []string `json:"sources"`
}

// PricesResponse is returned by GET /api/prices.
type PricesResponse struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

// EarningsResponse is returned by GET /api/earnings. Partial is set
// when some items degraded (missing candles or a calendar access
// limitation) rather than failing the whole request.
type EarningsResponse struct {
	Items   []EarningsItem `json:"items"`
	Partial bool           `json:"partial,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// EventsResponse is returned by GET /api/events.
type EventsResponse struct {
	Events []MacroEvent `json:"events"`
}

// CorrelationResponse is returned by POST /api/correlation.
type CorrelationResponse struct {
	Matrix         []CorrCell `json:"matrix"`
	Observations   int        `json:"observations"`
	DroppedSymbols []string   `json:"droppedSymbols"`
}

// LaggedCorrelationResponse is returned by POST /api/correlation/lagged.
type LaggedCorrelationResponse struct {
	Results        []LagResult `json:"results"`
	Observations   int         `json:"observations"`
	DroppedSymbols []string    `json:"droppedSymbols"`
}

// RollingCorrelationResponse is returned by POST /api/correlation/rolling.
type RollingCorrelationResponse struct {
	Left   string         `json:"left"`
	Right  string         `json:"right"`
	Window int            `json:"window"`
	Points []RollingPoint `json:"points"`
}
