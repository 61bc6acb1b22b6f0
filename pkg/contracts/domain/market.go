package domain

// IndexScope selects which index universe a request operates on.
type IndexScope string

const (
	ScopeSP500     IndexScope = "sp500"
	ScopeNasdaq100 IndexScope = "nasdaq100"
	ScopeBoth      IndexScope = "both"
)

// Valid reports whether the scope is one of the supported values.
func (s IndexScope) Valid() bool {
	switch s {
	case ScopeSP500, ScopeNasdaq100, ScopeBoth:
		return true
	}
	return false
}

// DatePreset is a named trailing date range ending today.
type DatePreset string

const (
	Preset1M DatePreset = "1M"
	Preset3M DatePreset = "3M"
	Preset6M DatePreset = "6M"
	Preset1Y DatePreset = "1Y"
	Preset3Y DatePreset = "3Y"
	Preset5Y DatePreset = "5Y"
)

// Candle represents one trading day's OHLCV bar for a symbol.
// Date is a calendar day in YYYY-MM-DD form; input order is not
// guaranteed and consumers must sort by date before use.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ReturnPoint is a single day-over-day fractional close change.
type ReturnPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// CorrCell is one cell of a correlation matrix. Self cells (X == Y)
// are always exactly 1.
type CorrCell struct {
	X     string  `json:"x"`
	Y     string  `json:"y"`
	Value float64 `json:"value"`
}

// LagPair is a directional leader/follower correlation at some lag.
type LagPair struct {
	Leader   string  `json:"leader"`
	Follower string  `json:"follower"`
	Corr     float64 `json:"corr"`
}

// LagResult holds the full cross-product matrix at one lag plus the
// strongest non-self pairs by absolute correlation.
type LagResult struct {
	LagDays         int        `json:"lagDays"`
	Matrix          []CorrCell `json:"matrix"`
	TopLeadLagPairs []LagPair  `json:"topLeadLagPairs"`
}

// RollingPoint is one windowed correlation observation, stamped with
// the window's last date.
type RollingPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ExpectedMove is a trailing-range volatility proxy for a symbol.
type ExpectedMove struct {
	ExpectedMovePct float64 `json:"expectedMovePct"`
	ExpectedMoveAbs float64 `json:"expectedMoveAbs"`
}

// UniverseData is a resolved symbol universe with provenance labels.
type UniverseData struct {
	Symbols []string `json:"symbols"`
	Sources []string `json:"sources"`
}

// EarningsHour is the reporting session for an earnings event:
// before market open, after market close, or during market hours.
type EarningsHour string

const (
	HourBeforeOpen   EarningsHour = "bmo"
	HourAfterClose   EarningsHour = "amc"
	HourDuringMarket EarningsHour = "dmh"
)

// EarningsItem is one upcoming earnings event enriched with the
// symbol's expected move.
type EarningsItem struct {
	Symbol          string       `json:"symbol"`
	CompanyName     string       `json:"companyName"`
	Date            string       `json:"date"`
	Hour            EarningsHour `json:"hour"`
	EPSEstimate     *float64     `json:"epsEstimate,omitempty"`
	RevenueEstimate *float64     `json:"revenueEstimate,omitempty"`
	ExpectedMovePct float64      `json:"expectedMovePct"`
	ExpectedMoveAbs float64      `json:"expectedMoveAbs"`
}

// MacroEvent is a scheduled macroeconomic release.
type MacroEvent struct {
	Date       string `json:"date" validate:"required,iso8601"`
	Type       string `json:"type" validate:"required,oneof=FOMC CPI NFP"`
	Title      string `json:"title" validate:"required"`
	Importance string `json:"importance" validate:"required,oneof=high medium"`
	Source     string `json:"source" validate:"required"`
}
