package universe

import "corrpulse/pkg/contracts/domain"

// staticFallback holds the built-in constituent lists used when both
// the primary provider and the scrape fallback come up empty. The
// lists cover the largest constituents of each index and are refreshed
// by hand when membership changes materially.
var staticFallback = map[domain.IndexScope][]string{
	domain.ScopeSP500: {
		"AAPL", "MSFT", "AMZN", "GOOGL", "GOOG", "META", "NVDA", "TSLA",
		"BRK.B", "JPM", "V", "JNJ", "UNH", "XOM", "PG", "MA",
		"HD", "MRK", "AVGO", "PEP", "COST", "ABBV", "KO", "ADBE",
		"CRM", "BAC", "WMT", "MCD", "NFLX", "AMD", "TMO", "LIN",
		"CSCO", "ACN", "DHR", "ORCL", "TXN", "ABT", "QCOM", "CMCSA",
	},
	domain.ScopeNasdaq100: {
		"AAPL", "MSFT", "AMZN", "GOOGL", "GOOG", "META", "NVDA", "TSLA",
		"AVGO", "COST", "NFLX", "AMD", "ADBE", "CSCO", "PEP", "CMCSA",
		"TMUS", "QCOM", "TXN", "AMGN", "INTU", "INTC", "ISRG", "BKNG",
		"GILD", "ADP", "LRCX", "REGN", "PANW", "SNPS", "KLAC", "VRTX",
		"MNST", "MELI", "ASML", "MU", "PDD", "CDNS", "CTAS", "PYPL",
	},
}

// StaticSymbols returns a copy of the built-in list for scope.
func StaticSymbols(scope domain.IndexScope) []string {
	symbols := staticFallback[scope]
	out := make([]string, len(symbols))
	copy(out, symbols)
	return out
}
