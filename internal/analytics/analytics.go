// Package analytics implements the numeric engine for cross-asset
// statistics: daily returns, Pearson correlation, lag-shifted and
// rolling correlation, and trailing expected-move estimation. All
// functions are pure and never perform I/O; malformed market data is
// rejected upstream at the provider boundary.
package analytics

import (
	"math"
	"sort"

	"corrpulse/pkg/contracts/domain"
)

// DefaultRollingWindow is the trailing window length used by
// RollingCorrelation when the caller does not specify one.
const DefaultRollingWindow = 60

// expectedMoveWindow is the number of trailing range ratios averaged
// by CalculateExpectedMove. A series needs at least window+1 candles
// before any estimate is produced.
const expectedMoveWindow = 20

// topLagPairs caps how many leader/follower pairs a LagResult reports.
const topLagPairs = 12

// AlignedSeries restricts multiple return series to their common date
// intersection. Every value slice has exactly len(Dates) entries, in
// date order.
type AlignedSeries struct {
	Symbols []string
	Dates   []string
	Values  map[string][]float64
}

// ToDailyReturns converts a candle series into day-over-day simple
// returns. Candles are sorted by date first; a transition whose
// previous close is exactly zero is skipped rather than emitted as
// zero or an error. The first candle never produces a return, so the
// output holds at most len(candles)-1 points. Calendar gaps between
// adjacent candles are ignored; a return is stamped with the later
// candle's date.
func ToDailyReturns(candles []domain.Candle) []domain.ReturnPoint {
	sorted := make([]domain.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	var returns []domain.ReturnPoint
	for i := 1; i < len(sorted); i++ {
		prevClose := sorted[i-1].Close
		if prevClose == 0 {
			continue
		}
		returns = append(returns, domain.ReturnPoint{
			Date:  sorted[i].Date,
			Value: (sorted[i].Close - prevClose) / prevClose,
		})
	}
	return returns
}

// PearsonCorrelation computes the product-moment correlation of two
// equal-length series. Degenerate input (length mismatch, fewer than
// two points, or zero variance in either series) yields 0, never NaN.
func PearsonCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}

	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var numerator, sumSqA, sumSqB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		numerator += da * db
		sumSqA += da * da
		sumSqB += db * db
	}

	denom := math.Sqrt(sumSqA) * math.Sqrt(sumSqB)
	if denom == 0 {
		return 0
	}
	return numerator / denom
}

// AlignSeriesByDate intersects the dates present in every symbol's
// return series and rebuilds each series over that common, ascending
// date set. An empty input map yields empty outputs. Symbols are
// reported in ascending order so downstream matrices are
// deterministic regardless of fetch completion order.
func AlignSeriesByDate(series map[string][]domain.ReturnPoint) AlignedSeries {
	if len(series) == 0 {
		return AlignedSeries{Symbols: []string{}, Dates: []string{}, Values: map[string][]float64{}}
	}

	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	common := make(map[string]bool)
	for _, point := range series[symbols[0]] {
		common[point.Date] = true
	}
	for _, symbol := range symbols[1:] {
		present := make(map[string]bool, len(series[symbol]))
		for _, point := range series[symbol] {
			present[point.Date] = true
		}
		for date := range common {
			if !present[date] {
				delete(common, date)
			}
		}
	}

	dates := make([]string, 0, len(common))
	for date := range common {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	values := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		byDate := make(map[string]float64, len(series[symbol]))
		for _, point := range series[symbol] {
			byDate[point.Date] = point.Value
		}
		aligned := make([]float64, len(dates))
		for i, date := range dates {
			aligned[i] = byDate[date]
		}
		values[symbol] = aligned
	}

	return AlignedSeries{Symbols: symbols, Dates: dates, Values: values}
}

// BuildCorrelationMatrix produces the full symbols x symbols cross
// product over aligned return vectors. Diagonal cells are forced to
// exactly 1 and never computed.
func BuildCorrelationMatrix(symbols []string, values map[string][]float64) []domain.CorrCell {
	cells := make([]domain.CorrCell, 0, len(symbols)*len(symbols))
	for _, x := range symbols {
		for _, y := range symbols {
			if x == y {
				cells = append(cells, domain.CorrCell{X: x, Y: y, Value: 1})
				continue
			}
			cells = append(cells, domain.CorrCell{
				X:     x,
				Y:     y,
				Value: PearsonCorrelation(values[x], values[y]),
			})
		}
	}
	return cells
}

// CalculateExpectedMove estimates a one-day move from the trailing
// average of (high-low)/prevClose ratios. It requires at least 21
// candles after sorting and 20 valid ratios; otherwise both outputs
// are zero. The percentage applies to the latest close for the
// absolute estimate.
func CalculateExpectedMove(candles []domain.Candle) domain.ExpectedMove {
	if len(candles) < expectedMoveWindow+1 {
		return domain.ExpectedMove{}
	}

	sorted := make([]domain.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	var ratios []float64
	for i := 1; i < len(sorted); i++ {
		prevClose := sorted[i-1].Close
		if prevClose == 0 {
			continue
		}
		ratios = append(ratios, (sorted[i].High-sorted[i].Low)/prevClose)
	}

	if len(ratios) < expectedMoveWindow {
		return domain.ExpectedMove{}
	}
	trailing := ratios[len(ratios)-expectedMoveWindow:]

	var sum float64
	for _, ratio := range trailing {
		sum += ratio
	}
	pct := sum / float64(len(trailing)) * 100

	latestClose := sorted[len(sorted)-1].Close
	return domain.ExpectedMove{
		ExpectedMovePct: pct,
		ExpectedMoveAbs: latestClose * pct / 100,
	}
}

// ComputeLaggedCorrelation correlates a leader series against a
// follower series shifted lag days later: the leader loses its last
// lag points, the follower its first lag points. Returns 0 unless
// lag >= 1 and both series are longer than lag.
func ComputeLaggedCorrelation(leader, follower []float64, lag int) float64 {
	if lag < 1 || len(leader) <= lag || len(follower) <= lag {
		return 0
	}
	return PearsonCorrelation(leader[:len(leader)-lag], follower[lag:])
}

// BuildLaggedResults evaluates the full cross product at each
// requested lag. Diagonal cells are 1; all non-self pairs compete for
// the top slots by descending absolute correlation.
func BuildLaggedResults(symbols []string, values map[string][]float64, lags []int) []domain.LagResult {
	results := make([]domain.LagResult, 0, len(lags))

	for _, lagDays := range lags {
		matrix := make([]domain.CorrCell, 0, len(symbols)*len(symbols))
		var candidates []domain.LagPair

		for _, x := range symbols {
			for _, y := range symbols {
				if x == y {
					matrix = append(matrix, domain.CorrCell{X: x, Y: y, Value: 1})
					continue
				}
				corr := ComputeLaggedCorrelation(values[x], values[y], lagDays)
				matrix = append(matrix, domain.CorrCell{X: x, Y: y, Value: corr})
				candidates = append(candidates, domain.LagPair{Leader: x, Follower: y, Corr: corr})
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return math.Abs(candidates[i].Corr) > math.Abs(candidates[j].Corr)
		})
		if len(candidates) > topLagPairs {
			candidates = candidates[:topLagPairs]
		}

		results = append(results, domain.LagResult{
			LagDays:         lagDays,
			Matrix:          matrix,
			TopLeadLagPairs: candidates,
		})
	}

	return results
}

// RollingCorrelation aligns two return series by their common dates
// and emits one Pearson correlation per trailing window, stamped at
// the window's last date. Series shorter than the window produce no
// points.
func RollingCorrelation(left, right []domain.ReturnPoint, window int) []domain.RollingPoint {
	if window <= 0 {
		window = DefaultRollingWindow
	}

	leftByDate := make(map[string]float64, len(left))
	for _, point := range left {
		leftByDate[point.Date] = point.Value
	}
	rightByDate := make(map[string]float64, len(right))
	for _, point := range right {
		rightByDate[point.Date] = point.Value
	}

	dates := make([]string, 0, len(leftByDate))
	for date := range leftByDate {
		if _, ok := rightByDate[date]; ok {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	alignedLeft := make([]float64, len(dates))
	alignedRight := make([]float64, len(dates))
	for i, date := range dates {
		alignedLeft[i] = leftByDate[date]
		alignedRight[i] = rightByDate[date]
	}

	var points []domain.RollingPoint
	for i := window - 1; i < len(dates); i++ {
		points = append(points, domain.RollingPoint{
			Date:  dates[i],
			Value: PearsonCorrelation(alignedLeft[i-window+1:i+1], alignedRight[i-window+1:i+1]),
		})
	}
	return points
}
