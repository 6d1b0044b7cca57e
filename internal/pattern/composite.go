package pattern

import (
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// ConsolidationOptions tunes the composite consolidation patterns.
type ConsolidationOptions struct {
	// RecentLimitWindow is how many trailing sessions may contain the
	// limit-up day (rule 1).
	RecentLimitWindow int
	// OneBoardWindow is how many trailing sessions must be free of
	// one-line limits (rule 2).
	OneBoardWindow int
	// MinSessionsAfterLimit is how many sessions the limit day must
	// precede the newest bar by (rule 3).
	MinSessionsAfterLimit int
	// Tolerance is the limit-price tolerance band.
	Tolerance float64
	// RequireHistogramRising additionally demands a day-over-day rising
	// oscillator histogram in LimitBoardConsolidation. Off by default;
	// kept as an explicit switch rather than hardcoded behavior.
	RequireHistogramRising bool
}

// DefaultConsolidationOptions returns the standard windows: limit day
// within 5 sessions, no one-line limit within 10, at least 2 sessions of
// consolidation after the limit day.
func DefaultConsolidationOptions() ConsolidationOptions {
	return ConsolidationOptions{
		RecentLimitWindow:     5,
		OneBoardWindow:        10,
		MinSessionsAfterLimit: 2,
		Tolerance:             DefaultTolerance,
	}
}

// FirstBoardConsolidation detects a first board followed by a shrinking
// volume consolidation. Rules run in a fixed short-circuit order; later
// rules assume windows anchored at the limit day found by rule 1:
//
//  1. a limit-up exists in the trailing window and it is a first board
//  2. no one-line limit in the trailing one-board window
//  3. the limit day precedes the newest bar by the minimum session count
//  4. the session after the limit day keeps at least 80% of its volume
//  5. volume shrinks session over session from the day after the limit day
//  6. every bar after the limit day stays within -1%/+6% of the limit close
func FirstBoardConsolidation(code string, series types.BarSeries, opts ConsolidationOptions) (bool, error) {
	idx, err := findRecentFirstBoard(code, series, opts)
	if err != nil || idx < 0 {
		return false, err
	}
	return consolidationAfterLimit(code, series, idx, opts)
}

// LimitBoardConsolidation is the same skeleton as FirstBoardConsolidation
// but accepts a run of up to two consecutive boards at the limit day and
// adds three trend rules on top:
//
//  7. closes never fall more than 0.5% below the limit-day close
//  8. the newest close is above its 30-session moving average
//  9. the moving averages are bullish-stacked
//  10. (optional) the oscillator histogram rose day over day
func LimitBoardConsolidation(code string, series types.BarSeries, opts ConsolidationOptions) (bool, error) {
	idx, err := LastLimitDay(code, series, opts.RecentLimitWindow, opts.Tolerance)
	if err != nil || idx < 0 {
		return false, err
	}
	boards, err := LimitBoardNumber(code, series[:idx+1], opts.Tolerance)
	if err != nil {
		return false, err
	}
	if boards < 1 || boards > 2 {
		return false, nil
	}

	ok, err := consolidationAfterLimit(code, series, idx, opts)
	if err != nil || !ok {
		return false, err
	}

	limitClose := series[idx].Close
	after := series.From(idx + 1)

	// rule 7
	for _, b := range after {
		if b.Close < limitClose*(1-0.005) {
			return false, nil
		}
	}

	// rule 8
	ma30, err := MA(series, 30)
	if err != nil {
		return false, nil
	}
	if series[series.Len()-1].Close <= ma30 {
		return false, nil
	}

	// rule 9
	bullish, err := MABullish(series)
	if err != nil || !bullish {
		return false, err
	}

	// rule 10
	if opts.RequireHistogramRising {
		macd := MACD(series, 12, 26, 9)
		n := len(macd.Histogram)
		if n < 2 || macd.Histogram[n-1] <= macd.Histogram[n-2] {
			return false, nil
		}
	}

	return true, nil
}

// findRecentFirstBoard runs rule 1: locates the most recent limit-up day
// in the trailing window and checks it is a first board.
func findRecentFirstBoard(code string, series types.BarSeries, opts ConsolidationOptions) (int, error) {
	idx, err := LastLimitDay(code, series, opts.RecentLimitWindow, opts.Tolerance)
	if err != nil || idx < 0 {
		return -1, err
	}
	ok, err := IsFirstBoard(code, series[:idx+1], opts.Tolerance)
	if err != nil || !ok {
		return -1, err
	}
	return idx, nil
}

// consolidationAfterLimit runs rules 2 through 6 around the limit day at
// index idx.
func consolidationAfterLimit(code string, series types.BarSeries, idx int, opts ConsolidationOptions) (bool, error) {
	// rule 2
	oneBoard, err := containsOneBoard(code, series, opts.OneBoardWindow, opts.Tolerance)
	if err != nil || oneBoard {
		return false, err
	}

	// rule 3
	if series.Len()-1-idx < opts.MinSessionsAfterLimit {
		return false, nil
	}

	limitBar := series[idx]
	after := series.From(idx + 1)
	if after.Len() == 0 {
		return false, nil
	}

	// rule 4
	if after[0].Volume < limitBar.Volume*0.8 {
		return false, nil
	}

	// rule 5
	if !VolumeDecreasing(after, 0) {
		return false, nil
	}

	// rule 6
	for _, b := range after {
		if b.Low < limitBar.Close*(1-0.01) || b.High > limitBar.Close*(1+0.06) {
			return false, nil
		}
	}

	return true, nil
}
