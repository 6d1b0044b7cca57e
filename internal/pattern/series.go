package pattern

import (
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// LastLimitDay scans the trailing n bars from newest to oldest and returns
// the absolute index of the most recent limit-up bar, or -1 when none
// exists. The newest-first scan order is a contract: callers rely on
// getting the most recent limit day, not just any.
func LastLimitDay(code string, series types.BarSeries, n int, tolerance float64) (int, error) {
	start := series.Len() - n
	if start < 0 {
		start = 0
	}
	for i := series.Len() - 1; i >= start; i-- {
		ok, err := IsLimit(code, series[i].Close, series[i].PrevClose, LimitUp, tolerance)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// IsFirstBoard reports whether the series ends on a first board: the last
// bar is limit-up and the bar before it is not. A series shorter than 2
// bars is not a first board (fail-closed, not an error).
func IsFirstBoard(code string, series types.BarSeries, tolerance float64) (bool, error) {
	if series.Len() < 2 {
		return false, nil
	}
	last := series[series.Len()-1]
	prev := series[series.Len()-2]

	ok, err := IsLimit(code, last.Close, last.PrevClose, LimitUp, tolerance)
	if err != nil || !ok {
		return false, err
	}
	ok, err = IsLimit(code, prev.Close, prev.PrevClose, LimitUp, tolerance)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// LimitBoardNumber counts the consecutive limit-up bars ending at the last
// bar of the series: 1 for a first board, 2 for a second board, and so on.
// 0 means the last bar is not limit-up.
func LimitBoardNumber(code string, series types.BarSeries, tolerance float64) (int, error) {
	count := 0
	for i := series.Len() - 1; i >= 0; i-- {
		ok, err := IsLimit(code, series[i].Close, series[i].PrevClose, LimitUp, tolerance)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		count++
	}
	return count, nil
}

// containsOneBoard reports whether any bar in the trailing m bars is a
// one-line limit-up.
func containsOneBoard(code string, series types.BarSeries, m int, tolerance float64) (bool, error) {
	for _, b := range series.Last(m) {
		ok, err := IsOneBoard(code, b.Close, b.PrevClose, b.Low, b.High, LimitUp, tolerance)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
