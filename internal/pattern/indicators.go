package pattern

import (
	"errors"

	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// ErrInsufficientBars is returned by indicator calculations that need more
// history than the series provides.
var ErrInsufficientBars = errors.New("insufficient bars for calculation")

// MA computes the simple moving average of close over the trailing period
// bars, rounded to 2 decimal places.
func MA(series types.BarSeries, period int) (float64, error) {
	if period <= 0 || series.Len() < period {
		return 0, ErrInsufficientBars
	}
	sum := 0.0
	for i := series.Len() - period; i < series.Len(); i++ {
		sum += series[i].Close
	}
	return round2(sum / float64(period)), nil
}

// MABullish reports whether the moving averages are bullish-stacked:
// MA5 > MA10 > MA20 > MA30. Fails closed on a short series.
func MABullish(series types.BarSeries) (bool, error) {
	ma5, err := MA(series, 5)
	if err != nil {
		return false, nil
	}
	ma10, err := MA(series, 10)
	if err != nil {
		return false, nil
	}
	ma20, err := MA(series, 20)
	if err != nil {
		return false, nil
	}
	ma30, err := MA(series, 30)
	if err != nil {
		return false, nil
	}
	return ma5 > ma10 && ma10 > ma20 && ma20 > ma30, nil
}

// MACDResult holds the dual-EMA oscillator lines, one value per bar.
type MACDResult struct {
	DIF       []float64 // fast EMA - slow EMA
	DEA       []float64 // signal line, EMA of DIF
	Histogram []float64 // DIF - DEA
}

// MACD computes the dual-EMA oscillator over the series closes. The EMAs
// are seeded with the first value rather than padded with look-back data,
// so early values are biased toward the series start.
func MACD(series types.BarSeries, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	closes := series.Closes()
	n := len(closes)
	res := MACDResult{
		DIF:       make([]float64, n),
		DEA:       make([]float64, n),
		Histogram: make([]float64, n),
	}
	if n == 0 {
		return res
	}
	fast := ewma(closes, fastPeriod)
	slow := ewma(closes, slowPeriod)
	for i := 0; i < n; i++ {
		res.DIF[i] = fast[i] - slow[i]
	}
	res.DEA = ewma(res.DIF, signalPeriod)
	for i := 0; i < n; i++ {
		res.Histogram[i] = res.DIF[i] - res.DEA[i]
	}
	return res
}

// ewma computes a recursive exponential moving average with alpha
// 2/(period+1), seeded with the first value.
func ewma(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// VolumeDecreasing reports whether volume shrinks bar over bar across the
// whole window: every bar's volume must be at most the prior bar's scaled
// by (1 - allowedRatio). Windows shorter than 2 bars fail closed.
func VolumeDecreasing(series types.BarSeries, allowedRatio float64) bool {
	if series.Len() < 2 {
		return false
	}
	for i := 1; i < series.Len(); i++ {
		if series[i].Volume > series[i-1].Volume*(1-allowedRatio) {
			return false
		}
	}
	return true
}

// VolumeAverage computes the mean volume over the trailing period bars.
func VolumeAverage(series types.BarSeries, period int) (float64, error) {
	if period <= 0 || series.Len() < period {
		return 0, ErrInsufficientBars
	}
	sum := 0.0
	for i := series.Len() - period; i < series.Len(); i++ {
		sum += series[i].Volume
	}
	return sum / float64(period), nil
}

// VolumeChangeRatio returns the last bar's volume relative to the bar
// before it, minus 1. A zero prior volume is a data-quality fault.
func VolumeChangeRatio(series types.BarSeries) (float64, error) {
	if series.Len() < 2 {
		return 0, ErrInsufficientBars
	}
	prev := series[series.Len()-2].Volume
	if prev == 0 {
		return 0, errors.New("previous volume is zero")
	}
	return series[series.Len()-1].Volume/prev - 1, nil
}
