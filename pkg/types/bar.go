package types

import (
	"fmt"
	"time"
)

// Bar is a single OHLCV bar at daily or minute granularity.
// PrevClose carries the previous period's close so limit prices can be
// derived without reaching outside the bar.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PrevClose float64
	Volume    float64
}

// BarSeries is an ascending, time-ordered sequence of bars for one
// instrument at one granularity. Helpers return sub-slices of the backing
// array; the series is never mutated after construction.
type BarSeries []Bar

// Len returns the number of bars in the series.
func (s BarSeries) Len() int {
	return len(s)
}

// Last returns the trailing n bars, or the whole series when it is shorter.
func (s BarSeries) Last(n int) BarSeries {
	if n <= 0 {
		return BarSeries{}
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// From returns the bars starting at index i through the end.
// An out-of-range index yields an empty series.
func (s BarSeries) From(i int) BarSeries {
	if i < 0 || i >= len(s) {
		return BarSeries{}
	}
	return s[i:]
}

// Through returns the bars whose timestamp is at or before t.
func (s BarSeries) Through(t time.Time) BarSeries {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Timestamp.After(t) {
			return s[:i+1]
		}
	}
	return BarSeries{}
}

// Latest returns the newest bar; ok is false for an empty series.
func (s BarSeries) Latest() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close prices in series order.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volumes in series order.
func (s BarSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}

// Validate checks that timestamps strictly increase and that each bar's
// PrevClose matches the prior bar's close. Data sources are expected to
// guarantee both; a malformed feed fails here instead of skewing indicators.
func (s BarSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Timestamp.After(s[i-1].Timestamp) {
			return fmt.Errorf("bar %d: timestamp %s not after %s",
				i, s[i].Timestamp.Format(time.DateTime), s[i-1].Timestamp.Format(time.DateTime))
		}
		if s[i].PrevClose != s[i-1].Close {
			return fmt.Errorf("bar %d: prev close %.2f does not match prior close %.2f",
				i, s[i].PrevClose, s[i-1].Close)
		}
	}
	return nil
}
