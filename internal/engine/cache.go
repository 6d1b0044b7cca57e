package engine

import (
	"time"

	"github.com/quantfisher/ashare-backtest/internal/pattern"
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// InstrumentCache holds the session-level indicators derived once at
// pre-open so the minute loop never re-derives them per tick. It lives for
// exactly one trading session.
type InstrumentCache struct {
	Code  string
	Daily types.BarSeries // trailing daily window ending the prior session

	LimitUpPrice   float64
	LimitDownPrice float64

	// MA4 and MA9 are the trailing 4- and 9-session close averages used
	// to blend a same-session 5- and 10-period average with the live
	// close. Zero when the daily window is too short.
	MA4 float64
	MA9 float64

	YesterdayVolume       float64
	YesterdayVolumeChange float64
	AvgVolume             float64 // trailing window average
	YesterdayLimitUp      bool

	// BuildDate is the session the current position was opened.
	BuildDate    time.Time
	HasBuildDate bool
}

// buildCache derives the cache entry for one instrument from its daily
// window. The window must end at the prior session; a short window leaves
// the affected fields zeroed and the signal rules fail closed on them.
func buildCache(code string, daily types.BarSeries, avgVolumeWindow int) (*InstrumentCache, error) {
	c := &InstrumentCache{Code: code, Daily: daily}

	last, ok := daily.Latest()
	if !ok {
		return c, nil
	}

	up, err := pattern.LimitPrice(code, last.Close, pattern.LimitUp)
	if err != nil {
		return nil, err
	}
	down, err := pattern.LimitPrice(code, last.Close, pattern.LimitDown)
	if err != nil {
		return nil, err
	}
	c.LimitUpPrice = up
	c.LimitDownPrice = down

	if ma4, err := pattern.MA(daily, 4); err == nil {
		c.MA4 = ma4
	}
	if ma9, err := pattern.MA(daily, 9); err == nil {
		c.MA9 = ma9
	}

	c.YesterdayVolume = last.Volume
	if ratio, err := pattern.VolumeChangeRatio(daily); err == nil {
		c.YesterdayVolumeChange = ratio
	}
	if avg, err := pattern.VolumeAverage(daily, avgVolumeWindow); err == nil {
		c.AvgVolume = avg
	}

	limitUp, err := pattern.IsLimit(code, last.Close, last.PrevClose, pattern.LimitUp, pattern.DefaultTolerance)
	if err != nil {
		return nil, err
	}
	c.YesterdayLimitUp = limitUp

	return c, nil
}
