package engine

import (
	"time"

	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// dailySeries builds a daily window from closes with a consistent
// prev-close chain. The first bar's prev close equals its close.
func dailySeries(start time.Time, closes ...float64) types.BarSeries {
	series := make(types.BarSeries, len(closes))
	prev := 0.0
	for i, c := range closes {
		if i == 0 {
			prev = c
		}
		series[i] = types.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      prev,
			High:      c + 0.05,
			Low:       c - 0.05,
			Close:     c,
			PrevClose: prev,
			Volume:    1000,
		}
		prev = c
	}
	return series
}

func minuteBar(ts time.Time, open, high, low, close float64) types.Bar {
	return types.Bar{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		PrevClose: open,
		Volume:    100,
	}
}

func minuteAt(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}

// Stub providers backed by fixed maps.

type stubCalendar struct {
	days []time.Time
}

func (c *stubCalendar) TradingDays(start, end time.Time) ([]time.Time, error) {
	var days []time.Time
	for _, d := range c.days {
		if !d.Before(start) && !d.After(end) {
			days = append(days, d)
		}
	}
	return days, nil
}

type stubBars struct {
	daily  map[string]types.BarSeries
	minute map[string]map[string]types.BarSeries // key: session date
}

func (b *stubBars) DailyBars(codes []string, session time.Time, count int) (map[string]types.BarSeries, error) {
	out := make(map[string]types.BarSeries, len(codes))
	for _, code := range codes {
		series, ok := b.daily[code]
		if !ok {
			continue
		}
		window := series.Through(session.Add(-time.Nanosecond)).Last(count)
		if window.Len() > 0 {
			out[code] = window
		}
	}
	return out, nil
}

func (b *stubBars) MinuteBars(codes []string, session time.Time) (map[string]types.BarSeries, error) {
	byCode := b.minute[session.Format("2006-01-02")]
	out := make(map[string]types.BarSeries, len(codes))
	for _, code := range codes {
		if series, ok := byCode[code]; ok {
			out[code] = series
		}
	}
	return out, nil
}

type stubUniverse struct {
	codes []string
}

func (u *stubUniverse) TradableCodes() ([]string, error) {
	return u.codes, nil
}
