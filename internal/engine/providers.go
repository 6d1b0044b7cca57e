package engine

import (
	"time"

	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// CalendarProvider supplies the trading-day calendar. Days must come back
// in ascending order.
type CalendarProvider interface {
	TradingDays(start, end time.Time) ([]time.Time, error)
}

// BarProvider supplies historical bars. Implementations must return series
// in ascending timestamp order.
type BarProvider interface {
	// DailyBars returns up to count daily bars per instrument, all
	// strictly before the given session date. The engine relies on this
	// contract to keep pre-open decisions free of look-ahead.
	DailyBars(codes []string, session time.Time, count int) (map[string]types.BarSeries, error)

	// MinuteBars returns the minute bars of one session per instrument.
	MinuteBars(codes []string, session time.Time) (map[string]types.BarSeries, error)
}

// UniverseProvider supplies the tradable instrument universe.
type UniverseProvider interface {
	TradableCodes() ([]string, error)
}
