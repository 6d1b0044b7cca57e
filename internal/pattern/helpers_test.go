package pattern

import (
	"time"

	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// barsFromCloses builds a daily series from close prices, maintaining the
// PrevClose chain. Lows and highs straddle the close by 0.05 and volumes
// default to 1000; tests adjust fields directly where a case needs it.
func barsFromCloses(closes ...float64) types.BarSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(types.BarSeries, len(closes))
	prev := closes[0]
	for i, c := range closes {
		if i > 0 {
			prev = closes[i-1]
		}
		series[i] = types.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      prev,
			High:      c + 0.05,
			Low:       c - 0.05,
			Close:     c,
			PrevClose: prev,
			Volume:    1000,
		}
	}
	return series
}
