package engine

import (
	"sort"
	"time"

	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// MinuteSnapshot is one minute of the intraday loop: for every instrument
// present, the cumulative bars from the session open through this minute.
type MinuteSnapshot struct {
	Minute time.Time
	Bars   map[string]types.BarSeries
}

// BuildMinuteSnapshots aligns per-instrument minute series onto the union
// of their timestamps, ascending. At each minute an instrument contributes
// its bars from the open through that minute; instruments with no bar at
// or before the minute are absent from the snapshot.
func BuildMinuteSnapshots(minuteBars map[string]types.BarSeries) []MinuteSnapshot {
	seen := make(map[time.Time]struct{})
	for _, series := range minuteBars {
		for _, b := range series {
			seen[b.Timestamp] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	minutes := make([]time.Time, 0, len(seen))
	for t := range seen {
		minutes = append(minutes, t)
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i].Before(minutes[j]) })

	snapshots := make([]MinuteSnapshot, 0, len(minutes))
	for _, minute := range minutes {
		snap := MinuteSnapshot{Minute: minute, Bars: make(map[string]types.BarSeries)}
		for code, series := range minuteBars {
			bars := series.Through(minute)
			if bars.Len() > 0 {
				snap.Bars[code] = bars
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}

// sortedCodes returns the snapshot's instrument codes in a deterministic
// order for the evaluation loop.
func sortedCodes(bars map[string]types.BarSeries) []string {
	codes := make([]string, 0, len(bars))
	for code := range bars {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
