package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfisher/ashare-backtest/pkg/types"
)

func TestBuildMinuteSnapshots_AlignsOnUnionOfMinutes(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := map[string]types.BarSeries{
		"600000.SH": {
			minuteBar(minuteAt(day, 9, 31), 10.0, 10.1, 9.9, 10.0),
			minuteBar(minuteAt(day, 9, 32), 10.0, 10.2, 10.0, 10.1),
			minuteBar(minuteAt(day, 9, 33), 10.1, 10.3, 10.1, 10.2),
		},
		"000001.SZ": {
			minuteBar(minuteAt(day, 9, 32), 8.0, 8.1, 7.9, 8.0),
			minuteBar(minuteAt(day, 9, 34), 8.0, 8.2, 8.0, 8.1),
		},
	}

	snaps := BuildMinuteSnapshots(bars)
	require.Len(t, snaps, 4)

	assert.Equal(t, minuteAt(day, 9, 31), snaps[0].Minute)
	assert.Len(t, snaps[0].Bars["600000.SH"], 1)
	assert.NotContains(t, snaps[0].Bars, "000001.SZ")

	assert.Equal(t, minuteAt(day, 9, 32), snaps[1].Minute)
	assert.Len(t, snaps[1].Bars["600000.SH"], 2)
	assert.Len(t, snaps[1].Bars["000001.SZ"], 1)

	// 9:33 has no bar for 000001.SZ; it still contributes its cumulative
	// bars through that minute.
	assert.Len(t, snaps[2].Bars["600000.SH"], 3)
	assert.Len(t, snaps[2].Bars["000001.SZ"], 1)

	assert.Equal(t, minuteAt(day, 9, 34), snaps[3].Minute)
	assert.Len(t, snaps[3].Bars["600000.SH"], 3)
	assert.Len(t, snaps[3].Bars["000001.SZ"], 2)
}

func TestBuildMinuteSnapshots_Empty(t *testing.T) {
	assert.Nil(t, BuildMinuteSnapshots(nil))
	assert.Nil(t, BuildMinuteSnapshots(map[string]types.BarSeries{"600000.SH": {}}))
}

func TestSortedCodes(t *testing.T) {
	codes := sortedCodes(map[string]types.BarSeries{
		"600000.SH": {},
		"000001.SZ": {},
		"300750.SZ": {},
	})
	assert.Equal(t, []string{"000001.SZ", "300750.SZ", "600000.SH"}, codes)
}
