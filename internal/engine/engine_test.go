package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfisher/ashare-backtest/internal/ledger"
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

func alwaysBuy(c *InstrumentCache, intraday types.BarSeries) *Signal {
	cur, ok := intraday.Latest()
	if !ok {
		return nil
	}
	return &Signal{Action: ledger.ActionBuy, Code: c.Code, Price: cur.Close, Time: cur.Timestamp, Reason: "test entry"}
}

func alwaysSell(c *InstrumentCache, intraday types.BarSeries, _ ledger.Position) *Signal {
	cur, ok := intraday.Latest()
	if !ok {
		return nil
	}
	return &Signal{Action: ledger.ActionSell, Code: c.Code, Price: cur.Close, Time: cur.Timestamp, Reason: "test exit"}
}

func testEngineConfig(start, end time.Time) Config {
	cfg := DefaultConfig()
	cfg.StartDate = start
	cfg.EndDate = end
	return cfg
}

func TestEngine_Run_BuyThenSell(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	code := "600000.SH"
	histStart := time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)
	bars := &stubBars{
		daily: map[string]types.BarSeries{
			code: dailySeries(histStart, 9.80, 9.90, 10.00),
		},
		minute: map[string]map[string]types.BarSeries{
			day1.Format("2006-01-02"): {
				code: {minuteBar(minuteAt(day1, 9, 31), 10.00, 10.05, 9.95, 10.00)},
			},
			day2.Format("2006-01-02"): {
				code: {minuteBar(minuteAt(day2, 9, 31), 10.90, 11.05, 10.85, 11.00)},
			},
			// No minute data on day 3: the session settles without trades.
		},
	}

	led := ledger.New(ledger.Config{
		InitialCash:    1000000,
		CommissionRate: 0.0003,
		MinCommission:  5.0,
		TaxRate:        0.001,
	})
	eng := New(testEngineConfig(day1, day3),
		&stubCalendar{days: []time.Time{day1, day2, day3}},
		bars, &stubUniverse{codes: []string{code}}, led, nil)
	eng.SetCandidateFilter(func(string, types.BarSeries) (bool, error) { return true, nil })
	eng.SetBuyRule(alwaysBuy)
	eng.SetSellRule(alwaysSell)

	res, err := eng.Run()
	require.NoError(t, err)

	// 50000 order cash at 10.00 buys 50 lots of 100 shares.
	txs := res.Transactions
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.ActionBuy, txs[0].Action)
	assert.InDelta(t, 10.00, txs[0].Price, 1e-9)
	assert.InDelta(t, 5000.0, txs[0].Volume, 1e-9)
	assert.InDelta(t, 15.00, txs[0].Commission, 1e-9)

	// T+1: the buy stays locked on day 1, the exit lands on day 2.
	assert.Equal(t, ledger.ActionSell, txs[1].Action)
	assert.Equal(t, day2.Day(), txs[1].Time.Day())
	assert.InDelta(t, 11.00, txs[1].Price, 1e-9)
	assert.InDelta(t, 5000.0, txs[1].Volume, 1e-9)
	assert.InDelta(t, 16.50, txs[1].Commission, 1e-9)
	assert.InDelta(t, 55.00, txs[1].Tax, 1e-9)

	require.Len(t, res.EquityCurve, 3)
	assert.InDelta(t, 999985.00, res.EquityCurve[0].TotalAssets, 1e-6)
	assert.InDelta(t, 1004913.50, res.EquityCurve[1].TotalAssets, 1e-6)
	// The empty session carries the valuation forward.
	assert.InDelta(t, 1004913.50, res.EquityCurve[2].TotalAssets, 1e-6)
	assert.Equal(t, 1, res.EquityCurve[0].HeldCount)
	assert.Equal(t, 0, res.EquityCurve[1].HeldCount)

	require.Len(t, res.Summary.RoundTrips, 1)
	assert.InDelta(t, 4913.50, res.Summary.RoundTrips[0].Profit, 1e-6)
	assert.InDelta(t, 100.0, res.Summary.WinRate, 1e-9)
	assert.InDelta(t, 31.50, res.Summary.TotalCommission, 1e-9)
	assert.InDelta(t, 55.00, res.Summary.TotalTax, 1e-9)
	assert.Equal(t, 1, res.Summary.MaxHeldCount)
}

func TestEngine_Run_RejectedBuyDoesNotAbort(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	code := "600000.SH"
	histStart := time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)
	bars := &stubBars{
		daily: map[string]types.BarSeries{
			code: dailySeries(histStart, 9.80, 9.90, 10.00),
		},
		minute: map[string]map[string]types.BarSeries{
			day.Format("2006-01-02"): {
				code: {minuteBar(minuteAt(day, 9, 31), 10.00, 10.05, 9.95, 10.00)},
			},
		},
	}

	// Far too little cash for a 50000 order.
	led := ledger.New(ledger.Config{InitialCash: 1000, MinCommission: 5.0})
	eng := New(testEngineConfig(day, day),
		&stubCalendar{days: []time.Time{day}},
		bars, &stubUniverse{codes: []string{code}}, led, nil)
	eng.SetCandidateFilter(func(string, types.BarSeries) (bool, error) { return true, nil })
	eng.SetBuyRule(alwaysBuy)

	res, err := eng.Run()
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	require.Len(t, res.EquityCurve, 1)
	assert.InDelta(t, 1000.0, res.EquityCurve[0].TotalAssets, 1e-9)
}

func TestEngine_Run_FilterFaultSkipsInstrument(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	histStart := time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)
	bars := &stubBars{
		daily: map[string]types.BarSeries{
			"600000.SH": dailySeries(histStart, 9.80, 9.90, 10.00),
			"000001.SZ": dailySeries(histStart, 8.00, 8.10, 8.20),
		},
		minute: map[string]map[string]types.BarSeries{
			day.Format("2006-01-02"): {
				"000001.SZ": {minuteBar(minuteAt(day, 9, 31), 8.20, 8.25, 8.15, 8.20)},
			},
		},
	}

	led := ledger.New(ledger.Config{InitialCash: 1000000, CommissionRate: 0.0003, MinCommission: 5.0})
	eng := New(testEngineConfig(day, day),
		&stubCalendar{days: []time.Time{day}},
		bars, &stubUniverse{codes: []string{"000001.SZ", "600000.SH"}}, led, nil)
	eng.SetCandidateFilter(func(code string, _ types.BarSeries) (bool, error) {
		if code == "600000.SH" {
			return false, assert.AnError
		}
		return true, nil
	})
	eng.SetBuyRule(alwaysBuy)

	res, err := eng.Run()
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "000001.SZ", res.Transactions[0].Code)
}

func TestEngine_Run_PriceBand(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	histStart := time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)
	bars := &stubBars{
		daily: map[string]types.BarSeries{
			"600000.SH": dailySeries(histStart, 9.80, 9.90, 10.00),
		},
		minute: map[string]map[string]types.BarSeries{
			day.Format("2006-01-02"): {
				"600000.SH": {minuteBar(minuteAt(day, 9, 31), 10.00, 10.05, 9.95, 10.00)},
			},
		},
	}

	cfg := testEngineConfig(day, day)
	cfg.MinPrice = 20.00 // last close of 10.00 is below the band

	led := ledger.New(ledger.Config{InitialCash: 1000000, MinCommission: 5.0})
	eng := New(cfg, &stubCalendar{days: []time.Time{day}},
		bars, &stubUniverse{codes: []string{"600000.SH"}}, led, nil)
	eng.SetCandidateFilter(func(string, types.BarSeries) (bool, error) { return true, nil })
	eng.SetBuyRule(alwaysBuy)

	res, err := eng.Run()
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
}

func TestEngine_Run_NoTradingDays(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	led := ledger.New(ledger.Config{InitialCash: 1000})
	eng := New(testEngineConfig(day, day), &stubCalendar{}, &stubBars{}, &stubUniverse{}, led, nil)

	_, err := eng.Run()
	assert.Error(t, err)
}
