package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		InitialCash:    100000,
		CommissionRate: 0.0003,
		MinCommission:  5.0,
		TaxRate:        0.001,
	}
}

func tradeTime(day int) time.Time {
	return time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC)
}

func TestLedger_Buy_MinimumCommission(t *testing.T) {
	led := New(testConfig())
	// 100 shares at 10.00: notional 1000, rate commission 0.30, floored to 5.
	err := led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)})
	require.NoError(t, err)

	assert.InDelta(t, 100000-1005.00, led.Cash(), 1e-9)

	txs := led.Transactions()
	require.Len(t, txs, 1)
	assert.InDelta(t, 5.00, txs[0].Commission, 1e-9)
	assert.InDelta(t, 0.0, txs[0].Tax, 1e-9)
}

func TestLedger_Buy_RateCommission(t *testing.T) {
	led := New(testConfig())
	// Notional 50000: rate commission 15, above the floor.
	err := led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 50.00, Volume: 1000, Time: tradeTime(1)})
	require.NoError(t, err)

	txs := led.Transactions()
	require.Len(t, txs, 1)
	assert.InDelta(t, 15.00, txs[0].Commission, 1e-9)
}

func TestLedger_Buy_InsufficientCash(t *testing.T) {
	led := New(Config{InitialCash: 1000, MinCommission: 5})
	err := led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)})
	require.ErrorIs(t, err, ErrInsufficientCash)

	// Rejection leaves the account untouched.
	assert.InDelta(t, 1000.0, led.Cash(), 1e-9)
	assert.Empty(t, led.Transactions())
	_, held := led.Position("600000.SH")
	assert.False(t, held)
}

func TestLedger_Buy_WeightedCostAndLockOverwrite(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 20.00, Volume: 100, Time: tradeTime(2)}))

	pos, ok := led.Position("600000.SH")
	require.True(t, ok)
	assert.InDelta(t, 15.00, pos.CostPrice, 1e-9)
	assert.InDelta(t, 200.0, pos.Volume, 1e-9)
	// The second buy's lock replaces the first, it does not accumulate.
	assert.InDelta(t, 100.0, pos.LockedVolume, 1e-9)
	assert.InDelta(t, 100.0, pos.AvailableVolume(), 1e-9)
}

func TestLedger_Sell_LockedSharesRejected(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))

	cashBefore := led.Cash()
	err := led.Sell(Order{Code: "600000.SH", Action: ActionSell, Price: 11.00, Volume: 100, Time: tradeTime(1)})
	require.ErrorIs(t, err, ErrInsufficientVolume)
	assert.InDelta(t, cashBefore, led.Cash(), 1e-9)
	assert.Len(t, led.Transactions(), 1)
}

func TestLedger_Sell_AfterUnlock(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	led.UnlockAll()

	cashBefore := led.Cash()
	require.NoError(t, led.Sell(Order{Code: "600000.SH", Action: ActionSell, Price: 11.00, Volume: 100, Time: tradeTime(2)}))

	// Notional 1100, commission floored to 5, tax 1.10.
	assert.InDelta(t, cashBefore+1100-5.00-1.10, led.Cash(), 1e-9)

	pos, ok := led.Position("600000.SH")
	require.True(t, ok)
	assert.InDelta(t, 0.0, pos.Volume, 1e-9)
	// Cost price survives the exit until the position is purged.
	assert.InDelta(t, 10.00, pos.CostPrice, 1e-9)
}

func TestLedger_Sell_UnknownInstrument(t *testing.T) {
	led := New(testConfig())
	err := led.Sell(Order{Code: "600000.SH", Action: ActionSell, Price: 11.00, Volume: 100, Time: tradeTime(1)})
	assert.ErrorIs(t, err, ErrInsufficientVolume)
}

func TestLedger_PurgeEmpty(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	led.UnlockAll()
	require.NoError(t, led.Sell(Order{Code: "600000.SH", Action: ActionSell, Price: 11.00, Volume: 100, Time: tradeTime(2)}))

	led.PurgeEmpty()
	_, held := led.Position("600000.SH")
	assert.False(t, held)
	assert.Empty(t, led.HeldCodes())
}

func TestLedger_BuildDate(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 12.00, Volume: 100, Time: tradeTime(3)}))

	when, ok := led.BuildDate("600000.SH")
	require.True(t, ok)
	assert.Equal(t, tradeTime(3), when)

	_, ok = led.BuildDate("000001.SZ")
	assert.False(t, ok)
}

func TestLedger_BuildDate_GoneAfterExit(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	led.UnlockAll()
	require.NoError(t, led.Sell(Order{Code: "600000.SH", Action: ActionSell, Price: 11.00, Volume: 100, Time: tradeTime(2)}))

	_, ok := led.BuildDate("600000.SH")
	assert.False(t, ok)
}

func TestLedger_MarkToMarket(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))

	cashBefore := led.Cash()
	led.MarkToMarket(map[string]float64{"600000.SH": 12.50, "000001.SZ": 9.00})

	assert.InDelta(t, 1250.0, led.PositionValue(), 1e-9)
	assert.InDelta(t, 1000.0, led.PositionCost(), 1e-9)
	assert.InDelta(t, cashBefore, led.Cash(), 1e-9)
	assert.InDelta(t, cashBefore+1250.0, led.TotalAssets(), 1e-9)
}

func TestLedger_TakeSnapshot(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	led.MarkToMarket(map[string]float64{"600000.SH": 10.50})

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := led.TakeSnapshot(day)

	assert.Equal(t, day, snap.TradeDate)
	assert.Equal(t, 1, snap.HeldCount)
	assert.InDelta(t, 1000.0, snap.PositionCost, 1e-9)
	assert.InDelta(t, 1050.0, snap.PositionValue, 1e-9)
	assert.InDelta(t, snap.Cash+snap.PositionValue, snap.TotalAssets, 1e-9)

	require.Len(t, led.EquityCurve(), 1)
	assert.Equal(t, snap, led.EquityCurve()[0])
}

func TestLedger_RecordedActionFollowsMethod(t *testing.T) {
	led := New(testConfig())
	// A mislabeled order must not put the wrong side in the log.
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionSell, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	led.UnlockAll()
	require.NoError(t, led.Sell(Order{Code: "600000.SH", Action: ActionBuy, Price: 11.00, Volume: 100, Time: tradeTime(2)}))

	txs := led.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, ActionBuy, txs[0].Action)
	assert.Equal(t, ActionSell, txs[1].Action)
}

func TestLedger_Transactions_ReturnsCopy(t *testing.T) {
	led := New(testConfig())
	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))

	txs := led.Transactions()
	txs[0].Price = 99.99
	txs[0].Code = "corrupted"

	fresh := led.Transactions()
	assert.Equal(t, "600000.SH", fresh[0].Code)
	assert.InDelta(t, 10.00, fresh[0].Price, 1e-9)
}

func TestLedger_EquityCurve_ReturnsCopy(t *testing.T) {
	led := New(testConfig())
	led.TakeSnapshot(tradeTime(1))

	curve := led.EquityCurve()
	curve[0].TotalAssets = -1

	fresh := led.EquityCurve()
	assert.InDelta(t, led.Cash(), fresh[0].TotalAssets, 1e-9)
}

func TestLedger_TotalProfitRate(t *testing.T) {
	led := New(testConfig())
	assert.InDelta(t, 0.0, led.TotalProfitRate(), 1e-9)

	require.NoError(t, led.Buy(Order{Code: "600000.SH", Action: ActionBuy, Price: 10.00, Volume: 100, Time: tradeTime(1)}))
	led.MarkToMarket(map[string]float64{"600000.SH": 20.00})

	// Assets: 100000 - 1005 + 2000 = 100995.
	assert.InDelta(t, 0.00995, led.TotalProfitRate(), 1e-9)
}
