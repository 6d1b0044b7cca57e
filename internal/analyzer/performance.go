package analyzer

import (
	"sort"

	"github.com/quantfisher/ashare-backtest/internal/ledger"
)

// RoundTrip is the realized result of a matched buy-then-sell sequence for
// one instrument.
type RoundTrip struct {
	Code       string
	BuyCost    float64 // sum of buy notionals plus buy commissions
	SellIncome float64 // sum of sell notionals minus sell commissions and taxes
	Profit     float64
	ReturnRate float64 // percent
}

// Summary aggregates a full backtest run.
type Summary struct {
	RoundTrips      []RoundTrip
	WinRate         float64 // percent, over completed round trips
	MaxDrawdown     float64 // percent, from the equity curve
	TotalTrades     int
	TotalCommission float64
	TotalTax        float64
	MaxHeldCount    int
	FinalAssets     float64
	TotalReturn     float64 // percent, relative to the first snapshot
}

// RoundTrips groups transactions by instrument and computes realized P&L
// for every instrument that has both a buy and a sell. Instruments with
// only one side are open positions, not round trips, and are skipped.
func RoundTrips(transactions []ledger.Transaction) []RoundTrip {
	type sides struct {
		buyCost    float64
		sellIncome float64
		hasBuy     bool
		hasSell    bool
	}
	byCode := make(map[string]*sides)
	order := make([]string, 0)
	for _, tx := range transactions {
		s, ok := byCode[tx.Code]
		if !ok {
			s = &sides{}
			byCode[tx.Code] = s
			order = append(order, tx.Code)
		}
		switch tx.Action {
		case ledger.ActionBuy:
			s.buyCost += tx.Price*tx.Volume + tx.Commission
			s.hasBuy = true
		case ledger.ActionSell:
			s.sellIncome += tx.Price*tx.Volume - tx.Commission - tx.Tax
			s.hasSell = true
		}
	}
	sort.Strings(order)

	trips := make([]RoundTrip, 0, len(order))
	for _, code := range order {
		s := byCode[code]
		if !s.hasBuy || !s.hasSell {
			continue
		}
		profit := s.sellIncome - s.buyCost
		rate := 0.0
		if s.buyCost != 0 {
			rate = profit / s.buyCost * 100
		}
		trips = append(trips, RoundTrip{
			Code:       code,
			BuyCost:    s.buyCost,
			SellIncome: s.sellIncome,
			Profit:     profit,
			ReturnRate: rate,
		})
	}
	return trips
}

// WinRate is the share of round trips with a positive return, in percent.
func WinRate(trips []RoundTrip) float64 {
	if len(trips) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trips {
		if t.ReturnRate > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trips)) * 100
}

// MaxDrawdown walks the equity curve tracking the running peak and returns
// the largest peak-to-trough decline as a percentage of the peak.
func MaxDrawdown(curve []ledger.AccountSnapshot) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, snap := range curve {
		if snap.TotalAssets > peak {
			peak = snap.TotalAssets
		}
		if peak > 0 {
			dd := (peak - snap.TotalAssets) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// Analyze derives the full summary from a ledger's transaction log and
// equity curve. It never mutates ledger state.
func Analyze(transactions []ledger.Transaction, curve []ledger.AccountSnapshot) Summary {
	trips := RoundTrips(transactions)

	sum := Summary{
		RoundTrips:  trips,
		WinRate:     WinRate(trips),
		MaxDrawdown: MaxDrawdown(curve),
		TotalTrades: len(transactions),
	}
	for _, tx := range transactions {
		sum.TotalCommission += tx.Commission
		sum.TotalTax += tx.Tax
	}
	for _, snap := range curve {
		if snap.HeldCount > sum.MaxHeldCount {
			sum.MaxHeldCount = snap.HeldCount
		}
	}
	if len(curve) > 0 {
		first := curve[0].TotalAssets
		last := curve[len(curve)-1].TotalAssets
		sum.FinalAssets = last
		if first > 0 {
			sum.TotalReturn = (last/first - 1) * 100
		}
	}
	return sum
}
