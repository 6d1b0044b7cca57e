package engine

import (
	"time"

	"github.com/quantfisher/ashare-backtest/internal/ledger"
	"github.com/quantfisher/ashare-backtest/pkg/types"
)

// Signal is a tagged trade decision. A nil *Signal means no signal. The
// engine fills Volume before submitting to the ledger: lot-sized from the
// configured order cash for buys, the full available volume for sells.
type Signal struct {
	Action ledger.Action
	Code   string
	Price  float64
	Volume float64
	Time   time.Time
	Reason string
}

// BuyRule evaluates a buy candidate against its session cache and the
// cumulative intraday bars up to the current minute.
type BuyRule func(cache *InstrumentCache, intraday types.BarSeries) *Signal

// SellRule evaluates a held position for an exit.
type SellRule func(cache *InstrumentCache, intraday types.BarSeries, pos ledger.Position) *Signal

// ApexRule is the intraday oscillator-apex hook of the default sell rule.
// No dependable reference logic exists for it, so the default is nil,
// which evaluates to false.
type ApexRule func(cache *InstrumentCache, intraday types.BarSeries) bool

// DefaultBuyRule buys on a pullback to the blended 5-period average:
// (MA4*4 + close)/5 must sit at or above the minute low (minus the
// tolerance) while the session opened at or above it.
func DefaultBuyRule(tolerance float64) BuyRule {
	return func(c *InstrumentCache, intraday types.BarSeries) *Signal {
		cur, ok := intraday.Latest()
		if !ok || c.MA4 == 0 {
			return nil
		}
		blended := (c.MA4*4 + cur.Close) / 5
		sessionOpen := intraday[0].Open
		if blended >= cur.Low-tolerance && sessionOpen >= blended {
			return &Signal{
				Action: ledger.ActionBuy,
				Code:   c.Code,
				Price:  cur.Close,
				Time:   cur.Timestamp,
				Reason: "pullback to blended 5-period average",
			}
		}
		return nil
	}
}

// DefaultSellRule combines the exit sub-signals as
// ((s1 or s2 or s3 or s4) and s5) or s6, shielded while the instrument
// trades at its up-limit: never sell into an active limit-up.
//
//	s1: close below the blended 10-period average
//	s2: yesterday's volume surged over 10% and exceeded the trailing average
//	s3: yesterday was a limit-up session
//	s4: today's high touched within 9% of the up-limit but the close fell back
//	s5: intraday oscillator apex (apex hook; false when nil)
//	s6: opened at the up-limit but the close has fallen below it
func DefaultSellRule(tolerance float64, apex ApexRule) SellRule {
	return func(c *InstrumentCache, intraday types.BarSeries, pos ledger.Position) *Signal {
		cur, ok := intraday.Latest()
		if !ok || c.LimitUpPrice == 0 {
			return nil
		}

		// Shield: currently at the up-limit.
		if cur.Close >= c.LimitUpPrice-tolerance {
			return nil
		}

		sessionOpen := intraday[0].Open
		sessionHigh := 0.0
		for _, b := range intraday {
			if b.High > sessionHigh {
				sessionHigh = b.High
			}
		}

		s1 := false
		if c.MA9 > 0 {
			blended := (c.MA9*9 + cur.Close) / 10
			s1 = cur.Close < blended
		}
		s2 := c.YesterdayVolumeChange > 0.10 && c.YesterdayVolume > c.AvgVolume
		s3 := c.YesterdayLimitUp
		s4 := sessionHigh >= c.LimitUpPrice*(1-0.09) && cur.Close < c.LimitUpPrice
		s5 := apex != nil && apex(c, intraday)
		s6 := sessionOpen >= c.LimitUpPrice && cur.Close < c.LimitUpPrice

		if ((s1 || s2 || s3 || s4) && s5) || s6 {
			return &Signal{
				Action: ledger.ActionSell,
				Code:   c.Code,
				Price:  cur.Close,
				Time:   cur.Timestamp,
				Reason: "exit rule",
			}
		}
		return nil
	}
}
