package pattern

import (
	"errors"
	"math"

	"github.com/quantfisher/ashare-backtest/internal/market"
)

// Direction selects which side of the daily move limit a check applies to.
type Direction int

const (
	LimitUp Direction = iota
	LimitDown
)

// DefaultTolerance absorbs the rounding noise of exchange limit prices.
// It is applied asymmetrically: subtracted from the up-limit threshold and
// added to the down-limit threshold.
const DefaultTolerance = 0.002

// ErrZeroPrevClose signals a data-quality fault: a bar with no usable
// reference price. This is never a pattern mismatch and must not be
// defaulted away.
var ErrZeroPrevClose = errors.New("previous close is zero or negative")

// LimitPercentage returns the regulatory daily move limit for the
// instrument's listing tier.
func LimitPercentage(code string) float64 {
	switch market.TierOf(code) {
	case market.TierSTAR, market.TierChiNext:
		return 0.20
	case market.TierBSE:
		return 0.30
	}
	return 0.10
}

// IsLimit reports whether price has reached the instrument's limit price
// relative to prevClose, within the tolerance band.
func IsLimit(code string, price, prevClose float64, dir Direction, tolerance float64) (bool, error) {
	if prevClose <= 0 {
		return false, ErrZeroPrevClose
	}
	pct := LimitPercentage(code)
	switch dir {
	case LimitUp:
		return price >= prevClose*(1+pct-tolerance), nil
	case LimitDown:
		return price <= prevClose*(1-pct+tolerance), nil
	}
	return false, nil
}

// IsOneBoard reports whether the bar is a one-line limit: at the limit
// price with low and high equal within the tolerance, meaning the
// instrument never traded away from the limit all session.
func IsOneBoard(code string, price, prevClose, low, high float64, dir Direction, tolerance float64) (bool, error) {
	ok, err := IsLimit(code, price, prevClose, dir, tolerance)
	if err != nil || !ok {
		return false, err
	}
	if math.Abs(high-low) > tolerance {
		return false, nil
	}
	return true, nil
}

// LimitPrice computes the exchange limit price for the session following
// prevClose, rounded to 2 decimal places.
func LimitPrice(code string, prevClose float64, dir Direction) (float64, error) {
	if prevClose <= 0 {
		return 0, ErrZeroPrevClose
	}
	pct := LimitPercentage(code)
	switch dir {
	case LimitDown:
		return round2(prevClose * (1 - pct)), nil
	default:
		return round2(prevClose * (1 + pct)), nil
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
