package market

import (
	"fmt"
	"strings"
)

// Tier is the listing tier of an instrument, derived from its code prefix.
// The tier determines the regulatory daily move limit.
type Tier int

const (
	TierMainBoard Tier = iota // Shanghai/Shenzhen main board, 10% limit
	TierChiNext               // Shenzhen growth board, 20% limit
	TierSTAR                  // Shanghai STAR market, 20% limit
	TierBSE                   // Beijing exchange, 30% limit
)

// String returns a human readable tier name.
func (t Tier) String() string {
	switch t {
	case TierChiNext:
		return "ChiNext"
	case TierSTAR:
		return "STAR"
	case TierBSE:
		return "BSE"
	default:
		return "MainBoard"
	}
}

// AddSuffix appends the exchange suffix (.SH/.SZ/.BJ) to a bare 6-digit
// code. Codes that already carry a suffix are returned unchanged.
func AddSuffix(code string) (string, error) {
	if strings.Contains(code, ".") {
		return code, nil
	}
	if len(code) != 6 || !isDigits(code) {
		return "", fmt.Errorf("instrument code must be 6 digits, got %q", code)
	}
	switch {
	case hasAnyPrefix(code, "00", "30", "15", "16", "18", "12"):
		return code + ".SZ", nil
	case hasAnyPrefix(code, "60", "68", "11"):
		return code + ".SH", nil
	case hasAnyPrefix(code, "83", "43"):
		return code + ".BJ", nil
	}
	return code + ".SH", nil
}

// AddSuffixAll applies AddSuffix to every code in the list.
func AddSuffixAll(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		s, err := AddSuffix(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// TierOf returns the listing tier for a code, with or without suffix.
func TierOf(code string) Tier {
	bare := code
	if i := strings.IndexByte(code, '.'); i >= 0 {
		bare = code[:i]
	}
	switch {
	case hasAnyPrefix(bare, "688", "689"):
		return TierSTAR
	case hasAnyPrefix(bare, "30"):
		return TierChiNext
	case hasAnyPrefix(bare, "83", "43"):
		return TierBSE
	}
	return TierMainBoard
}

// MainBoardOnly filters a code list down to main-board listings.
func MainBoardOnly(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if TierOf(c) == TierMainBoard {
			out = append(out, c)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
