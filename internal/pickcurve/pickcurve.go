// Package pickcurve derives the baseline value of future draft picks by round
// from league rules.
//
// The curve starts from a fixed 1QB baseline and is scaled per round by:
//   - a superflex multiplier (second QB slot inflates early picks the most)
//   - a TE-premium multiplier (reception bonus for tight ends)
//
// Products are computed with shopspring/decimal and rounded half away from
// zero per round, so 600 × 1.25 × 1.08 is exactly 810 rather than a float
// that lands a hair below the rounding boundary.
package pickcurve

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundKey names a draft round.
type RoundKey string

const (
	Round1 RoundKey = "1st"
	Round2 RoundKey = "2nd"
	Round3 RoundKey = "3rd"
	Round4 RoundKey = "4th"
	Round5 RoundKey = "5th"
)

// Rounds lists the valued rounds in draft order.
var Rounds = []RoundKey{Round1, Round2, Round3, Round4, Round5}

var (
	baseline = map[RoundKey]int64{
		Round1: 600, Round2: 220, Round3: 90, Round4: 40, Round5: 20,
	}
	superflexMult = map[RoundKey]decimal.Decimal{
		Round1: decimal.RequireFromString("1.25"),
		Round2: decimal.RequireFromString("1.15"),
		Round3: decimal.RequireFromString("1.10"),
		Round4: decimal.RequireFromString("1.05"),
		Round5: decimal.RequireFromString("1.05"),
	}
	tePremiumMult = map[RoundKey]decimal.Decimal{
		Round1: decimal.RequireFromString("1.08"),
		Round2: decimal.RequireFromString("1.06"),
		Round3: decimal.RequireFromString("1.04"),
		Round4: decimal.RequireFromString("1.02"),
		Round5: decimal.RequireFromString("1.02"),
	}
)

// Curve is a round → baseline value mapping.
type Curve map[RoundKey]int

// New computes the pick curve for the given league rules:
//
//	curve[r] = round(baseline[r] × sf[r] × tep[r])
//
// where sf and tep are 1 when the rule is off.
func New(superflex, tePremium bool) Curve {
	one := decimal.NewFromInt(1)
	curve := make(Curve, len(Rounds))
	for _, r := range Rounds {
		sf, tep := one, one
		if superflex {
			sf = superflexMult[r]
		}
		if tePremium {
			tep = tePremiumMult[r]
		}
		v := decimal.NewFromInt(baseline[r]).Mul(sf).Mul(tep).Round(0)
		curve[r] = int(v.IntPart())
	}
	return curve
}

// Value returns the curve value for a round, or 0 for an unknown key.
func (c Curve) Value(r RoundKey) int {
	return c[r]
}

// RoundNumber parses the integer part of a slot ("1.07" → 1). The second
// result is false when that part is not an integer.
func RoundNumber(slot string) (int, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(slot), ".")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, false
	}
	return n, true
}

// KeyForRound maps 1..5 to a RoundKey. Any other number maps to Round1.
func KeyForRound(n int) RoundKey {
	if n < 1 || n > len(Rounds) {
		return Round1
	}
	return Rounds[n-1]
}

// RoundKeyForSlot derives the round of a slot string. Slots whose round is
// outside 1..5 or unparseable resolve to Round1.
func RoundKeyForSlot(slot string) RoundKey {
	n, ok := RoundNumber(slot)
	if !ok {
		return Round1
	}
	return KeyForRound(n)
}

// Number returns the 1-based round number of a key, or 0 if unknown.
func (r RoundKey) Number() int {
	for i, k := range Rounds {
		if k == r {
			return i + 1
		}
	}
	return 0
}
