// Package balance suggests assets that close a team's value deficit against
// the league average.
//
// The search is a bounded heuristic, not an optimizer:
//  1. the first single asset whose value lands in the acceptance window;
//  2. otherwise the first pair (i ≤ j, j within PairWindow entries of i)
//     whose sum lands in the window;
//  3. otherwise the single asset closest to the need.
package balance

import (
	"fmt"
	"math"
	"sort"

	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/model"
	"github.com/dynastycalc/trade-engine/internal/pickcurve"
)

// PairWindow bounds how far past i the pairwise pass looks for j.
const PairWindow = 80

// Match reports which pass produced a suggestion.
type Match string

const (
	MatchNone    Match = "none"
	MatchSingle  Match = "single"
	MatchPair    Match = "pair"
	MatchClosest Match = "closest"
)

// Result is a suggestion and the pass that found it.
type Result struct {
	Entries []model.PoolEntry
	Match   Match
}

// Window returns the acceptance bounds for a deficit at tolerance tol.
func Window(deficit, tol float64) (need, lo, hi float64) {
	need = math.Abs(deficit)
	return need, need * (1 - tol), need * (1 + tol)
}

// Order returns pool reordered by preference. Preferred entries come first,
// the rest follow in their original relative order; nothing is dropped.
func Order(pool []model.PoolEntry, pref model.Preference) []model.PoolEntry {
	out := make([]model.PoolEntry, 0, len(pool))
	var first model.AssetKind
	switch pref {
	case model.PreferPlayers:
		first = model.KindPlayer
	case model.PreferPicks:
		first = model.KindPick
	default:
		return append(out, pool...)
	}
	for _, e := range pool {
		if e.Kind == first {
			out = append(out, e)
		}
	}
	for _, e := range pool {
		if e.Kind != first {
			out = append(out, e)
		}
	}
	return out
}

// Suggest returns one or two pool entries that close deficit. It returns nil
// only for an empty pool. tol is clamped with model.ClampTolerance.
func Suggest(deficit float64, pool []model.PoolEntry, pref model.Preference, tol float64) []model.PoolEntry {
	return Find(deficit, pool, pref, tol).Entries
}

// Find is Suggest with the matching pass reported.
func Find(deficit float64, pool []model.PoolEntry, pref model.Preference, tol float64) Result {
	ordered := Order(pool, pref)
	if len(ordered) == 0 {
		return Result{Match: MatchNone}
	}
	need, lo, hi := Window(deficit, model.ClampTolerance(tol))
	in := func(v float64) bool { return v >= lo && v <= hi }

	for _, e := range ordered {
		if in(float64(e.Value)) {
			return Result{Entries: []model.PoolEntry{e}, Match: MatchSingle}
		}
	}

	for i := range ordered {
		end := min(len(ordered), i+PairWindow)
		for j := i; j < end; j++ {
			if in(float64(ordered[i].Value + ordered[j].Value)) {
				return Result{Entries: []model.PoolEntry{ordered[i], ordered[j]}, Match: MatchPair}
			}
		}
	}

	best := ordered[0]
	for _, e := range ordered[1:] {
		if math.Abs(float64(e.Value)-need) < math.Abs(float64(best.Value)-need) {
			best = e
		}
	}
	return Result{Entries: []model.PoolEntry{best}, Match: MatchClosest}
}

// DemoPool builds the default suggestion pool: every Demo player at its
// market value for the league format, plus rounds 1–5 of pickYear at their
// undiscounted curve value. The pool is sorted ascending by value; ties keep
// players before picks in table order.
func DemoPool(demo *market.PlayerTable, s model.LeagueSettings, pickYear int) []model.PoolEntry {
	rows := demo.Rows()
	pool := make([]model.PoolEntry, 0, len(rows)+len(pickcurve.Rounds))
	for _, r := range rows {
		pool = append(pool, model.PoolEntry{
			Key:      "P|" + r.Name,
			Kind:     model.KindPlayer,
			Name:     r.Name,
			Position: r.Position,
			Value:    int(math.Round(r.For(s.Superflex))),
		})
	}
	curve := pickcurve.New(s.Superflex, s.TEPremium)
	for _, r := range pickcurve.Rounds {
		pool = append(pool, model.PoolEntry{
			Key:   fmt.Sprintf("K|%d|%s", pickYear, r),
			Kind:  model.KindPick,
			Name:  fmt.Sprintf("%d %s", pickYear, r),
			Value: curve.Value(r),
		})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Value < pool[j].Value })
	return pool
}
