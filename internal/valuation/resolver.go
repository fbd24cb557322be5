// Package valuation resolves a single asset to a trade value given league
// settings, the market catalog and the active value source.
//
// Resolution never fails. Unknown players resolve to 0 until someone values
// them, unknown pick rounds fall back to the first round, and a missing
// External pick price falls back to the pick curve.
package valuation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/model"
	"github.com/dynastycalc/trade-engine/internal/pickcurve"
)

var (
	// DiscountPerYear is the share of value a pick loses per year out.
	DiscountPerYear = decimal.RequireFromString("0.04")

	// MaxDiscount caps the time discount; picks four or more years out all
	// sit at the cap.
	MaxDiscount = decimal.RequireFromString("0.16")
)

// Discount returns the multiplier applied to a pick yearsOut years in the
// future:
//
//	1 - clamp(0.04 × yearsOut, 0, 0.16)
//
// Current-year and past picks are not discounted.
func Discount(yearsOut int) decimal.Decimal {
	d := DiscountPerYear.Mul(decimal.NewFromInt(int64(yearsOut)))
	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(MaxDiscount) {
		d = MaxDiscount
	}
	return decimal.NewFromInt(1).Sub(d)
}

// Resolver binds a catalog and a clock. It holds no derived state; every call
// reads the catalog's current tables.
type Resolver struct {
	catalog *market.Catalog
	now     func() time.Time
}

// NewResolver creates a resolver over catalog using the wall clock.
func NewResolver(catalog *market.Catalog) *Resolver {
	return &Resolver{catalog: catalog, now: time.Now}
}

// WithClock returns a copy of r that reads the current year from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

// CurrentYear is the year picks are discounted against.
func (r *Resolver) CurrentYear() int {
	return r.now().Year()
}

// Catalog returns the underlying market catalog.
func (r *Resolver) Catalog() *market.Catalog {
	return r.catalog
}

// Resolve values one asset.
func (r *Resolver) Resolve(a model.Asset, s model.LeagueSettings, src model.SourceConfig) int {
	return Resolve(a, s, r.catalog, src, r.CurrentYear())
}

// Resolve values one asset against catalog. The result is never negative.
func Resolve(a model.Asset, s model.LeagueSettings, catalog *market.Catalog, src model.SourceConfig, currentYear int) int {
	var v int
	switch x := a.(type) {
	case *model.Player:
		v = playerValue(x, s, catalog, src)
	case *model.Pick:
		v = pickValue(x, s, catalog, src, currentYear)
	}
	if v < 0 {
		return 0
	}
	return v
}

func playerValue(p *model.Player, s model.LeagueSettings, catalog *market.Catalog, src model.SourceConfig) int {
	demo := lookupPlayer(catalog.DemoPlayers(), p, s.Superflex)
	ext := lookupPlayer(catalog.ExternalPlayers(), p, s.Superflex)

	switch src.Source {
	case model.SourceExternal:
		return roundInt(ext)
	case model.SourceBlend:
		return roundInt(blend(demo, ext, src.BlendWeight))
	default:
		return roundInt(demo)
	}
}

func lookupPlayer(t *market.PlayerTable, p *model.Player, superflex bool) decimal.Decimal {
	mv, ok := t.Lookup(p.Name, p.Position)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(mv.For(superflex))
}

func pickValue(p *model.Pick, s model.LeagueSettings, catalog *market.Catalog, src model.SourceConfig, currentYear int) int {
	key := pickcurve.RoundKeyForSlot(p.Slot)
	base := decimal.NewFromInt(int64(pickcurve.New(s.Superflex, s.TEPremium).Value(key)))

	if src.Source != model.SourceDemo {
		ext := externalPickBase(catalog, p.Year, p.Slot, key, s.Superflex)
		if ext.IsPositive() {
			switch src.Source {
			case model.SourceExternal:
				base = ext
			case model.SourceBlend:
				base = blend(base, ext, src.BlendWeight).Round(0)
			}
		}
	}

	return roundInt(base.Mul(Discount(p.Year - currentYear)))
}

// externalPickBase looks the pick up by exact slot first, then by the average
// of its round. Zero means "no External price".
func externalPickBase(catalog *market.Catalog, year int, slot string, key pickcurve.RoundKey, superflex bool) decimal.Decimal {
	table, ok := catalog.PickTable(year)
	if !ok {
		return decimal.Zero
	}
	if mv, ok := table.Slots[strings.TrimSpace(slot)]; ok {
		return decimal.NewFromFloat(mv.For(superflex))
	}
	if mv, ok := table.Rounds[key.Number()]; ok {
		return decimal.NewFromFloat(mv.For(superflex))
	}
	return decimal.Zero
}

// blend computes (1-w)·demo + w·external with w clamped into [0, 1].
func blend(demo, external decimal.Decimal, w float64) decimal.Decimal {
	wd := decimal.NewFromFloat(model.ClampBlendWeight(w))
	return decimal.NewFromInt(1).Sub(wd).Mul(demo).Add(wd.Mul(external))
}

func roundInt(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}
