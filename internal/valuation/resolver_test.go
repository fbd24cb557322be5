package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/model"
)

const testYear = 2026

func fixedClock() time.Time {
	return time.Date(testYear, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func newTestResolver(t *testing.T) (*Resolver, *market.Catalog) {
	t.Helper()
	c := market.NewDefaultCatalog()
	return NewResolver(c).WithClock(fixedClock), c
}

func sfSettings() model.LeagueSettings {
	s := model.DefaultSettings()
	s.Superflex = true
	return s
}

func oneQBSettings() model.LeagueSettings {
	s := model.DefaultSettings()
	s.Superflex = false
	return s
}

func src(source model.ValueSource, w float64) model.SourceConfig {
	return model.SourceConfig{Source: source, BlendWeight: w}
}

// --- Players ---

func TestResolve_DemoSuperflexJoshAllen(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Player{ID: "p1", Name: "Josh Allen", Position: model.QB}

	if got := r.Resolve(p, sfSettings(), src(model.SourceDemo, 0.5)); got != 1100 {
		t.Errorf("expected 1100, got %d", got)
	}
	if got := r.Resolve(p, oneQBSettings(), src(model.SourceDemo, 0.5)); got != 850 {
		t.Errorf("expected 1QB value 850, got %d", got)
	}
}

func TestResolve_DemoNameIsNormalized(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Player{Name: "  josh   ALLEN ", Position: "qb"}
	if got := r.Resolve(p, sfSettings(), src(model.SourceDemo, 0)); got != 1100 {
		t.Errorf("expected normalized lookup to hit, got %d", got)
	}
}

func TestResolve_UnknownAssetsAreZero(t *testing.T) {
	r, _ := newTestResolver(t)
	unknown := &model.Player{Name: "Nobody Special", Position: model.WR}

	for _, source := range []model.ValueSource{model.SourceDemo, model.SourceExternal, model.SourceBlend} {
		if got := r.Resolve(unknown, sfSettings(), src(source, 0.5)); got != 0 {
			t.Errorf("%s: unknown player should be 0, got %d", source, got)
		}
	}
}

func TestResolve_ExternalPlayer(t *testing.T) {
	r, c := newTestResolver(t)
	c.ReplacePlayers([]model.PlayerRow{{
		Name: "Josh Allen", Position: model.QB,
		MarketValue: model.MarketValue{Value: 700, SFValue: 900.4},
	}})
	p := &model.Player{Name: "Josh Allen", Position: model.QB}

	if got := r.Resolve(p, sfSettings(), src(model.SourceExternal, 0)); got != 900 {
		t.Errorf("expected 900, got %d", got)
	}
	if got := r.Resolve(p, oneQBSettings(), src(model.SourceExternal, 0)); got != 700 {
		t.Errorf("expected 700, got %d", got)
	}
}

func TestResolve_ExternalMissIsZeroEvenWithDemo(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Player{Name: "Josh Allen", Position: model.QB}
	if got := r.Resolve(p, sfSettings(), src(model.SourceExternal, 0)); got != 0 {
		t.Errorf("player missing from External should be 0, got %d", got)
	}
}

func TestResolve_BlendEndpointsAndMidpoint(t *testing.T) {
	r, c := newTestResolver(t)
	c.ReplacePlayers([]model.PlayerRow{{
		Name: "Josh Allen", Position: model.QB,
		MarketValue: model.MarketValue{Value: 801, SFValue: 901},
	}})
	p := &model.Player{Name: "Josh Allen", Position: model.QB}

	tests := []struct {
		w    float64
		want int
	}{
		{0, 1100},   // pure demo
		{1, 901},    // pure external
		{0.5, 1001}, // (1100+901)/2 = 1000.5 rounds up
		{0.25, 1050},
		{-3, 1100}, // clamped to 0
		{7, 901},   // clamped to 1
	}
	for _, tt := range tests {
		if got := r.Resolve(p, sfSettings(), src(model.SourceBlend, tt.w)); got != tt.want {
			t.Errorf("blend w=%v: got %d, want %d", tt.w, got, tt.want)
		}
	}
}

// --- Picks ---

func TestResolve_PickCurrentYearUsesCurve(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Pick{Year: testYear, Slot: "1.07"}
	if got := r.Resolve(p, sfSettings(), src(model.SourceDemo, 0)); got != 750 {
		t.Errorf("expected 750, got %d", got)
	}
}

func TestResolve_PickFarFutureIsCapped(t *testing.T) {
	r, _ := newTestResolver(t)
	// Third round, 1QB: base 90, five years out → 16% cap.
	p := &model.Pick{Year: testYear + 5, Slot: "3.01"}
	if got := r.Resolve(p, oneQBSettings(), src(model.SourceDemo, 0)); got != 76 {
		t.Errorf("expected round(90*0.84)=76, got %d", got)
	}

	// "1.03" is a first-round pick: round(600*0.84) = 504.
	p = &model.Pick{Year: testYear + 5, Slot: "1.03"}
	if got := r.Resolve(p, oneQBSettings(), src(model.SourceDemo, 0)); got != 504 {
		t.Errorf("expected 504, got %d", got)
	}
}

func TestResolve_PickOneYearOut(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Pick{Year: testYear + 1, Slot: "2.05"}
	// 253 * 0.96 = 242.88
	if got := r.Resolve(p, sfSettings(), src(model.SourceDemo, 0)); got != 243 {
		t.Errorf("expected 243, got %d", got)
	}
}

func TestResolve_PastPickNotDiscounted(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Pick{Year: testYear - 3, Slot: "1.01"}
	if got := r.Resolve(p, oneQBSettings(), src(model.SourceDemo, 0)); got != 600 {
		t.Errorf("expected 600, got %d", got)
	}
}

func TestResolve_PickUnparseableSlotIsFirstRound(t *testing.T) {
	r, _ := newTestResolver(t)
	for _, slot := range []string{"", "late", "7.01", "0.5"} {
		p := &model.Pick{Year: testYear, Slot: slot}
		if got := r.Resolve(p, oneQBSettings(), src(model.SourceDemo, 0)); got != 600 {
			t.Errorf("slot %q: expected 600, got %d", slot, got)
		}
	}
}

func TestResolve_ExternalPickSlotBeatsRound(t *testing.T) {
	r, c := newTestResolver(t)
	c.MergePicks(testYear, model.PickTable{
		Slots:  map[string]model.MarketValue{"1.01": {Value: 700, SFValue: 900}},
		Rounds: map[int]model.MarketValue{1: {Value: 500, SFValue: 650}},
	})

	exact := &model.Pick{Year: testYear, Slot: "1.01"}
	if got := r.Resolve(exact, sfSettings(), src(model.SourceExternal, 0)); got != 900 {
		t.Errorf("exact slot: expected 900, got %d", got)
	}

	fallback := &model.Pick{Year: testYear, Slot: "1.09"}
	if got := r.Resolve(fallback, sfSettings(), src(model.SourceExternal, 0)); got != 650 {
		t.Errorf("round fallback: expected 650, got %d", got)
	}
}

func TestResolve_ExternalPickMissingFallsBackToCurve(t *testing.T) {
	r, _ := newTestResolver(t)
	p := &model.Pick{Year: testYear, Slot: "2.01"}

	if got := r.Resolve(p, sfSettings(), src(model.SourceExternal, 0)); got != 253 {
		t.Errorf("External with no table: expected curve 253, got %d", got)
	}
	if got := r.Resolve(p, sfSettings(), src(model.SourceBlend, 1)); got != 253 {
		t.Errorf("Blend with no table: expected curve 253, got %d", got)
	}
}

func TestResolve_BlendedPick(t *testing.T) {
	r, c := newTestResolver(t)
	c.MergePicks(testYear+2, model.PickTable{
		Slots: map[string]model.MarketValue{"1.05": {Value: 400, SFValue: 550}},
	})
	p := &model.Pick{Year: testYear + 2, Slot: "1.05"}

	// base = round(0.5*750 + 0.5*550) = 650; 650 * 0.92 = 598
	if got := r.Resolve(p, sfSettings(), src(model.SourceBlend, 0.5)); got != 598 {
		t.Errorf("expected 598, got %d", got)
	}
	// weight 0 is pure curve: 750 * 0.92 = 690
	if got := r.Resolve(p, sfSettings(), src(model.SourceBlend, 0)); got != 690 {
		t.Errorf("expected 690, got %d", got)
	}
	// weight 1 is pure external: 550 * 0.92 = 506
	if got := r.Resolve(p, sfSettings(), src(model.SourceBlend, 1)); got != 506 {
		t.Errorf("expected 506, got %d", got)
	}
}

func TestResolve_DemoIgnoresExternalPicks(t *testing.T) {
	r, c := newTestResolver(t)
	c.MergePicks(testYear, model.PickTable{Slots: map[string]model.MarketValue{"1.01": {Value: 1, SFValue: 1}}})
	p := &model.Pick{Year: testYear, Slot: "1.01"}
	if got := r.Resolve(p, sfSettings(), src(model.SourceDemo, 1)); got != 750 {
		t.Errorf("expected curve value 750, got %d", got)
	}
}

func TestResolve_NeverNegative(t *testing.T) {
	r, c := newTestResolver(t)
	c.ReplacePlayers([]model.PlayerRow{{Name: "Neg", Position: model.TE, MarketValue: model.MarketValue{Value: -50, SFValue: -50}}})
	p := &model.Player{Name: "Neg", Position: model.TE}
	if got := r.Resolve(p, sfSettings(), src(model.SourceExternal, 0)); got != 0 {
		t.Errorf("expected floor at 0, got %d", got)
	}
}

// --- Discount ---

func TestDiscount_Monotonic(t *testing.T) {
	prev := Discount(-5)
	if !prev.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("past years should not be discounted, got %s", prev)
	}
	for y := -4; y <= 10; y++ {
		d := Discount(y)
		if d.GreaterThan(prev) {
			t.Errorf("discount increased at yearsOut=%d: %s > %s", y, d, prev)
		}
		prev = d
	}
}

func TestDiscount_Values(t *testing.T) {
	tests := []struct {
		yearsOut int
		want     string
	}{
		{0, "1"},
		{1, "0.96"},
		{2, "0.92"},
		{3, "0.88"},
		{4, "0.84"},
		{9, "0.84"},
	}
	for _, tt := range tests {
		want := decimal.RequireFromString(tt.want)
		if got := Discount(tt.yearsOut); !got.Equal(want) {
			t.Errorf("Discount(%d) = %s, want %s", tt.yearsOut, got, want)
		}
	}
}
