package balance

import (
	"fmt"
	"testing"

	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/model"
)

func player(name string, v int) model.PoolEntry {
	return model.PoolEntry{Key: "P|" + name, Kind: model.KindPlayer, Name: name, Value: v}
}

func pick(name string, v int) model.PoolEntry {
	return model.PoolEntry{Key: "K|" + name, Kind: model.KindPick, Name: name, Value: v}
}

func keys(es []model.PoolEntry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Key
	}
	return out
}

func TestSuggest_ScenarioDemoPoolDeficit100(t *testing.T) {
	s := model.DefaultSettings() // superflex
	pool := DemoPool(market.Demo(), s, 2027)

	got := Suggest(-100, pool, model.PreferAny, 0.10)
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("expected 1 or 2 entries, got %d", len(got))
	}
	sum := 0
	for _, e := range got {
		sum += e.Value
	}
	if sum < 90 || sum > 110 {
		t.Errorf("suggestion sum %d outside [90,110]: %v", sum, keys(got))
	}
	// Superflex 3rd-round curve value is 99.
	if got[0].Key != "K|2027|3rd" {
		t.Errorf("expected 2027 3rd, got %v", keys(got))
	}
}

func TestSuggest_SingleBeatsPair(t *testing.T) {
	pool := []model.PoolEntry{player("a", 50), player("b", 50), player("c", 101)}
	got := Suggest(-100, pool, model.PreferAny, 0.05)
	if len(got) != 1 || got[0].Name != "c" {
		t.Errorf("expected single c, got %v", keys(got))
	}
}

func TestSuggest_FirstSingleInPoolOrder(t *testing.T) {
	pool := []model.PoolEntry{player("a", 108), player("b", 100)}
	got := Suggest(-100, pool, model.PreferAny, 0.10)
	if got[0].Name != "a" {
		t.Errorf("expected first in-window entry a, got %v", keys(got))
	}
}

func TestSuggest_Pair(t *testing.T) {
	pool := []model.PoolEntry{player("a", 20), player("b", 30), player("c", 70), player("d", 400)}
	res := Find(-100, pool, model.PreferAny, 0.05)
	if res.Match != MatchPair {
		t.Fatalf("expected pair match, got %s", res.Match)
	}
	if res.Entries[0].Name != "b" || res.Entries[1].Name != "c" {
		t.Errorf("expected b+c, got %v", keys(res.Entries))
	}
}

func TestSuggest_PairMayRepeatAnEntry(t *testing.T) {
	pool := []model.PoolEntry{player("a", 50), player("z", 400)}
	got := Suggest(-100, pool, model.PreferAny, 0.05)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "a" {
		t.Errorf("expected a+a (i <= j), got %v", keys(got))
	}
}

func TestSuggest_ClosestFallback(t *testing.T) {
	pool := []model.PoolEntry{player("a", 300), player("b", 500), player("c", 700)}
	res := Find(-560, pool, model.PreferAny, 0.01)
	if res.Match != MatchClosest {
		t.Fatalf("expected closest match, got %s", res.Match)
	}
	if res.Entries[0].Name != "b" {
		t.Errorf("expected b (|500-560|=60), got %v", keys(res.Entries))
	}
}

func TestSuggest_ClosestTieKeepsPoolOrder(t *testing.T) {
	pool := []model.PoolEntry{player("hi", 1100), player("lo", 900), player("far", 5000)}
	got := Suggest(-1000, pool, model.PreferAny, 0.01)
	if got[0].Name != "hi" {
		t.Errorf("tie should go to the earlier entry, got %v", keys(got))
	}
}

func TestSuggest_EmptyPool(t *testing.T) {
	if got := Suggest(-100, nil, model.PreferAny, 0.1); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSuggest_PositiveDeltaUsesMagnitude(t *testing.T) {
	pool := []model.PoolEntry{player("a", 100)}
	got := Suggest(100, pool, model.PreferAny, 0.1)
	if got[0].Name != "a" {
		t.Errorf("expected a, got %v", keys(got))
	}
}

func TestSuggest_PairWindowBound(t *testing.T) {
	// Only entries 0 and 90 sum into the window; 90 is beyond the pair window.
	pool := make([]model.PoolEntry, 0, 91)
	pool = append(pool, player("first", 40))
	for i := 1; i < 90; i++ {
		pool = append(pool, player(fmt.Sprintf("filler%d", i), 5000+i))
	}
	pool = append(pool, player("last", 60))

	res := Find(-100, pool, model.PreferAny, 0.01)
	if res.Match == MatchPair && res.Entries[0].Name == "first" && res.Entries[1].Name == "last" {
		t.Fatal("pair outside the window must not be found")
	}
	if res.Match != MatchClosest {
		t.Errorf("expected closest fallback, got %s", res.Match)
	}
}

func TestOrder_RetainsAll(t *testing.T) {
	pool := []model.PoolEntry{pick("p1", 10), player("a", 20), pick("p2", 30), player("b", 40)}

	tests := []struct {
		pref model.Preference
		want []string
	}{
		{model.PreferAny, []string{"K|p1", "P|a", "K|p2", "P|b"}},
		{model.PreferPlayers, []string{"P|a", "P|b", "K|p1", "K|p2"}},
		{model.PreferPicks, []string{"K|p1", "K|p2", "P|a", "P|b"}},
	}
	for _, tt := range tests {
		got := keys(Order(pool, tt.pref))
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.pref, got, tt.want)
		}
	}
}

func TestSuggest_PreferencePicksFirst(t *testing.T) {
	pool := []model.PoolEntry{player("a", 100), pick("p", 105)}
	got := Suggest(-100, pool, model.PreferPicks, 0.10)
	if got[0].Key != "K|p" {
		t.Errorf("picks preference should try picks first, got %v", keys(got))
	}
}

func TestDemoPool_SortedAndComplete(t *testing.T) {
	s := model.DefaultSettings()
	s.Superflex = false
	pool := DemoPool(market.Demo(), s, 2027)
	if len(pool) != 17+5 {
		t.Fatalf("expected 22 entries, got %d", len(pool))
	}
	for i := 1; i < len(pool); i++ {
		if pool[i].Value < pool[i-1].Value {
			t.Fatalf("pool not ascending at %d", i)
		}
	}
	if pool[0].Key != "K|2027|5th" || pool[0].Value != 20 {
		t.Errorf("expected cheapest entry 2027 5th=20, got %+v", pool[0])
	}
}

func TestWindow(t *testing.T) {
	need, lo, hi := Window(-100, 0.1)
	if need != 100 || lo < 89.99 || lo > 90.01 || hi < 109.99 || hi > 110.01 {
		t.Errorf("unexpected window %v [%v, %v]", need, lo, hi)
	}
}

func TestFind_SmallToleranceKeepsNarrowWindow(t *testing.T) {
	pool := []model.PoolEntry{player("wide", 1008), player("exact", 1004)}

	res := Find(-1000, pool[:1], model.PreferAny, 0.005)
	if res.Match == MatchSingle {
		t.Errorf("1008 lies outside [995,1005] and must not match as single: %+v", res)
	}

	res = Find(-1000, pool, model.PreferAny, 0.005)
	if res.Match != MatchSingle || res.Entries[0].Name != "exact" {
		t.Errorf("expected single exact, got %s %v", res.Match, keys(res.Entries))
	}
}
