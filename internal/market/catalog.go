// Package market holds the market value tables the resolver reads from: the
// built-in Demo player table and the External tables replaced by imports.
//
// Tables are immutable once published. Imports build a complete new table and
// swap it in atomically, so readers see either the old or the new table and
// never a half-applied import.
package market

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/dynastycalc/trade-engine/internal/model"
)

//go:embed demo.yaml
var demoYAML []byte

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeName lower-cases a player name, collapses every run of
// non-alphanumeric characters into one space and trims the result, so
// "C.J. Stroud" and "cj  stroud" differ but "C.J. Stroud" and "c j stroud" match.
func NormalizeName(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

type playerKey struct {
	name     string
	position model.Position
}

// PlayerTable is an immutable player market indexed by normalized name and
// position.
type PlayerTable struct {
	rows  []model.PlayerRow
	index map[playerKey]int
}

// NewPlayerTable indexes rows. When two rows share a key the first one wins.
func NewPlayerTable(rows []model.PlayerRow) *PlayerTable {
	t := &PlayerTable{
		rows:  make([]model.PlayerRow, len(rows)),
		index: make(map[playerKey]int, len(rows)),
	}
	copy(t.rows, rows)
	for i, r := range t.rows {
		k := playerKey{NormalizeName(r.Name), model.Position(strings.ToUpper(string(r.Position)))}
		if _, dup := t.index[k]; !dup {
			t.index[k] = i
		}
	}
	return t
}

// Lookup finds a player's market values.
func (t *PlayerTable) Lookup(name string, pos model.Position) (model.MarketValue, bool) {
	if t == nil {
		return model.MarketValue{}, false
	}
	i, ok := t.index[playerKey{NormalizeName(name), model.Position(strings.ToUpper(string(pos)))}]
	if !ok {
		return model.MarketValue{}, false
	}
	return t.rows[i].MarketValue, true
}

// Rows returns a copy of the table rows in insertion order.
func (t *PlayerTable) Rows() []model.PlayerRow {
	if t == nil {
		return nil
	}
	out := make([]model.PlayerRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows.
func (t *PlayerTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

type demoFile struct {
	Players []struct {
		Name     string  `yaml:"name"`
		Position string  `yaml:"position"`
		Age      int     `yaml:"age"`
		Mkt1QB   float64 `yaml:"mkt_1qb"`
		MktSF    float64 `yaml:"mkt_sf"`
	} `yaml:"players"`
}

// LoadDemo parses a demo market document.
func LoadDemo(data []byte) (*PlayerTable, error) {
	var f demoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("market: parse demo table: %w", err)
	}
	rows := make([]model.PlayerRow, 0, len(f.Players))
	for _, p := range f.Players {
		pos, ok := model.ParsePosition(p.Position)
		if !ok || p.Name == "" {
			return nil, fmt.Errorf("market: invalid demo player %q/%q", p.Name, p.Position)
		}
		row := model.PlayerRow{
			Name:        p.Name,
			Position:    pos,
			MarketValue: model.MarketValue{Value: p.Mkt1QB, SFValue: p.MktSF},
		}
		if p.Age > 0 {
			age := p.Age
			row.Age = &age
		}
		rows = append(rows, row)
	}
	return NewPlayerTable(rows), nil
}

var (
	demoOnce  sync.Once
	demoTable *PlayerTable
)

// Demo returns the built-in demo player table. It panics if the embedded
// document is invalid, which is a build defect.
func Demo() *PlayerTable {
	demoOnce.Do(func() {
		t, err := LoadDemo(demoYAML)
		if err != nil {
			panic(err)
		}
		demoTable = t
	})
	return demoTable
}

type pickYears map[int]model.PickTable

// Catalog bundles the Demo table with the External player and pick tables.
type Catalog struct {
	demo    *PlayerTable
	players atomic.Pointer[PlayerTable]
	picks   atomic.Pointer[pickYears]

	writeMu sync.Mutex // serializes copy-on-write pick merges
}

// NewCatalog creates a catalog over the given demo table with empty
// External tables.
func NewCatalog(demo *PlayerTable) *Catalog {
	c := &Catalog{demo: demo}
	c.players.Store(NewPlayerTable(nil))
	empty := pickYears{}
	c.picks.Store(&empty)
	return c
}

// NewDefaultCatalog creates a catalog backed by the built-in demo table.
func NewDefaultCatalog() *Catalog {
	return NewCatalog(Demo())
}

// DemoPlayers returns the Demo player table.
func (c *Catalog) DemoPlayers() *PlayerTable { return c.demo }

// ExternalPlayers returns the current External player table.
func (c *Catalog) ExternalPlayers() *PlayerTable { return c.players.Load() }

// ReplacePlayers swaps the External player table wholesale.
func (c *Catalog) ReplacePlayers(rows []model.PlayerRow) {
	c.players.Store(NewPlayerTable(rows))
}

// PickTable returns the External pick market for a year.
func (c *Catalog) PickTable(year int) (model.PickTable, bool) {
	t, ok := (*c.picks.Load())[year]
	return t, ok
}

// MergePicks installs table as the External pick market for year, leaving
// other years untouched.
func (c *Catalog) MergePicks(year int, table model.PickTable) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := *c.picks.Load()
	next := make(pickYears, len(cur)+1)
	for y, t := range cur {
		next[y] = t
	}
	next[year] = clonePickTable(table)
	c.picks.Store(&next)
}

// PickYears lists the years with imported pick markets, ascending.
func (c *Catalog) PickYears() []int {
	cur := *c.picks.Load()
	years := make([]int, 0, len(cur))
	for y := range cur {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func clonePickTable(t model.PickTable) model.PickTable {
	out := model.PickTable{
		Slots:  make(map[string]model.MarketValue, len(t.Slots)),
		Rounds: make(map[int]model.MarketValue, len(t.Rounds)),
	}
	for k, v := range t.Slots {
		out.Slots[k] = v
	}
	for k, v := range t.Rounds {
		out.Rounds[k] = v
	}
	return out
}
