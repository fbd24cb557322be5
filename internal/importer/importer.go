// Package importer parses uploaded market CSVs into typed market rows.
//
// Both formats are header-driven and comma-separated; header names are
// matched case-insensitively. Numeric cells that do not parse become 0, rows
// missing required fields are dropped, and only structurally broken files
// (no header row, missing key column, unreadable input) are rejected. A rejected
// file never yields a partial table.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dynastycalc/trade-engine/internal/model"
	"github.com/dynastycalc/trade-engine/internal/pickcurve"
)

var (
	// ErrParseFailed is wrapped by every import error.
	ErrParseFailed = errors.New("importer: parse failed")

	ErrEmptyFile     = fmt.Errorf("%w: file has no header row", ErrParseFailed)
	ErrMissingColumn = fmt.Errorf("%w: required column missing", ErrParseFailed)
	ErrMalformed     = fmt.Errorf("%w: malformed csv", ErrParseFailed)
)

// table is a parsed CSV with a lower-cased header index.
type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	t := &table{index: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.index[h]; !dup && h != "" {
			t.index[h] = i
		}
	}
	return t, nil
}

// has reports whether any of names is a header.
func (t *table) has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.index[n]; ok {
			return true
		}
	}
	return false
}

// cell returns the trimmed value of the first present column among names.
func (t *table) cell(row []string, names ...string) string {
	for _, n := range names {
		i, ok := t.index[n]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

// number parses a cell, coercing anything unparseable to 0.
func number(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// firstNonZero returns the first non-zero numeric cell among columns.
func (t *table) firstNonZero(row []string, names ...string) float64 {
	for _, n := range names {
		if v := number(t.cell(row, n)); v != 0 {
			return v
		}
	}
	return 0
}

// ParsePlayers reads a player market CSV. Recognised columns: name|player,
// position, team, age, value, "sf value"|sf_value.
func ParsePlayers(r io.Reader) ([]model.PlayerRow, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if !t.has("name", "player") {
		return nil, fmt.Errorf("%w: name or player", ErrMissingColumn)
	}
	if !t.has("position") {
		return nil, fmt.Errorf("%w: position", ErrMissingColumn)
	}

	out := make([]model.PlayerRow, 0, len(t.rows))
	for _, row := range t.rows {
		name := t.cell(row, "name", "player")
		pos := strings.ToUpper(t.cell(row, "position"))
		if name == "" || pos == "" {
			continue
		}
		pr := model.PlayerRow{
			Name:     name,
			Team:     t.cell(row, "team"),
			Position: model.Position(pos),
			MarketValue: model.MarketValue{
				Value:   number(t.cell(row, "value")),
				SFValue: t.firstNonZero(row, "sf value", "sf_value"),
			},
		}
		if age := number(t.cell(row, "age")); age > 0 {
			a := int(math.Round(age))
			pr.Age = &a
		}
		out = append(out, pr)
	}
	return out, nil
}

// ParsePicks reads a draft pick CSV for one year. Recognised columns: round
// (a slot such as "1.07"), value, "sf value"|sf_value. A missing or zero
// superflex value defaults to value. Slots are also averaged per round.
func ParsePicks(r io.Reader) (model.PickTable, error) {
	t, err := readTable(r)
	if err != nil {
		return model.PickTable{}, err
	}
	if !t.has("round") {
		return model.PickTable{}, fmt.Errorf("%w: round", ErrMissingColumn)
	}

	type bucket struct {
		value, sf float64
		n         int
	}
	slots := make(map[string]model.MarketValue)
	buckets := make(map[int]*bucket)

	for _, row := range t.rows {
		slot := t.cell(row, "round")
		if slot == "" {
			continue
		}
		v := number(t.cell(row, "value"))
		sf := t.firstNonZero(row, "sf value", "sf_value")
		if sf == 0 {
			sf = v
		}
		slots[slot] = model.MarketValue{Value: v, SFValue: sf}

		rn, ok := pickcurve.RoundNumber(slot)
		if !ok {
			continue
		}
		b := buckets[rn]
		if b == nil {
			b = &bucket{}
			buckets[rn] = b
		}
		b.value += v
		b.sf += sf
		b.n++
	}

	rounds := make(map[int]model.MarketValue, len(buckets))
	for rn, b := range buckets {
		n := float64(b.n)
		rounds[rn] = model.MarketValue{
			Value:   math.Round(b.value / n),
			SFValue: math.Round(b.sf / n),
		}
	}
	return model.PickTable{Slots: slots, Rounds: rounds}, nil
}
