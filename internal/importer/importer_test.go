package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/dynastycalc/trade-engine/internal/model"
)

func TestParsePlayers_Basic(t *testing.T) {
	csv := "Player,Team,Position,Age,Value,SF Value\n" +
		"Josh Allen,BUF,qb,29,850,1100\n" +
		"\n" +
		"Bijan Robinson,ATL,RB,,820.5,\n" +
		",DAL,WR,25,900,900\n" +
		"No Position,KC,,30,1,1\n"

	rows, err := ParsePlayers(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}

	allen := rows[0]
	if allen.Name != "Josh Allen" || allen.Position != model.QB || allen.Team != "BUF" {
		t.Errorf("unexpected row %+v", allen)
	}
	if allen.Age == nil || *allen.Age != 29 {
		t.Errorf("expected age 29, got %v", allen.Age)
	}
	if allen.Value != 850 || allen.SFValue != 1100 {
		t.Errorf("unexpected values %+v", allen.MarketValue)
	}

	bijan := rows[1]
	if bijan.Age != nil {
		t.Errorf("blank age should be nil, got %d", *bijan.Age)
	}
	if bijan.Value != 820.5 || bijan.SFValue != 0 {
		t.Errorf("player sf value defaults to 0, got %+v", bijan.MarketValue)
	}
}

func TestParsePlayers_SnakeCaseAndGarbageNumbers(t *testing.T) {
	csv := "name,position,value,sf_value,age\nA,WR,abc,12,-3\n"
	rows, err := ParsePlayers(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Value != 0 {
		t.Errorf("unparseable value should be 0, got %v", rows[0].Value)
	}
	if rows[0].SFValue != 12 {
		t.Errorf("sf_value column not read, got %v", rows[0].SFValue)
	}
	if rows[0].Age != nil {
		t.Error("negative age should be dropped")
	}
}

func TestParsePlayers_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrEmptyFile},
		{"blank lines", "\n\n", ErrEmptyFile},
		{"no name column", "position,value\nQB,1\n", ErrMissingColumn},
		{"no position column", "name,value\nX,1\n", ErrMissingColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlayers(strings.NewReader(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrParseFailed) {
				t.Errorf("error should wrap ErrParseFailed: %v", err)
			}
		})
	}
}

func TestParsePlayers_HeaderOnly(t *testing.T) {
	rows, err := ParsePlayers(strings.NewReader("Name,Position,Value\n"))
	if err != nil {
		t.Fatalf("header-only file should parse: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestParsePicks_RoundAggregation(t *testing.T) {
	csv := "Round,Value,SF Value\n" +
		"1.01,700,900\n" +
		"1.02,650,\n" +
		"1.03,601,850\n" +
		"2.01,200,260\n" +
		",5,5\n"

	table, err := ParsePicks(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Slots) != 4 {
		t.Errorf("expected 4 slots, got %d", len(table.Slots))
	}
	if got := table.Slots["1.02"]; got.SFValue != 650 {
		t.Errorf("missing sf value should default to value, got %+v", got)
	}

	// value: (700+650+601)/3 = 650.33 → 650
	// sf:    (900+650+850)/3 = 800
	r1 := table.Rounds[1]
	if r1.Value != 650 || r1.SFValue != 800 {
		t.Errorf("round 1 aggregate = %+v, want {650 800}", r1)
	}
	if r2 := table.Rounds[2]; r2.Value != 200 || r2.SFValue != 260 {
		t.Errorf("round 2 aggregate = %+v", r2)
	}
}

func TestParsePicks_RoundsHalfUp(t *testing.T) {
	csv := "round,value,sf_value\n3.01,10,11\n3.02,11,12\n"
	table, err := ParsePicks(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := table.Rounds[3]; r.Value != 11 || r.SFValue != 12 {
		t.Errorf("expected 10.5→11 and 11.5→12, got %+v", r)
	}
}

func TestParsePicks_MissingRoundHeader(t *testing.T) {
	_, err := ParsePicks(strings.NewReader("slot,value\n1.01,700\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestParsePicks_UnparseableRoundKeepsSlot(t *testing.T) {
	table, err := ParsePicks(strings.NewReader("round,value\nlate,40\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := table.Slots["late"]; !ok {
		t.Error("slot should still be recorded")
	}
	if len(table.Rounds) != 0 {
		t.Errorf("unparseable round should not aggregate, got %v", table.Rounds)
	}
}

func TestParsePicks_BOMHeader(t *testing.T) {
	table, err := ParsePicks(strings.NewReader("\ufeffRound,Value\n1.01,700\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Slots["1.01"].Value != 700 {
		t.Error("BOM should not hide the round column")
	}
}
