package model

import (
	"fmt"
	"strings"
)

// Position is a player's roster position.
type Position string

const (
	QB Position = "QB"
	RB Position = "RB"
	WR Position = "WR"
	TE Position = "TE"
)

// ParsePosition upper-cases s and reports whether it is a known position.
func ParsePosition(s string) (Position, bool) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case QB, RB, WR, TE:
		return p, true
	}
	return p, false
}

// AssetKind tags the two asset variants.
type AssetKind string

const (
	KindPlayer AssetKind = "player"
	KindPick   AssetKind = "pick"
)

// Asset is either a *Player or a *Pick. The unexported method closes the set,
// so a type switch over the two variants is exhaustive.
type Asset interface {
	AssetID() string
	Kind() AssetKind
	// Label is the display name used for chart segments.
	Label() string
	isAsset()
}

// Player is a rostered player.
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Age      *int     `json:"age,omitempty"`
}

func (p *Player) AssetID() string { return p.ID }
func (p *Player) Kind() AssetKind { return KindPlayer }
func (*Player) isAsset()          {}

func (p *Player) Label() string {
	if p.Name == "" {
		return "Player"
	}
	return p.Name
}

// Pick is a future draft pick. Slot has the form "ROUND.PICK", e.g. "1.07".
type Pick struct {
	ID   string `json:"id"`
	Year int    `json:"year"`
	Slot string `json:"slot"`
}

func (p *Pick) AssetID() string { return p.ID }
func (p *Pick) Kind() AssetKind { return KindPick }
func (*Pick) isAsset()          {}

func (p *Pick) Label() string {
	return fmt.Sprintf("%d %s", p.Year, p.Slot)
}

// Team owns an ordered list of assets.
type Team struct {
	ID     string
	Name   string
	Assets []Asset
}

// AssetPatch is a partial update. Player fields are ignored for picks and
// vice versa.
type AssetPatch struct {
	Name     *string   `json:"name,omitempty"`
	Position *Position `json:"position,omitempty"`
	Age      *int      `json:"age,omitempty"`
	Year     *int      `json:"year,omitempty"`
	Slot     *string   `json:"slot,omitempty"`
}

// AssetView is the flattened, JSON-friendly form of an Asset with its value.
type AssetView struct {
	ID       string    `json:"id"`
	Type     AssetKind `json:"type"`
	Name     string    `json:"name,omitempty"`
	Position Position  `json:"position,omitempty"`
	Age      *int      `json:"age,omitempty"`
	Year     int       `json:"year,omitempty"`
	Slot     string    `json:"slot,omitempty"`
	Value    int       `json:"value"`
}

// ViewOf flattens an asset.
func ViewOf(a Asset, value int) AssetView {
	v := AssetView{ID: a.AssetID(), Type: a.Kind(), Value: value}
	switch x := a.(type) {
	case *Player:
		v.Name = x.Name
		v.Position = x.Position
		v.Age = x.Age
	case *Pick:
		v.Year = x.Year
		v.Slot = x.Slot
	}
	return v
}
