package model

// MarketValue is a pair of market prices for one asset: the 1QB market and
// the superflex market.
type MarketValue struct {
	Value   float64 `json:"value"`
	SFValue float64 `json:"sf_value"`
}

// For returns the column matching the league format.
func (m MarketValue) For(superflex bool) float64 {
	if superflex {
		return m.SFValue
	}
	return m.Value
}

// PlayerRow is one normalized row of a player market table.
type PlayerRow struct {
	Name     string   `json:"name"`
	Team     string   `json:"team,omitempty"`
	Position Position `json:"position"`
	Age      *int     `json:"age,omitempty"`
	MarketValue
}

// PickTable is one year's pick market. Slots is keyed by the exact slot
// string ("1.07"); Rounds holds the per-round averages keyed by round number.
type PickTable struct {
	Slots  map[string]MarketValue `json:"slots"`
	Rounds map[int]MarketValue    `json:"rounds"`
}

// PoolEntry is a candidate asset for balancing suggestions.
type PoolEntry struct {
	Key      string    `json:"key"`
	Kind     AssetKind `json:"type"`
	Name     string    `json:"name"`
	Position Position  `json:"position,omitempty"`
	Value    int       `json:"value"`
}
