package model

import "time"

// TeamStatus classifies a team against the league average.
type TeamStatus string

const (
	StatusBalanced TeamStatus = "balanced" // |delta| <= 1
	StatusSurplus  TeamStatus = "surplus"  // consider trimming a depth piece
	StatusDeficit  TeamStatus = "deficit"
)

// Segment is one stacked-chart slice: an asset label and its raw value.
type Segment struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// TeamReport is the derived view of one team.
type TeamReport struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Assets      []AssetView `json:"assets"`
	Segments    []Segment   `json:"segments"`
	RawTotal    int         `json:"raw_total"`
	Adjusted    int         `json:"adjusted_total"`
	Delta       int         `json:"delta"`
	Status      TeamStatus  `json:"status"`
	Suggestions []PoolEntry `json:"suggestions,omitempty"`
}

// Report is the full recomputed league view. It is never cached; every
// observation builds a new one from current state.
type Report struct {
	Settings        LeagueSettings  `json:"settings"`
	Source          SourceConfig    `json:"source"`
	Prefs           SuggestionPrefs `json:"suggestion_prefs"`
	Decay           float64         `json:"decay"`
	GrandAdjusted   int             `json:"grand_adjusted"`
	AverageAdjusted int             `json:"average_adjusted"`
	Teams           []TeamReport    `json:"teams"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
