// Package model defines the core domain types shared across the trade engine:
// league settings, value-source selection, assets, market rows and reports.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ScoringMode is the league scoring format. It is carried through settings
// but does not shift any values yet.
type ScoringMode string

const (
	ScoringPPR      ScoringMode = "PPR"
	ScoringHalfPPR  ScoringMode = "Half PPR"
	ScoringStandard ScoringMode = "Standard"
)

// League settings bounds and defaults.
const (
	MinDecay     = 0.80
	MaxDecay     = 0.99
	DefaultDecay = 0.93

	MinLeagueSize     = 8
	MaxLeagueSize     = 16
	DefaultLeagueSize = 12

	DefaultBlendWeight = 0.5

	MaxTolerance     = 0.5
	DefaultTolerance = 0.10
)

// LeagueSettings holds the rules that shape asset values.
type LeagueSettings struct {
	ScoringMode   ScoringMode `json:"scoring_mode" yaml:"scoring_mode"`
	Superflex     bool        `json:"superflex" yaml:"superflex"`
	TEPremium     bool        `json:"te_premium" yaml:"te_premium"`
	LeagueSize    int         `json:"league_size" yaml:"league_size"`
	KTCAdjustment bool        `json:"ktc_adjustment" yaml:"ktc_adjustment"`
	KTCDecay      float64     `json:"ktc_decay" yaml:"ktc_decay"`
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() LeagueSettings {
	return LeagueSettings{
		ScoringMode:   ScoringPPR,
		Superflex:     true,
		TEPremium:     false,
		LeagueSize:    DefaultLeagueSize,
		KTCAdjustment: true,
		KTCDecay:      DefaultDecay,
	}
}

// Normalize coerces every field into its allowed range. Unknown scoring modes
// fall back to PPR, a zero league size to the default.
func (s LeagueSettings) Normalize() LeagueSettings {
	switch s.ScoringMode {
	case ScoringPPR, ScoringHalfPPR, ScoringStandard:
	default:
		s.ScoringMode = ScoringPPR
	}
	switch {
	case s.LeagueSize == 0:
		s.LeagueSize = DefaultLeagueSize
	case s.LeagueSize < MinLeagueSize:
		s.LeagueSize = MinLeagueSize
	case s.LeagueSize > MaxLeagueSize:
		s.LeagueSize = MaxLeagueSize
	}
	s.KTCDecay = ClampDecay(s.KTCDecay)
	return s
}

// ClampDecay forces a package-adjustment decay into [MinDecay, MaxDecay].
// Zero and NaN mean "unset" and yield DefaultDecay.
func ClampDecay(d float64) float64 {
	if d == 0 || math.IsNaN(d) {
		return DefaultDecay
	}
	return clamp(d, MinDecay, MaxDecay)
}

// ClampBlendWeight forces a blend weight into [0, 1]. NaN yields the default.
func ClampBlendWeight(w float64) float64 {
	if math.IsNaN(w) {
		return DefaultBlendWeight
	}
	return clamp(w, 0, 1)
}

// ClampTolerance caps a suggestion tolerance at MaxTolerance. Non-positive and
// NaN values yield DefaultTolerance.
func ClampTolerance(t float64) float64 {
	if t <= 0 || math.IsNaN(t) {
		return DefaultTolerance
	}
	return math.Min(t, MaxTolerance)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ValueSource selects which market table values come from.
type ValueSource string

const (
	SourceDemo     ValueSource = "Demo"
	SourceExternal ValueSource = "External"
	SourceBlend    ValueSource = "Blend"
)

// ParseValueSource accepts the canonical names case-insensitively, plus
// "FantasyPros" as a legacy alias for External.
func ParseValueSource(s string) (ValueSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "demo":
		return SourceDemo, nil
	case "external", "fantasypros":
		return SourceExternal, nil
	case "blend":
		return SourceBlend, nil
	}
	return "", fmt.Errorf("model: unknown value source %q", s)
}

// UnmarshalJSON decodes a value source name, rejecting unknown names.
func (v *ValueSource) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseValueSource(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SourceConfig is the active value-source selection. BlendWeight applies to
// the External side and only matters when Source is SourceBlend.
type SourceConfig struct {
	Source      ValueSource `json:"source" yaml:"source"`
	BlendWeight float64     `json:"blend_weight" yaml:"blend_weight"`
}

// DefaultSourceConfig returns the startup value-source selection.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{Source: SourceDemo, BlendWeight: DefaultBlendWeight}
}

// Preference orders the suggestion pool.
type Preference string

const (
	PreferAny     Preference = "any"
	PreferPlayers Preference = "players"
	PreferPicks   Preference = "picks"
)

// ParsePreference maps a name to a Preference; anything unknown is PreferAny.
func ParsePreference(s string) Preference {
	switch Preference(strings.ToLower(strings.TrimSpace(s))) {
	case PreferPlayers:
		return PreferPlayers
	case PreferPicks:
		return PreferPicks
	}
	return PreferAny
}

// SuggestionPrefs controls how deficits are balanced.
type SuggestionPrefs struct {
	Preference Preference `json:"preference"`
	Tolerance  float64    `json:"tolerance"`
}

// DefaultSuggestionPrefs returns "any asset, ±10%".
func DefaultSuggestionPrefs() SuggestionPrefs {
	return SuggestionPrefs{Preference: PreferAny, Tolerance: DefaultTolerance}
}
