// Package league owns the mutable state of one calculator session: league
// settings, value-source selection, suggestion preferences and the teams
// being compared.
//
// Every mutating operation returns a freshly derived report. Nothing derived
// is cached between calls.
package league

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dynastycalc/trade-engine/internal/adjust"
	"github.com/dynastycalc/trade-engine/internal/balance"
	"github.com/dynastycalc/trade-engine/internal/importer"
	"github.com/dynastycalc/trade-engine/internal/market"
	"github.com/dynastycalc/trade-engine/internal/metrics"
	"github.com/dynastycalc/trade-engine/internal/model"
	"github.com/dynastycalc/trade-engine/internal/store"
	"github.com/dynastycalc/trade-engine/internal/valuation"
)

var (
	ErrTeamNotFound    = errors.New("league: team not found")
	ErrAssetNotFound   = errors.New("league: asset not found")
	ErrInvalidPosition = errors.New("league: position must be QB, RB, WR or TE")
	ErrInvalidYear     = errors.New("league: pick year must be positive")
)

// DefaultSlot is the slot a new pick starts with.
const DefaultSlot = "1.01"

// Session is a single calculator workspace. It is safe for concurrent use;
// one mutex serializes all reads and writes.
type Session struct {
	mu       sync.Mutex
	settings model.LeagueSettings
	source   model.SourceConfig
	prefs    model.SuggestionPrefs
	teams    []*model.Team
	initial  []string

	catalog *market.Catalog
	snap    *store.Snapshotter
	now     func() time.Time
	newID   func() string
}

// Option configures a Session.
type Option func(*Session)

// WithSnapshotter persists settings and source changes through sn.
func WithSnapshotter(sn *store.Snapshotter) Option {
	return func(s *Session) { s.snap = sn }
}

// WithTeams replaces the default starting teams with one empty team per
// name. Blank names get default names. With no names the session starts empty.
func WithTeams(names ...string) Option {
	return func(s *Session) { s.initial = append([]string{}, names...) }
}

// WithClock overrides the wall clock used for pick discounting.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session over catalog with default settings and two
// empty teams, "Team A" and "Team B", unless WithTeams says otherwise.
func NewSession(catalog *market.Catalog, opts ...Option) *Session {
	s := &Session{
		settings: model.DefaultSettings(),
		source:   model.DefaultSourceConfig(),
		prefs:    model.DefaultSuggestionPrefs(),
		catalog:  catalog,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		initial:  []string{"", ""},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, name := range s.initial {
		name = strings.TrimSpace(name)
		if name == "" {
			name = defaultTeamName(len(s.teams))
		}
		s.teams = append(s.teams, &model.Team{ID: s.newID(), Name: name})
	}
	s.initial = nil
	return s
}

// Restore applies a stored snapshot, if any. It reports whether one was found.
func (s *Session) Restore(ctx context.Context) bool {
	if s.snap == nil {
		return false
	}
	snap := s.snap.Load(ctx)
	if snap == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = snap.Settings
	s.source = model.SourceConfig{Source: snap.Source, BlendWeight: snap.BlendWeight}
	slog.Info("session restored",
		"source", snap.Source,
		"superflex", snap.Settings.Superflex,
		"decay", snap.Settings.KTCDecay,
	)
	return true
}

// CurrentYear is the year pick discounts are measured from.
func (s *Session) CurrentYear() int {
	return s.now().Year()
}

// Catalog returns the market catalog the session values against.
func (s *Session) Catalog() *market.Catalog {
	return s.catalog
}

// Settings returns the current league settings.
func (s *Session) Settings() model.LeagueSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Source returns the current value-source selection.
func (s *Session) Source() model.SourceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Prefs returns the current suggestion preferences.
func (s *Session) Prefs() model.SuggestionPrefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// --- Teams ---

func defaultTeamName(n int) string {
	if n < 26 {
		return fmt.Sprintf("Team %c", 'A'+n)
	}
	return fmt.Sprintf("Team %d", n+1)
}

// AddTeam appends an empty team. A blank name becomes "Team A", "Team B", …
// by position.
func (s *Session) AddTeam(name string) (*model.Team, model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTeamName(len(s.teams))
	}
	t := &model.Team{ID: s.newID(), Name: name}
	s.teams = append(s.teams, t)
	slog.Debug("team added", "team", t.ID, "name", name)
	return cloneTeam(t), s.reportLocked()
}

// RemoveTeam deletes a team. Removing the last team leaves an empty league
// whose report averages to 0.
func (s *Session) RemoveTeam(teamID string) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.teamIndex(teamID)
	if i < 0 {
		return model.Report{}, ErrTeamNotFound
	}
	s.teams = append(s.teams[:i], s.teams[i+1:]...)
	slog.Debug("team removed", "team", teamID)
	return s.reportLocked(), nil
}

// RenameTeam changes a team's display name.
func (s *Session) RenameTeam(teamID, name string) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.team(teamID)
	if t == nil {
		return model.Report{}, ErrTeamNotFound
	}
	t.Name = strings.TrimSpace(name)
	return s.reportLocked(), nil
}

// --- Assets ---

// AddPlayer appends a player to a team. An empty position defaults to WR and
// a non-positive age is treated as unknown.
func (s *Session) AddPlayer(teamID, name string, pos model.Position, age *int) (*model.Player, model.Report, error) {
	if pos == "" {
		pos = model.WR
	}
	p, ok := model.ParsePosition(string(pos))
	if !ok {
		return nil, model.Report{}, ErrInvalidPosition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.team(teamID)
	if t == nil {
		return nil, model.Report{}, ErrTeamNotFound
	}
	player := &model.Player{
		ID:       s.newID(),
		Name:     strings.TrimSpace(name),
		Position: p,
		Age:      normalizeAge(age),
	}
	t.Assets = append(t.Assets, player)
	cp := *player
	return &cp, s.reportLocked(), nil
}

// AddPick appends a draft pick to a team. A non-positive year defaults to
// next year and a blank slot to DefaultSlot.
func (s *Session) AddPick(teamID string, year int, slot string) (*model.Pick, model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.team(teamID)
	if t == nil {
		return nil, model.Report{}, ErrTeamNotFound
	}
	if year <= 0 {
		year = s.CurrentYear() + 1
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = DefaultSlot
	}
	pick := &model.Pick{ID: s.newID(), Year: year, Slot: slot}
	t.Assets = append(t.Assets, pick)
	cp := *pick
	return &cp, s.reportLocked(), nil
}

// RemoveAsset deletes one asset from a team.
func (s *Session) RemoveAsset(teamID, assetID string) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.team(teamID)
	if t == nil {
		return model.Report{}, ErrTeamNotFound
	}
	for i, a := range t.Assets {
		if a.AssetID() == assetID {
			t.Assets = append(t.Assets[:i], t.Assets[i+1:]...)
			return s.reportLocked(), nil
		}
	}
	return model.Report{}, ErrAssetNotFound
}

// UpdateAsset applies a partial update. Player patches may change name,
// position and age (age ≤ 0 clears it). Pick patches may change year and
// slot; a non-positive year or blank slot keeps the current value.
func (s *Session) UpdateAsset(teamID, assetID string, patch model.AssetPatch) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.team(teamID)
	if t == nil {
		return model.Report{}, ErrTeamNotFound
	}
	var target model.Asset
	for _, a := range t.Assets {
		if a.AssetID() == assetID {
			target = a
			break
		}
	}
	if target == nil {
		return model.Report{}, ErrAssetNotFound
	}

	switch a := target.(type) {
	case *model.Player:
		if patch.Position != nil {
			p, ok := model.ParsePosition(string(*patch.Position))
			if !ok {
				return model.Report{}, ErrInvalidPosition
			}
			a.Position = p
		}
		if patch.Name != nil {
			a.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Age != nil {
			a.Age = normalizeAge(patch.Age)
		}
	case *model.Pick:
		if patch.Year != nil && *patch.Year > 0 {
			a.Year = *patch.Year
		}
		if patch.Slot != nil {
			if slot := strings.TrimSpace(*patch.Slot); slot != "" {
				a.Slot = slot
			}
		}
	}
	return s.reportLocked(), nil
}

func normalizeAge(age *int) *int {
	if age == nil || *age <= 0 {
		return nil
	}
	a := *age
	return &a
}

// --- Settings & source ---

// UpdateSettings replaces the league settings after normalizing them.
func (s *Session) UpdateSettings(ctx context.Context, settings model.LeagueSettings) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings.Normalize()
	s.saveLocked(ctx)
	return s.reportLocked()
}

// SetSource selects the value source, keeping the blend weight.
func (s *Session) SetSource(ctx context.Context, src model.ValueSource) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source.Source = src
	s.saveLocked(ctx)
	return s.reportLocked()
}

// SetBlendWeight sets the External share used by the Blend source.
func (s *Session) SetBlendWeight(ctx context.Context, w float64) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source.BlendWeight = model.ClampBlendWeight(w)
	s.saveLocked(ctx)
	return s.reportLocked()
}

// SetSuggestionPrefs changes how deficits are balanced. Preferences are not
// persisted.
func (s *Session) SetSuggestionPrefs(prefs model.SuggestionPrefs) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = model.SuggestionPrefs{
		Preference: model.ParsePreference(string(prefs.Preference)),
		Tolerance:  model.ClampTolerance(prefs.Tolerance),
	}
	return s.reportLocked()
}

// saveLocked writes the snapshot. Failures are logged and counted, never
// returned.
func (s *Session) saveLocked(ctx context.Context) {
	if s.snap == nil {
		return
	}
	err := s.snap.Save(ctx, store.Snapshot{
		Settings:    s.settings,
		Source:      s.source.Source,
		BlendWeight: s.source.BlendWeight,
	})
	if err != nil {
		metrics.SnapshotFailures.Inc()
		slog.Warn("snapshot save failed", "err", err)
	}
}

// --- Imports ---

// ImportPlayers replaces the External player table with the parsed CSV. On
// error the current table is left untouched.
func (s *Session) ImportPlayers(r io.Reader) (int, model.Report, error) {
	rows, err := importer.ParsePlayers(r)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("players", "rejected").Inc()
		slog.Warn("player import rejected", "err", err)
		return 0, model.Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.ReplacePlayers(rows)
	metrics.ImportsTotal.WithLabelValues("players", "ok").Inc()
	metrics.ImportedRows.WithLabelValues("players").Set(float64(len(rows)))
	slog.Info("players imported", "rows", len(rows))
	return len(rows), s.reportLocked(), nil
}

// ImportPicks replaces the External pick table for year. On error every
// year's table is left untouched.
func (s *Session) ImportPicks(year int, r io.Reader) (int, model.Report, error) {
	if year <= 0 {
		return 0, model.Report{}, ErrInvalidYear
	}
	table, err := importer.ParsePicks(r)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("picks", "rejected").Inc()
		slog.Warn("pick import rejected", "year", year, "err", err)
		return 0, model.Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.MergePicks(year, table)
	metrics.ImportsTotal.WithLabelValues("picks", "ok").Inc()
	metrics.ImportedRows.WithLabelValues("picks").Set(float64(len(table.Slots)))
	slog.Info("picks imported", "year", year, "slots", len(table.Slots), "rounds", len(table.Rounds))
	return len(table.Slots), s.reportLocked(), nil
}

// --- Report ---

// Report derives the full league view from current state.
func (s *Session) Report() model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportLocked()
}

func (s *Session) reportLocked() model.Report {
	start := time.Now()
	defer func() {
		metrics.ReportsComputed.Inc()
		metrics.ReportLatency.Observe(time.Since(start).Seconds())
	}()

	year := s.CurrentYear()
	rep := model.Report{
		Settings:    s.settings,
		Source:      s.source,
		Prefs:       s.prefs,
		Decay:       model.ClampDecay(s.settings.KTCDecay),
		Teams:       make([]model.TeamReport, 0, len(s.teams)),
		GeneratedAt: s.now().UTC(),
	}

	for _, t := range s.teams {
		tr := model.TeamReport{
			ID:       t.ID,
			Name:     t.Name,
			Assets:   make([]model.AssetView, 0, len(t.Assets)),
			Segments: make([]model.Segment, 0, len(t.Assets)),
		}
		values := make([]int, 0, len(t.Assets))
		for _, a := range t.Assets {
			v := valuation.Resolve(a, s.settings, s.catalog, s.source, year)
			values = append(values, v)
			tr.Assets = append(tr.Assets, model.ViewOf(a, v))
			tr.Segments = append(tr.Segments, model.Segment{Label: a.Label(), Value: max(v, 0)})
		}
		sort.SliceStable(tr.Segments, func(i, j int) bool {
			return tr.Segments[i].Value > tr.Segments[j].Value
		})
		tr.RawTotal = adjust.Sum(values)
		tr.Adjusted = adjust.Total(values, s.settings)
		rep.GrandAdjusted += tr.Adjusted
		rep.Teams = append(rep.Teams, tr)
	}

	if n := len(rep.Teams); n > 0 {
		rep.AverageAdjusted = roundDiv(rep.GrandAdjusted, n)
	}

	var pool []model.PoolEntry
	for i := range rep.Teams {
		tr := &rep.Teams[i]
		tr.Delta = tr.Adjusted - rep.AverageAdjusted
		switch {
		case tr.Delta >= -1 && tr.Delta <= 1:
			tr.Status = model.StatusBalanced
		case tr.Delta > 0:
			tr.Status = model.StatusSurplus
		default:
			tr.Status = model.StatusDeficit
			if pool == nil {
				pool = balance.DemoPool(s.catalog.DemoPlayers(), s.settings, year+1)
			}
			res := balance.Find(float64(tr.Delta), pool, s.prefs.Preference, s.prefs.Tolerance)
			metrics.Suggestions.WithLabelValues(string(res.Match)).Inc()
			tr.Suggestions = res.Entries
		}
	}
	return rep
}

// roundDiv is a/b rounded half away from zero.
func roundDiv(a, b int) int {
	q, r := a/b, a%b
	if 2*r >= b {
		q++
	} else if 2*r <= -b {
		q--
	}
	return q
}

func (s *Session) teamIndex(id string) int {
	for i, t := range s.teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) team(id string) *model.Team {
	if i := s.teamIndex(id); i >= 0 {
		return s.teams[i]
	}
	return nil
}

func cloneTeam(t *model.Team) *model.Team {
	cp := *t
	cp.Assets = append([]model.Asset(nil), t.Assets...)
	return &cp
}
