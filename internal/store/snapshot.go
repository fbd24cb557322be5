package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dynastycalc/trade-engine/internal/model"
)

// Snapshot keys. Each piece of session configuration is stored separately so
// a corrupt value only loses that piece.
const (
	KeySettings    = "dtc_settings"
	KeyValueSource = "dtc_value_source"
	KeyBlendWeight = "dtc_blend_weight"
)

// Snapshot is the persisted part of a session: league settings, value
// source and blend weight. Teams are never persisted.
type Snapshot struct {
	Settings    model.LeagueSettings
	Source      model.ValueSource
	BlendWeight float64
}

// DefaultSnapshot is what a session starts with when nothing is stored.
func DefaultSnapshot() Snapshot {
	src := model.DefaultSourceConfig()
	return Snapshot{
		Settings:    model.DefaultSettings(),
		Source:      src.Source,
		BlendWeight: src.BlendWeight,
	}
}

// Snapshotter saves and restores snapshots through a Store.
type Snapshotter struct {
	store Store
}

// NewSnapshotter creates a snapshotter over st.
func NewSnapshotter(st Store) *Snapshotter {
	return &Snapshotter{store: st}
}

// Save writes every key. It attempts all three writes and returns the joined
// errors; callers treat a failed save as non-fatal.
func (s *Snapshotter) Save(ctx context.Context, snap Snapshot) error {
	var errs []error
	put := func(key string, v any) {
		data, err := json.Marshal(v)
		if err == nil {
			err = s.store.Put(ctx, key, data)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", key, err))
		}
	}
	put(KeySettings, snap.Settings)
	put(KeyValueSource, snap.Source)
	put(KeyBlendWeight, snap.BlendWeight)
	return errors.Join(errs...)
}

// Load restores a snapshot. It returns nil when no key is stored at all or
// the store is unreachable. A key that is missing or does not decode falls
// back to its default; a corrupt key is also deleted. Loading never fails.
func (s *Snapshotter) Load(ctx context.Context) *Snapshot {
	snap := DefaultSnapshot()
	found := false

	if data, ok := s.get(ctx, KeySettings); ok {
		found = true
		settings := model.DefaultSettings()
		if err := json.Unmarshal(data, &settings); err != nil {
			slog.Warn("discarding corrupt settings snapshot", "err", err)
			s.discard(ctx, KeySettings)
		} else {
			snap.Settings = settings.Normalize()
		}
	}

	if data, ok := s.get(ctx, KeyValueSource); ok {
		found = true
		var src model.ValueSource
		if err := json.Unmarshal(data, &src); err != nil {
			slog.Warn("discarding corrupt value source snapshot", "err", err)
			s.discard(ctx, KeyValueSource)
		} else {
			snap.Source = src
		}
	}

	if data, ok := s.get(ctx, KeyBlendWeight); ok {
		found = true
		var w float64
		if err := json.Unmarshal(data, &w); err != nil || math.IsNaN(w) {
			slog.Warn("discarding corrupt blend weight snapshot", "err", err)
			s.discard(ctx, KeyBlendWeight)
		} else {
			snap.BlendWeight = model.ClampBlendWeight(w)
		}
	}

	if !found {
		return nil
	}
	return &snap
}

func (s *Snapshotter) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("snapshot read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

func (s *Snapshotter) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		slog.Warn("snapshot delete failed", "key", key, "err", err)
	}
}
