package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dynastycalc/trade-engine/internal/model"
)

// failingStore errors on every call.
type failingStore struct{}

var errDown = errors.New("backend down")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (failingStore) Put(context.Context, string, []byte) error   { return errDown }
func (failingStore) Delete(context.Context, string) error        { return errDown }

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	if _, err := ms.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	buf := []byte("v1")
	if err := ms.Put(ctx, "k", buf); err != nil {
		t.Fatalf("put: %v", err)
	}
	buf[0] = 'x'

	got, err := ms.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("expected v1, got %q (%v)", got, err)
	}

	if err := ms.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ms.Len() != 0 {
		t.Errorf("expected empty store, got %d keys", ms.Len())
	}
}

func TestSnapshotter_LoadEmptyIsNil(t *testing.T) {
	sn := NewSnapshotter(NewMemoryStore())
	if got := sn.Load(context.Background()); got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
}

func TestSnapshotter_SaveLoad(t *testing.T) {
	ctx := context.Background()
	sn := NewSnapshotter(NewMemoryStore())

	settings := model.DefaultSettings()
	settings.Superflex = false
	settings.TEPremium = true
	settings.KTCDecay = 0.85

	if err := sn.Save(ctx, Snapshot{Settings: settings, Source: model.SourceBlend, BlendWeight: 0.3}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := sn.Load(ctx)
	if got == nil {
		t.Fatal("expected snapshot")
	}
	if got.Settings != settings {
		t.Errorf("settings = %+v, want %+v", got.Settings, settings)
	}
	if got.Source != model.SourceBlend || got.BlendWeight != 0.3 {
		t.Errorf("unexpected source %s / %v", got.Source, got.BlendWeight)
	}
}

func TestSnapshotter_CorruptKeysFallBackIndividually(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	ms.Put(ctx, KeySettings, []byte(`{"superflex": fals`))
	ms.Put(ctx, KeyValueSource, []byte(`"Bogus"`))
	ms.Put(ctx, KeyBlendWeight, []byte(`0.8`))

	got := NewSnapshotter(ms).Load(ctx)
	if got == nil {
		t.Fatal("expected snapshot")
	}
	if got.Settings != model.DefaultSettings() {
		t.Errorf("corrupt settings should load defaults, got %+v", got.Settings)
	}
	if got.Source != model.SourceDemo {
		t.Errorf("unknown source should load Demo, got %s", got.Source)
	}
	if got.BlendWeight != 0.8 {
		t.Errorf("valid blend weight should survive, got %v", got.BlendWeight)
	}
	for _, key := range []string{KeySettings, KeyValueSource} {
		if _, err := ms.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("corrupt %s should be deleted, got %v", key, err)
		}
	}
	if _, err := ms.Get(ctx, KeyBlendWeight); err != nil {
		t.Errorf("valid blend weight should stay stored: %v", err)
	}
}

func TestSnapshotter_NormalizesOnLoad(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	ms.Put(ctx, KeySettings, []byte(`{"ktc_decay": 5, "league_size": 40, "superflex": false}`))
	ms.Put(ctx, KeyValueSource, []byte(`"FantasyPros"`))
	ms.Put(ctx, KeyBlendWeight, []byte(`-2`))

	got := NewSnapshotter(ms).Load(ctx)
	if got.Settings.KTCDecay != model.MaxDecay {
		t.Errorf("decay should clamp to %v, got %v", model.MaxDecay, got.Settings.KTCDecay)
	}
	if got.Settings.LeagueSize != model.MaxLeagueSize {
		t.Errorf("league size should clamp, got %d", got.Settings.LeagueSize)
	}
	if got.Settings.Superflex {
		t.Error("stored superflex=false should apply")
	}
	if !got.Settings.KTCAdjustment {
		t.Error("fields absent from the snapshot keep their defaults")
	}
	if got.Source != model.SourceExternal {
		t.Errorf("FantasyPros alias should map to External, got %s", got.Source)
	}
	if got.BlendWeight != 0 {
		t.Errorf("blend weight should clamp to 0, got %v", got.BlendWeight)
	}
}

func TestSnapshotter_UnreachableStore(t *testing.T) {
	sn := NewSnapshotter(failingStore{})
	if got := sn.Load(context.Background()); got != nil {
		t.Errorf("unreachable store should load nothing, got %+v", got)
	}
	if err := sn.Save(context.Background(), DefaultSnapshot()); !errors.Is(err, errDown) {
		t.Errorf("expected joined backend error, got %v", err)
	}
}
