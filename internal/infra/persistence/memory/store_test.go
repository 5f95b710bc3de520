package memory

import (
	"context"
	"testing"
	"time"

	"fieldplot/pkg/domain"
)

func sampleSession(name string) domain.Session {
	return domain.Session{
		Name: name,
		Hierarchy: domain.Hierarchy{
			Name: "survey",
			Sites: []domain.Site{{
				Name: "north",
				Specimens: []domain.Specimen{{
					Name: "sp-1",
					Parameters: []domain.Parameter{{
						Name:    "mass",
						Samples: []domain.Sample{{Index: 1, Value: 2.5}},
					}},
				}},
			}},
		},
		StyleName: "classic",
		Selection: []domain.SelectionKey{{Site: "north", Specimen: "sp-1"}},
		SavedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.SaveSession(ctx, sampleSession("field-a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := store.LoadSession(ctx, "field-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("session missing after save")
	}
	if loaded.StyleName != "classic" {
		t.Errorf("style = %q, want %q", loaded.StyleName, "classic")
	}
	if got := loaded.Hierarchy.SampleCount(); got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestLoadMissingSession(t *testing.T) {
	store := NewStore()
	_, ok, err := store.LoadSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("unexpected session")
	}
}

func TestLoadedSessionIsIsolated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.SaveSession(ctx, sampleSession("field-a")); err != nil {
		t.Fatal(err)
	}
	first, _, err := store.LoadSession(ctx, "field-a")
	if err != nil {
		t.Fatal(err)
	}
	first.Hierarchy.Sites[0].Name = "mutated"
	second, _, err := store.LoadSession(ctx, "field-a")
	if err != nil {
		t.Fatal(err)
	}
	if second.Hierarchy.Sites[0].Name != "north" {
		t.Fatal("mutation of loaded session leaked into the store")
	}
}

func TestListAndDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, name := range []string{"b", "a", "c"} {
		if err := store.SaveSession(ctx, sampleSession(name)); err != nil {
			t.Fatal(err)
		}
	}
	names, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	existed, err := store.DeleteSession(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if !existed {
		t.Fatal("delete reported missing session")
	}
	existed, err = store.DeleteSession(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Fatal("second delete should report absence")
	}
}

func TestExportImportState(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.SaveSession(ctx, sampleSession("field-a")); err != nil {
		t.Fatal(err)
	}
	snapshot := store.ExportState()
	if len(snapshot.Sessions) != 1 {
		t.Fatalf("snapshot has %d sessions, want 1", len(snapshot.Sessions))
	}

	restored := NewStore()
	restored.ImportState(snapshot)
	_, ok, err := restored.LoadSession(ctx, "field-a")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("imported session missing")
	}
}

func TestContextCancellation(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.SaveSession(ctx, sampleSession("x")); err == nil {
		t.Fatal("expected context error")
	}
	if _, _, err := store.LoadSession(ctx, "x"); err == nil {
		t.Fatal("expected context error")
	}
}
