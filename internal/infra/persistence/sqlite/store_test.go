package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fieldplot/pkg/domain"
)

func testSession(name string) domain.Session {
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
						Unit:    "g",
						Samples: []domain.Sample{{Index: 1, Value: 2.5}, {Index: 2, Value: 3.5}},
					}},
				}},
			}},
		},
		StyleName: "dark",
		Selection: []domain.SelectionKey{{Site: "north", Specimen: "sp-1"}},
		SavedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.SaveSession(ctx, testSession("field-a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	session, ok, err := reopened.LoadSession(ctx, "field-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("session missing after reopen")
	}
	if session.StyleName != "dark" {
		t.Errorf("style = %q, want %q", session.StyleName, "dark")
	}
	if got := session.Hierarchy.SampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
	if !session.SavedAt.Equal(testSession("field-a").SavedAt) {
		t.Errorf("saved at = %v", session.SavedAt)
	}
}

func TestDeletePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSession(ctx, testSession("field-a")); err != nil {
		t.Fatal(err)
	}
	existed, err := store.DeleteSession(ctx, "field-a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Fatal("delete reported missing session")
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()
	names, err := reopened.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("names = %v, want empty", names)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != "fieldplot.db" {
		t.Fatalf("path = %q, want %q", store.Path(), "fieldplot.db")
	}
}

func TestEncodeDecodeSession(t *testing.T) {
	session := testSession("round")
	payload, err := encodeSession(session)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeSession(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Name != session.Name || decoded.StyleName != session.StyleName {
		t.Fatalf("decoded %+v", decoded)
	}
	if _, err := decodeSession([]byte("not gzip")); err == nil {
		t.Fatal("expected error for corrupt payload")
	}
}
