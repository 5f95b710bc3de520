package styles

import (
	"testing"

	"fieldplot/pkg/domain"
)

func TestNewRegistryLoadsDefaults(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := r.Names()
	want := []string{"classic", "dark", "minimal", "print"}
	if len(names) != len(want) {
		t.Fatalf("got %d styles %v, want %v", len(names), names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	first, err := r.Lookup("classic")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	first.Palette[0] = "#zzzzzz"
	second, err := r.Lookup("classic")
	if err != nil {
		t.Fatal(err)
	}
	if second.Palette[0] == "#zzzzzz" {
		t.Fatal("mutating a looked-up style leaked into the registry")
	}
}

func TestLookupUnknown(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Lookup("neon")
	if !domain.IsNotFound(err) {
		t.Fatalf("got %v, want not-found", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name  string
		style domain.Style
	}{
		{"missing name", domain.Style{Palette: []string{"#fff"}, Width: 10, Height: 10}},
		{"missing palette", domain.Style{Name: "x", Width: 10, Height: 10}},
		{"zero dimensions", domain.Style{Name: "x", Palette: []string{"#fff"}}},
	}
	for _, tc := range cases {
		if err := r.Register(tc.style); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRegisterCustomStyle(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	custom := domain.Style{
		Name:    "field",
		Title:   "Field",
		Palette: []string{"#123456"},
		Width:   320,
		Height:  240,
	}
	if err := r.Register(custom); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Lookup("field")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Title != "Field" {
		t.Errorf("title = %q, want %q", got.Title, "Field")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	impostor := domain.Style{
		Name:    "classic",
		Title:   "Impostor",
		Palette: []string{"#000000"},
		Width:   100,
		Height:  100,
	}
	if err := r.Register(impostor); err == nil {
		t.Fatalf("expected duplicate error for %q", impostor.Name)
	}
	got, err := r.Lookup("classic")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Title == "Impostor" {
		t.Fatal("duplicate registration replaced the built-in style")
	}
}
