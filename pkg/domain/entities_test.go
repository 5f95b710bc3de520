package domain

import (
	"fmt"
	"testing"
)

func sampleHierarchy() Hierarchy {
	return Hierarchy{
		Name: "survey",
		Sites: []Site{
			{Name: "north", Specimens: []Specimen{
				{Name: "n1", Parameters: []Parameter{
					{Name: "mass", Unit: "g", Samples: []Sample{{Index: 1, Value: 4.0}, {Index: 2, Value: 4.5}}},
					{Name: "length", Unit: "mm", Samples: []Sample{{Index: 1, Value: 12.0}}},
				}},
				{Name: "n2", Parameters: []Parameter{
					{Name: "mass", Samples: []Sample{{Index: 1, Value: 5.1}}},
				}},
			}},
			{Name: "south", Specimens: []Specimen{
				{Name: "s1", Parameters: []Parameter{
					{Name: "mass", Samples: []Sample{{Index: 1, Value: 6.2}}},
				}},
			}},
		},
	}
}

func TestHierarchyLookups(t *testing.T) {
	h := sampleHierarchy()
	if _, ok := h.FindSite("north"); !ok {
		t.Fatalf("north missing")
	}
	if _, ok := h.FindSite("west"); ok {
		t.Fatalf("west should not resolve")
	}
	sp, ok := h.FindSpecimen("north", "n2")
	if !ok || sp.Name != "n2" {
		t.Fatalf("n2 lookup failed")
	}
	if _, ok := h.FindSpecimen("south", "n2"); ok {
		t.Fatalf("n2 does not live in south")
	}
	p, ok := sp.FindParameter("mass")
	if !ok || p.Samples[0].Value != 5.1 {
		t.Fatalf("mass lookup failed: %+v", p)
	}
	if _, ok := sp.FindParameter("length"); ok {
		t.Fatalf("length should not resolve on n2")
	}
}

func TestHierarchyCounts(t *testing.T) {
	h := sampleHierarchy()
	if got := h.SpecimenCount(); got != 3 {
		t.Fatalf("got %d specimens, want 3", got)
	}
	if got := h.SampleCount(); got != 5 {
		t.Fatalf("got %d samples, want 5", got)
	}
}

func TestHierarchyCloneIsDeep(t *testing.T) {
	h := sampleHierarchy()
	clone := h.Clone()
	clone.Sites[0].Specimens[0].Parameters[0].Samples[0].Value = 99
	clone.Sites[0].Name = "mutated"
	if h.Sites[0].Specimens[0].Parameters[0].Samples[0].Value != 4.0 {
		t.Fatalf("sample mutation leaked into original")
	}
	if h.Sites[0].Name != "north" {
		t.Fatalf("site mutation leaked into original")
	}
}

func TestHierarchyValidate(t *testing.T) {
	if err := sampleHierarchy().Validate(); err != nil {
		t.Fatalf("valid hierarchy rejected: %v", err)
	}
	cases := []struct {
		name   string
		mutate func(*Hierarchy)
	}{
		{"empty site name", func(h *Hierarchy) { h.Sites[0].Name = "" }},
		{"duplicate site", func(h *Hierarchy) { h.Sites[1].Name = "north" }},
		{"empty specimen name", func(h *Hierarchy) { h.Sites[0].Specimens[0].Name = "" }},
		{"duplicate specimen", func(h *Hierarchy) { h.Sites[0].Specimens[1].Name = "n1" }},
		{"empty parameter name", func(h *Hierarchy) { h.Sites[0].Specimens[0].Parameters[0].Name = "" }},
		{"duplicate parameter", func(h *Hierarchy) { h.Sites[0].Specimens[0].Parameters[1].Name = "mass" }},
		{"unsorted samples", func(h *Hierarchy) {
			h.Sites[0].Specimens[0].Parameters[0].Samples = []Sample{{Index: 2, Value: 1}, {Index: 1, Value: 2}}
		}},
		{"duplicate sample index", func(h *Hierarchy) {
			h.Sites[0].Specimens[0].Parameters[0].Samples = []Sample{{Index: 1, Value: 1}, {Index: 1, Value: 2}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := sampleHierarchy()
			tc.mutate(&h)
			err := h.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !IsValidation(err) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Row: 7, Site: "north", Specimen: "n1", Parameter: "mass", Reason: "duplicate sample index 3"}
	want := "invalid hierarchy (row 7) at north/n1/mass: duplicate sample index 3"
	if got := err.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	bare := ValidationError{Reason: "empty input"}
	if got := bare.Error(); got != "invalid hierarchy: empty input" {
		t.Fatalf("got %q", got)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError{Kind: KindStyle, Name: "neon"}
	if got, want := err.Error(), `style "neon" not found`; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound failed on direct error")
	}
	if !IsNotFound(fmt.Errorf("lookup: %w", err)) {
		t.Fatalf("IsNotFound failed on wrapped error")
	}
	if IsNotFound(fmt.Errorf("boom")) {
		t.Fatalf("IsNotFound matched unrelated error")
	}
	if IsValidation(err) {
		t.Fatalf("IsValidation matched a not found error")
	}
}

func TestStyleCloneAndSeriesColor(t *testing.T) {
	style := Style{Name: "classic", Palette: []string{"#111111", "#222222"}}
	clone := style.Clone()
	clone.Palette[0] = "#ffffff"
	if style.Palette[0] != "#111111" {
		t.Fatalf("palette mutation leaked into original")
	}
	if got := style.SeriesColor(0); got != "#111111" {
		t.Fatalf("got %s", got)
	}
	if got := style.SeriesColor(3); got != "#222222" {
		t.Fatalf("palette should cycle, got %s", got)
	}
	if got := (Style{}).SeriesColor(0); got != "#000000" {
		t.Fatalf("empty palette should fall back to black, got %s", got)
	}
}

func TestSessionClone(t *testing.T) {
	session := Session{
		Name:      "morning",
		Hierarchy: sampleHierarchy(),
		StyleName: "classic",
		Selection: []SelectionKey{{Site: "north", Specimen: "n1"}},
	}
	clone := session.Clone()
	clone.Selection[0].Specimen = "n2"
	clone.Hierarchy.Sites[0].Name = "mutated"
	if session.Selection[0].Specimen != "n1" {
		t.Fatalf("selection mutation leaked into original")
	}
	if session.Hierarchy.Sites[0].Name != "north" {
		t.Fatalf("hierarchy mutation leaked into original")
	}
}
