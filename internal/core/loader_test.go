package core

import (
	"strings"
	"testing"
	"time"

	"fieldplot/pkg/domain"
)

var importTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLoadHierarchyCSV(t *testing.T) {
	input := strings.Join([]string{
		"site,specimen,parameter,index,value,unit",
		"north,n1,mass,2,4.5,g",
		"north,n1,mass,1,4.0,g",
		"north,n1,length,1,12.0,mm",
		"north,n2,mass,1,5.1,g",
		"south,s1,mass,1,6.2,g",
	}, "\n")
	h, err := LoadHierarchyCSV(strings.NewReader(input), "survey", importTime)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if h.Name != "survey" || !h.ImportedAt.Equal(importTime) {
		t.Fatalf("metadata lost: %+v", h)
	}
	if len(h.Sites) != 2 || h.Sites[0].Name != "north" || h.Sites[1].Name != "south" {
		t.Fatalf("sites not in first-seen order: %+v", h.Sites)
	}
	n1, ok := h.FindSpecimen("north", "n1")
	if !ok {
		t.Fatalf("n1 missing")
	}
	mass, ok := n1.FindParameter("mass")
	if !ok {
		t.Fatalf("mass missing")
	}
	if mass.Unit != "g" {
		t.Fatalf("got unit %q, want g", mass.Unit)
	}
	// Out-of-order rows must come back sorted by index.
	if mass.Samples[0].Index != 1 || mass.Samples[0].Value != 4.0 {
		t.Fatalf("samples not sorted: %+v", mass.Samples)
	}
	if h.SpecimenCount() != 3 || h.SampleCount() != 5 {
		t.Fatalf("got %d specimens, %d samples", h.SpecimenCount(), h.SampleCount())
	}
}

func TestLoadHierarchyCSVWithoutUnitColumn(t *testing.T) {
	input := "site,specimen,parameter,index,value\nnorth,n1,mass,1,4.0\n"
	h, err := LoadHierarchyCSV(strings.NewReader(input), "survey", importTime)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sp, ok := h.FindSpecimen("north", "n1")
	if !ok {
		t.Fatalf("n1 missing")
	}
	param, _ := sp.FindParameter("mass")
	if param.Unit != "" {
		t.Fatalf("got unit %q, want empty", param.Unit)
	}
}

func TestLoadHierarchyCSVErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"bad header", "a,b,c,d,e\nnorth,n1,mass,1,4.0\n"},
		{"missing column", "site,specimen,parameter,index\nnorth,n1,mass,1\n"},
		{"bad trailing column", "site,specimen,parameter,index,value,color\nnorth,n1,mass,1,4.0,red\n"},
		{"blank names", "site,specimen,parameter,index,value\n,n1,mass,1,4.0\n"},
		{"bad index", "site,specimen,parameter,index,value\nnorth,n1,mass,one,4.0\n"},
		{"bad value", "site,specimen,parameter,index,value\nnorth,n1,mass,1,heavy\n"},
		{"duplicate index", "site,specimen,parameter,index,value\nnorth,n1,mass,1,4.0\nnorth,n1,mass,1,4.2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadHierarchyCSV(strings.NewReader(tc.input), "survey", importTime)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !domain.IsValidation(err) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}
}

func TestLoadHierarchyCSVHeaderCaseInsensitive(t *testing.T) {
	input := "Site,Specimen,Parameter,Index,Value\nnorth,n1,mass,1,4.0\n"
	if _, err := LoadHierarchyCSV(strings.NewReader(input), "survey", importTime); err != nil {
		t.Fatalf("load: %v", err)
	}
}
