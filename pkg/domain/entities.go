// Package domain defines the core hierarchy entities, style value types, and
// error primitives used by fieldplot.
package domain

import (
	"sort"
	"time"
)

// Level identifies one level of the data hierarchy.
type Level string

// Hierarchy levels, ordered root to leaf.
const (
	// LevelSite is the top-level grouping (a physical location or sample set).
	LevelSite Level = "site"
	// LevelSpecimen is the second level, an individual item within a site.
	LevelSpecimen Level = "specimen"
	// LevelParameter is the leaf level, a measured quantity on a specimen.
	LevelParameter Level = "parameter"
)

// Kind identifies the type of record referenced by lookup errors.
type Kind string

// Supported record kinds used in NotFoundError values.
const (
	KindSite     Kind = "site"
	KindSpecimen Kind = "specimen"
	KindStyle    Kind = "style"
	KindTemplate Kind = "chart template"
	KindSession  Kind = "session"
)

// Sample is a single measured point: a 1-based acquisition index and a value.
// The index doubles as the x position used by range-window statistics.
type Sample struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Parameter is a named measured quantity belonging to exactly one specimen.
// Samples are kept ordered by ascending index.
type Parameter struct {
	Name    string   `json:"name"`
	Unit    string   `json:"unit,omitempty"`
	Samples []Sample `json:"samples"`
}

// Specimen is an individual item within a site, owning an ordered collection
// of parameters.
type Specimen struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

// Site is the top-level grouping entity, owning an ordered collection of
// specimens.
type Site struct {
	Name      string     `json:"name"`
	Specimens []Specimen `json:"specimens"`
}

// Hierarchy is the root of one imported data set. A hierarchy is constructed
// once per import and replaced wholesale on the next import; it is never
// mutated in place.
type Hierarchy struct {
	Name       string    `json:"name"`
	ImportedAt time.Time `json:"imported_at"`
	Sites      []Site    `json:"sites"`
}

// FindSite returns the named site.
func (h Hierarchy) FindSite(name string) (Site, bool) {
	for _, site := range h.Sites {
		if site.Name == name {
			return site, true
		}
	}
	return Site{}, false
}

// FindSpecimen resolves a site/specimen pair.
func (h Hierarchy) FindSpecimen(site, specimen string) (Specimen, bool) {
	s, ok := h.FindSite(site)
	if !ok {
		return Specimen{}, false
	}
	for _, sp := range s.Specimens {
		if sp.Name == specimen {
			return sp, true
		}
	}
	return Specimen{}, false
}

// FindParameter resolves a parameter by name within a specimen.
func (s Specimen) FindParameter(name string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// SpecimenCount returns the number of specimens across all sites.
func (h Hierarchy) SpecimenCount() int {
	n := 0
	for _, site := range h.Sites {
		n += len(site.Specimens)
	}
	return n
}

// SampleCount returns the number of samples across the whole hierarchy.
func (h Hierarchy) SampleCount() int {
	n := 0
	for _, site := range h.Sites {
		for _, sp := range site.Specimens {
			for _, p := range sp.Parameters {
				n += len(p.Samples)
			}
		}
	}
	return n
}

// Clone returns a deep copy so callers cannot mutate shared hierarchy state.
func (h Hierarchy) Clone() Hierarchy {
	out := h
	out.Sites = make([]Site, len(h.Sites))
	for i, site := range h.Sites {
		out.Sites[i] = site.Clone()
	}
	return out
}

// Clone returns a deep copy of the site.
func (s Site) Clone() Site {
	out := s
	out.Specimens = make([]Specimen, len(s.Specimens))
	for i, sp := range s.Specimens {
		out.Specimens[i] = sp.Clone()
	}
	return out
}

// Clone returns a deep copy of the specimen.
func (s Specimen) Clone() Specimen {
	out := s
	out.Parameters = make([]Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		out.Parameters[i] = p.Clone()
	}
	return out
}

// Clone returns a deep copy of the parameter.
func (p Parameter) Clone() Parameter {
	out := p
	out.Samples = append([]Sample(nil), p.Samples...)
	return out
}

// Validate checks the structural invariants: non-empty names, unique sibling
// names at every level, and strictly increasing sample indexes per parameter.
func (h Hierarchy) Validate() error {
	seenSites := make(map[string]struct{}, len(h.Sites))
	for _, site := range h.Sites {
		if site.Name == "" {
			return ValidationError{Reason: "site name empty"}
		}
		if _, dup := seenSites[site.Name]; dup {
			return ValidationError{Site: site.Name, Reason: "duplicate site name"}
		}
		seenSites[site.Name] = struct{}{}
		seenSpecimens := make(map[string]struct{}, len(site.Specimens))
		for _, sp := range site.Specimens {
			if sp.Name == "" {
				return ValidationError{Site: site.Name, Reason: "specimen name empty"}
			}
			if _, dup := seenSpecimens[sp.Name]; dup {
				return ValidationError{Site: site.Name, Specimen: sp.Name, Reason: "duplicate specimen name"}
			}
			seenSpecimens[sp.Name] = struct{}{}
			if err := sp.validate(site.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s Specimen) validate(site string) error {
	seen := make(map[string]struct{}, len(s.Parameters))
	for _, p := range s.Parameters {
		if p.Name == "" {
			return ValidationError{Site: site, Specimen: s.Name, Reason: "parameter name empty"}
		}
		if _, dup := seen[p.Name]; dup {
			return ValidationError{Site: site, Specimen: s.Name, Parameter: p.Name, Reason: "duplicate parameter name"}
		}
		seen[p.Name] = struct{}{}
		if !sort.SliceIsSorted(p.Samples, func(i, j int) bool { return p.Samples[i].Index < p.Samples[j].Index }) {
			return ValidationError{Site: site, Specimen: s.Name, Parameter: p.Name, Reason: "samples not ordered by index"}
		}
		for i := 1; i < len(p.Samples); i++ {
			if p.Samples[i].Index == p.Samples[i-1].Index {
				return ValidationError{Site: site, Specimen: s.Name, Parameter: p.Name, Reason: "duplicate sample index"}
			}
		}
	}
	return nil
}
