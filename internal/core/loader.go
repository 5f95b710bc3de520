package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"fieldplot/pkg/domain"
)

// loader column order. The unit column is optional.
var loaderColumns = []string{"site", "specimen", "parameter", "index", "value"}

// LoadHierarchyCSV parses a measurement table into a validated hierarchy.
// Expected header: site,specimen,parameter,index,value with an optional
// trailing unit column. Sample indexes may arrive unordered; they are sorted
// per parameter before validation.
func LoadHierarchyCSV(r io.Reader, name string, importedAt time.Time) (domain.Hierarchy, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return domain.Hierarchy{}, domain.ValidationError{Row: 1, Reason: "empty input"}
	}
	if err != nil {
		return domain.Hierarchy{}, fmt.Errorf("read header: %w", err)
	}
	hasUnit, err := checkHeader(header)
	if err != nil {
		return domain.Hierarchy{}, err
	}

	builder := newHierarchyBuilder(name, importedAt)
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return domain.Hierarchy{}, domain.ValidationError{Row: row, Reason: err.Error()}
		}
		if err := builder.addRecord(row, record, hasUnit); err != nil {
			return domain.Hierarchy{}, err
		}
	}

	h := builder.build()
	if err := h.Validate(); err != nil {
		return domain.Hierarchy{}, err
	}
	return h, nil
}

func checkHeader(header []string) (hasUnit bool, err error) {
	if len(header) != len(loaderColumns) && len(header) != len(loaderColumns)+1 {
		return false, domain.ValidationError{Row: 1, Reason: fmt.Sprintf("expected columns %s, got %d columns", strings.Join(loaderColumns, ","), len(header))}
	}
	for i, want := range loaderColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return false, domain.ValidationError{Row: 1, Reason: fmt.Sprintf("column %d must be %q, got %q", i+1, want, header[i])}
		}
	}
	if len(header) == len(loaderColumns)+1 {
		if !strings.EqualFold(strings.TrimSpace(header[len(loaderColumns)]), "unit") {
			return false, domain.ValidationError{Row: 1, Reason: fmt.Sprintf("trailing column must be %q, got %q", "unit", header[len(loaderColumns)])}
		}
		hasUnit = true
	}
	return hasUnit, nil
}

// hierarchyBuilder accumulates rows in first-seen order.
type hierarchyBuilder struct {
	name       string
	importedAt time.Time
	sites      []*siteAccum
	siteIndex  map[string]*siteAccum
}

type siteAccum struct {
	name          string
	specimens     []*specimenAccum
	specimenIndex map[string]*specimenAccum
}

type specimenAccum struct {
	name       string
	params     []*paramAccum
	paramIndex map[string]*paramAccum
}

type paramAccum struct {
	name    string
	unit    string
	samples []domain.Sample
	seen    map[int]bool
}

func newHierarchyBuilder(name string, importedAt time.Time) *hierarchyBuilder {
	return &hierarchyBuilder{
		name:       name,
		importedAt: importedAt,
		siteIndex:  make(map[string]*siteAccum),
	}
}

func (b *hierarchyBuilder) addRecord(row int, record []string, hasUnit bool) error {
	want := len(loaderColumns)
	if hasUnit {
		want++
	}
	if len(record) != want {
		return domain.ValidationError{Row: row, Reason: fmt.Sprintf("expected %d fields, got %d", want, len(record))}
	}
	siteName := strings.TrimSpace(record[0])
	specimenName := strings.TrimSpace(record[1])
	paramName := strings.TrimSpace(record[2])
	if siteName == "" || specimenName == "" || paramName == "" {
		return domain.ValidationError{Row: row, Site: siteName, Specimen: specimenName, Parameter: paramName, Reason: "site, specimen and parameter names required"}
	}
	index, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return domain.ValidationError{Row: row, Site: siteName, Specimen: specimenName, Parameter: paramName, Reason: fmt.Sprintf("invalid index %q", record[3])}
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		return domain.ValidationError{Row: row, Site: siteName, Specimen: specimenName, Parameter: paramName, Reason: fmt.Sprintf("invalid value %q", record[4])}
	}

	site := b.siteIndex[siteName]
	if site == nil {
		site = &siteAccum{name: siteName, specimenIndex: make(map[string]*specimenAccum)}
		b.siteIndex[siteName] = site
		b.sites = append(b.sites, site)
	}
	specimen := site.specimenIndex[specimenName]
	if specimen == nil {
		specimen = &specimenAccum{name: specimenName, paramIndex: make(map[string]*paramAccum)}
		site.specimenIndex[specimenName] = specimen
		site.specimens = append(site.specimens, specimen)
	}
	param := specimen.paramIndex[paramName]
	if param == nil {
		param = &paramAccum{name: paramName, seen: make(map[int]bool)}
		specimen.paramIndex[paramName] = param
		specimen.params = append(specimen.params, param)
	}
	if hasUnit && param.unit == "" {
		param.unit = strings.TrimSpace(record[5])
	}
	if param.seen[index] {
		return domain.ValidationError{Row: row, Site: siteName, Specimen: specimenName, Parameter: paramName, Reason: fmt.Sprintf("duplicate sample index %d", index)}
	}
	param.seen[index] = true
	param.samples = append(param.samples, domain.Sample{Index: index, Value: value})
	return nil
}

func (b *hierarchyBuilder) build() domain.Hierarchy {
	h := domain.Hierarchy{Name: b.name, ImportedAt: b.importedAt}
	for _, site := range b.sites {
		s := domain.Site{Name: site.name}
		for _, specimen := range site.specimens {
			sp := domain.Specimen{Name: specimen.name}
			for _, param := range specimen.params {
				sort.Slice(param.samples, func(i, j int) bool {
					return param.samples[i].Index < param.samples[j].Index
				})
				sp.Parameters = append(sp.Parameters, domain.Parameter{
					Name:    param.name,
					Unit:    param.unit,
					Samples: param.samples,
				})
			}
			s.Specimens = append(s.Specimens, sp)
		}
		h.Sites = append(h.Sites, s)
	}
	return h
}
