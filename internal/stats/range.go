package stats

import (
	"math"
	"sort"

	"fieldplot/pkg/domain"
)

// Default range window applied when the caller supplies no bounds.
const (
	DefaultRangeDown = 1
	DefaultRangeUp   = 100
)

// SeriesStats summarises the values of one parameter inside a range window.
type SeriesStats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Median float64
}

// WindowValues returns the sample values whose index lies in [down, up].
func WindowValues(p domain.Parameter, down, up int) []float64 {
	var values []float64
	for _, s := range p.Samples {
		if s.Index >= down && s.Index <= up {
			values = append(values, s.Value)
		}
	}
	return values
}

// Compute derives SeriesStats from a slice of values. An empty slice yields a
// zero Count and zero statistics.
func Compute(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	return SeriesStats{
		Count:  len(values),
		Mean:   Mean(values),
		Std:    Std(values),
		Min:    minOf(values),
		Max:    maxOf(values),
		Median: Median(values),
	}
}

// Mean returns the arithmetic mean. Zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the population standard deviation. Zero for an empty slice.
func Std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Median returns the middle value, averaging the two central elements for an
// even count. Zero for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// SpecimenMeans returns one mean per parameter of the specimen, computed over
// the range window. Parameters with no samples in the window contribute 0.
func SpecimenMeans(sp domain.Specimen, down, up int) []float64 {
	means := make([]float64, 0, len(sp.Parameters))
	for _, p := range sp.Parameters {
		values := WindowValues(p, down, up)
		if len(values) == 0 {
			means = append(means, 0)
			continue
		}
		means = append(means, Mean(values))
	}
	return means
}

// SpecimenSummary formats the windowed mean of every parameter of a specimen.
// Parameters with no samples in the window map to "N/A".
func SpecimenSummary(sp domain.Specimen, down, up int) map[string]string {
	out := make(map[string]string, len(sp.Parameters))
	for _, p := range sp.Parameters {
		values := WindowValues(p, down, up)
		if len(values) == 0 {
			out[p.Name] = "N/A"
			continue
		}
		out[p.Name] = FormatSignificant(Mean(values), DefaultSigFigs)
	}
	return out
}

// PointSummary is a single point in a summary chart: the mean of a group of
// per-specimen means plus one population standard deviation as the error bar.
type PointSummary struct {
	Label string
	Mean  float64
	Std   float64
}

// SelectedSpecimens returns the specimen names a selection picks within one
// site. An empty result means the site has no selected specimens.
func SelectedSpecimens(selection []domain.SelectionKey, site string) map[string]bool {
	var names map[string]bool
	for _, key := range selection {
		if key.Site != site {
			continue
		}
		if names == nil {
			names = make(map[string]bool)
		}
		names[key.Specimen] = true
	}
	return names
}

// SiteSummary aggregates each parameter across the selected specimens of a
// site, in parameter order of the first specimen. When the selected set is
// empty the whole site is aggregated. Each returned point is the mean of the
// per-specimen windowed means for one parameter.
func SiteSummary(site domain.Site, selected map[string]bool, down, up int) []PointSummary {
	if len(site.Specimens) == 0 {
		return nil
	}
	ref := site.Specimens[0]
	points := make([]PointSummary, 0, len(ref.Parameters))
	for _, p := range ref.Parameters {
		var means []float64
		for _, sp := range site.Specimens {
			if len(selected) > 0 && !selected[sp.Name] {
				continue
			}
			param, ok := sp.FindParameter(p.Name)
			if !ok {
				continue
			}
			values := WindowValues(param, down, up)
			if len(values) == 0 {
				continue
			}
			means = append(means, Mean(values))
		}
		points = append(points, PointSummary{
			Label: p.Name,
			Mean:  Mean(means),
			Std:   Std(means),
		})
	}
	return points
}

// AllSitesSummary aggregates one parameter across every site of a hierarchy.
// Each returned point covers one site: the mean and standard deviation of the
// per-specimen windowed means of the named parameter, restricted per site to
// its selected specimens. Sites with no selected specimens aggregate all of
// their specimens.
func AllSitesSummary(h domain.Hierarchy, parameter string, selection []domain.SelectionKey, down, up int) []PointSummary {
	points := make([]PointSummary, 0, len(h.Sites))
	for _, site := range h.Sites {
		selected := SelectedSpecimens(selection, site.Name)
		var means []float64
		for _, sp := range site.Specimens {
			if len(selected) > 0 && !selected[sp.Name] {
				continue
			}
			param, ok := sp.FindParameter(parameter)
			if !ok {
				continue
			}
			values := WindowValues(param, down, up)
			if len(values) == 0 {
				continue
			}
			means = append(means, Mean(values))
		}
		points = append(points, PointSummary{
			Label: site.Name,
			Mean:  Mean(means),
			Std:   Std(means),
		})
	}
	return points
}
