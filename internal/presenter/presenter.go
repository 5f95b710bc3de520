// Package presenter tracks the viewer-facing state of a loaded hierarchy:
// which specimens are selected, which nodes a filter has hidden, the active
// style and the statistics range window. It turns that state into chart run
// requests.
package presenter

import (
	"fmt"
	"sort"
	"sync"

	"fieldplot/internal/stats"
	"fieldplot/pkg/domain"
	"fieldplot/pkg/plotapi"
)

// FilterState describes the active filter, if any.
type FilterState struct {
	Level      domain.Level
	Parameter  string
	Expression string
}

type parameterKey struct {
	site, specimen, parameter string
}

// Presenter is safe for concurrent use.
type Presenter struct {
	mu        sync.Mutex
	hierarchy domain.Hierarchy
	loaded    bool

	selected     map[domain.SelectionKey]bool
	hiddenSpec   map[domain.SelectionKey]bool
	hiddenSites  map[string]bool
	hiddenParams map[parameterKey]bool

	styleName string
	down, up  int
	filter    *FilterState
}

// New constructs a presenter with the default range window and style.
func New(styleName string) *Presenter {
	return &Presenter{
		selected:     make(map[domain.SelectionKey]bool),
		hiddenSpec:   make(map[domain.SelectionKey]bool),
		hiddenSites:  make(map[string]bool),
		hiddenParams: make(map[parameterKey]bool),
		styleName:    styleName,
		down:         stats.DefaultRangeDown,
		up:           stats.DefaultRangeUp,
	}
}

// SetHierarchy installs a hierarchy snapshot and resets selection and filter
// state. Every specimen starts selected and visible.
func (p *Presenter) SetHierarchy(h domain.Hierarchy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hierarchy = h.Clone()
	p.loaded = true
	p.filter = nil
	p.selected = make(map[domain.SelectionKey]bool)
	p.hiddenSpec = make(map[domain.SelectionKey]bool)
	p.hiddenSites = make(map[string]bool)
	p.hiddenParams = make(map[parameterKey]bool)
	for _, site := range p.hierarchy.Sites {
		for _, sp := range site.Specimens {
			p.selected[domain.SelectionKey{Site: site.Name, Specimen: sp.Name}] = true
		}
	}
}

// Hierarchy returns the installed snapshot.
func (p *Presenter) Hierarchy() (domain.Hierarchy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return domain.Hierarchy{}, false
	}
	return p.hierarchy.Clone(), true
}

// SetRange adjusts the statistics window. Bounds must satisfy down <= up.
func (p *Presenter) SetRange(down, up int) error {
	if down > up {
		return fmt.Errorf("range down %d exceeds up %d", down, up)
	}
	p.mu.Lock()
	p.down, p.up = down, up
	p.mu.Unlock()
	return nil
}

// Range returns the active statistics window.
func (p *Presenter) Range() (down, up int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.down, p.up
}

// SetStyle records the active style name.
func (p *Presenter) SetStyle(name string) {
	p.mu.Lock()
	p.styleName = name
	p.mu.Unlock()
}

// StyleName returns the active style name.
func (p *Presenter) StyleName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.styleName
}

// SelectSpecimen toggles one specimen. Hidden specimens cannot be selected.
func (p *Presenter) SelectSpecimen(site, specimen string, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.hierarchy.FindSpecimen(site, specimen); !ok {
		return domain.NotFoundError{Kind: domain.KindSpecimen, Name: specimen}
	}
	key := domain.SelectionKey{Site: site, Specimen: specimen}
	if on && (p.hiddenSpec[key] || p.hiddenSites[site]) {
		return fmt.Errorf("specimen %s/%s is hidden by the active filter", site, specimen)
	}
	p.selected[key] = on
	return nil
}

// SelectSite toggles every visible specimen of a site.
func (p *Presenter) SelectSite(site string, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.hierarchy.FindSite(site)
	if !ok {
		return domain.NotFoundError{Kind: domain.KindSite, Name: site}
	}
	if on && p.hiddenSites[site] {
		return fmt.Errorf("site %s is hidden by the active filter", site)
	}
	for _, sp := range s.Specimens {
		key := domain.SelectionKey{Site: site, Specimen: sp.Name}
		if on && p.hiddenSpec[key] {
			continue
		}
		p.selected[key] = on
	}
	return nil
}

// SelectAll toggles every visible specimen in the hierarchy.
func (p *Presenter) SelectAll(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, site := range p.hierarchy.Sites {
		if on && p.hiddenSites[site.Name] {
			continue
		}
		for _, sp := range site.Specimens {
			key := domain.SelectionKey{Site: site.Name, Specimen: sp.Name}
			if on && p.hiddenSpec[key] {
				continue
			}
			p.selected[key] = on
		}
	}
}

// Selection returns selected, visible specimens in hierarchy order.
func (p *Presenter) Selection() []domain.SelectionKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectionLocked()
}

func (p *Presenter) selectionLocked() []domain.SelectionKey {
	var out []domain.SelectionKey
	for _, site := range p.hierarchy.Sites {
		if p.hiddenSites[site.Name] {
			continue
		}
		for _, sp := range site.Specimens {
			key := domain.SelectionKey{Site: site.Name, Specimen: sp.Name}
			if p.selected[key] && !p.hiddenSpec[key] {
				out = append(out, key)
			}
		}
	}
	return out
}

// IsSelected reports whether a specimen is selected and visible.
func (p *Presenter) IsSelected(site, specimen string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := domain.SelectionKey{Site: site, Specimen: specimen}
	return p.selected[key] && !p.hiddenSpec[key] && !p.hiddenSites[site]
}

// ApplyFilter hides nodes whose windowed mean of the named parameter fails
// the expression. At specimen level individual specimens are hidden; at site
// level whole sites are hidden based on their aggregate mean; at parameter
// level each parameter is judged by its own windowed mean, and a non-empty
// parameter name restricts the filter to parameters with that name. An
// expression that cannot be parsed is an error and leaves the current filter
// untouched.
func (p *Presenter) ApplyFilter(level domain.Level, parameter, expression string) error {
	cond, err := stats.ParseCondition(expression)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return fmt.Errorf("no hierarchy loaded")
	}

	hiddenSpec := make(map[domain.SelectionKey]bool)
	hiddenSites := make(map[string]bool)
	hiddenParams := make(map[parameterKey]bool)
	switch level {
	case domain.LevelSpecimen:
		for _, site := range p.hierarchy.Sites {
			for _, sp := range site.Specimens {
				mean, ok := specimenMean(sp, parameter, p.down, p.up)
				if !ok || !cond.Matches(mean, stats.FormatSignificant(mean, stats.DefaultSigFigs)) {
					hiddenSpec[domain.SelectionKey{Site: site.Name, Specimen: sp.Name}] = true
				}
			}
		}
	case domain.LevelSite:
		for _, site := range p.hierarchy.Sites {
			mean, ok := siteMean(site, parameter, p.down, p.up)
			if !ok || !cond.Matches(mean, stats.FormatSignificant(mean, stats.DefaultSigFigs)) {
				hiddenSites[site.Name] = true
			}
		}
	case domain.LevelParameter:
		for _, site := range p.hierarchy.Sites {
			for _, sp := range site.Specimens {
				for _, param := range sp.Parameters {
					if parameter != "" && param.Name != parameter {
						continue
					}
					values := stats.WindowValues(param, p.down, p.up)
					hide := len(values) == 0
					if !hide {
						mean := stats.Mean(values)
						hide = !cond.Matches(mean, stats.FormatSignificant(mean, stats.DefaultSigFigs))
					}
					if hide {
						hiddenParams[parameterKey{site.Name, sp.Name, param.Name}] = true
					}
				}
			}
		}
	default:
		return fmt.Errorf("filter level %s not supported", level)
	}

	p.hiddenSpec = hiddenSpec
	p.hiddenSites = hiddenSites
	p.hiddenParams = hiddenParams
	p.filter = &FilterState{Level: level, Parameter: parameter, Expression: expression}
	return nil
}

// ClearFilter restores full visibility. Selection state is preserved.
func (p *Presenter) ClearFilter() {
	p.mu.Lock()
	p.hiddenSpec = make(map[domain.SelectionKey]bool)
	p.hiddenSites = make(map[string]bool)
	p.hiddenParams = make(map[parameterKey]bool)
	p.filter = nil
	p.mu.Unlock()
}

// Filter returns the active filter, if any.
func (p *Presenter) Filter() (FilterState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter == nil {
		return FilterState{}, false
	}
	return *p.filter, true
}

// VisibleSites lists sites not hidden by the filter, in hierarchy order.
func (p *Presenter) VisibleSites() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, site := range p.hierarchy.Sites {
		if !p.hiddenSites[site.Name] {
			out = append(out, site.Name)
		}
	}
	return out
}

// VisibleSpecimens lists a site's specimens not hidden by the filter.
func (p *Presenter) VisibleSpecimens(site string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hiddenSites[site] {
		return nil
	}
	s, ok := p.hierarchy.FindSite(site)
	if !ok {
		return nil
	}
	var out []string
	for _, sp := range s.Specimens {
		if !p.hiddenSpec[domain.SelectionKey{Site: site, Specimen: sp.Name}] {
			out = append(out, sp.Name)
		}
	}
	return out
}

// VisibleParameters lists a specimen's parameters not hidden by the filter.
func (p *Presenter) VisibleParameters(site, specimen string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hiddenSites[site] || p.hiddenSpec[domain.SelectionKey{Site: site, Specimen: specimen}] {
		return nil
	}
	sp, ok := p.hierarchy.FindSpecimen(site, specimen)
	if !ok {
		return nil
	}
	var out []string
	for _, param := range sp.Parameters {
		if !p.hiddenParams[parameterKey{site, specimen, param.Name}] {
			out = append(out, param.Name)
		}
	}
	return out
}

// RenderRequest captures everything needed to run a chart template.
type RenderRequest struct {
	TemplateSlug string
	Parameters   map[string]any
	Scope        plotapi.Scope
	StyleName    string
}

// BuildRenderRequest assembles a run request for the given template. The
// range window travels in the parameters; selection and site travel in the
// scope. Extra parameters override the defaults.
func (p *Presenter) BuildRenderRequest(slug, site string, extra map[string]any) RenderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	params := map[string]any{
		"range_down": p.down,
		"range_up":   p.up,
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params[k] = extra[k]
	}
	return RenderRequest{
		TemplateSlug: slug,
		Parameters:   params,
		Scope: plotapi.Scope{
			Site:      site,
			Selection: p.selectionLocked(),
		},
		StyleName: p.styleName,
	}
}

func specimenMean(sp domain.Specimen, parameter string, down, up int) (float64, bool) {
	param, ok := sp.FindParameter(parameter)
	if !ok {
		return 0, false
	}
	values := stats.WindowValues(param, down, up)
	if len(values) == 0 {
		return 0, false
	}
	return stats.Mean(values), true
}

func siteMean(site domain.Site, parameter string, down, up int) (float64, bool) {
	var means []float64
	for _, sp := range site.Specimens {
		if m, ok := specimenMean(sp, parameter, down, up); ok {
			means = append(means, m)
		}
	}
	if len(means) == 0 {
		return 0, false
	}
	return stats.Mean(means), true
}
