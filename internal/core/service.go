package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"fieldplot/internal/styles"
	"fieldplot/pkg/domain"
)

// MetricsRecorder observes service operation outcomes. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	ObserveOperation(op, status string, seconds float64)
	ObserveStyleLookup(result string)
	SetHierarchySize(sites, samples int)
}

// Service owns the active hierarchy, installed plugins, the style registry and
// session persistence. It is safe for concurrent use.
type Service struct {
	mu        sync.RWMutex
	hierarchy domain.Hierarchy
	hasData   bool

	styles   *styles.Registry
	sessions domain.SessionStore
	plugins  map[string]PluginMetadata
	charts   map[string]ChartTemplate

	clock   clockwork.Clock
	metrics MetricsRecorder
}

// ServiceOption customises service construction.
type ServiceOption func(*Service)

// WithClock overrides the service clock, mainly for tests.
func WithClock(clock clockwork.Clock) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithStyleRegistry overrides the default style registry.
func WithStyleRegistry(registry *styles.Registry) ServiceOption {
	return func(s *Service) { s.styles = registry }
}

// NewService constructs a service backed by the supplied session store.
func NewService(sessions domain.SessionStore, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		sessions: sessions,
		plugins:  make(map[string]PluginMetadata),
		charts:   make(map[string]ChartTemplate),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.styles == nil {
		registry, err := styles.NewRegistry()
		if err != nil {
			return nil, err
		}
		s.styles = registry
	}
	return s, nil
}

// ImportCSV loads a measurement table and replaces the active hierarchy.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, name string) (domain.Hierarchy, error) {
	start := s.clock.Now()
	h, err := LoadHierarchyCSV(r, name, s.clock.Now().UTC())
	s.observe("import_csv", start, err)
	if err != nil {
		return domain.Hierarchy{}, err
	}
	s.mu.Lock()
	s.hierarchy = h
	s.hasData = true
	s.mu.Unlock()
	s.recordHierarchySize(h)
	return h.Clone(), nil
}

// ReplaceHierarchy installs an already validated hierarchy, for session
// restores and tests.
func (s *Service) ReplaceHierarchy(h domain.Hierarchy) error {
	if err := h.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.hierarchy = h.Clone()
	s.hasData = true
	s.mu.Unlock()
	s.recordHierarchySize(h)
	return nil
}

// Hierarchy returns a snapshot of the active hierarchy. The second return is
// false before any import.
func (s *Service) Hierarchy() (domain.Hierarchy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasData {
		return domain.Hierarchy{}, false
	}
	return s.hierarchy.Clone(), true
}

func (s *Service) snapshotHierarchy() domain.Hierarchy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy.Clone()
}

// InstallPlugin registers a plugin, binding its chart templates against the
// service runtime and adding its styles to the registry.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}

	env := ChartEnvironment{Hierarchy: s.snapshotHierarchy, Now: s.clock.Now}
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version()}
	installed := make(map[string]ChartTemplate)
	for _, template := range registry.ChartTemplates() {
		template.Plugin = plugin.Name()
		if err := template.bind(env); err != nil {
			return PluginMetadata{}, fmt.Errorf("bind template %s: %w", template.slug(), err)
		}
		slug := template.slug()
		if _, exists := s.charts[slug]; exists {
			return PluginMetadata{}, fmt.Errorf("chart template %s already registered", slug)
		}
		installed[slug] = template
		meta.Charts = append(meta.Charts, template.Descriptor())
	}
	newStyles := registry.Styles()
	seen := make(map[string]bool, len(newStyles))
	for _, style := range newStyles {
		if seen[style.Name] {
			return PluginMetadata{}, fmt.Errorf("style %s already registered", style.Name)
		}
		if _, err := s.styles.Lookup(style.Name); err == nil {
			return PluginMetadata{}, fmt.Errorf("style %s already registered", style.Name)
		}
		seen[style.Name] = true
	}
	for _, style := range newStyles {
		if err := s.styles.Register(style); err != nil {
			return PluginMetadata{}, fmt.Errorf("register style %s: %w", style.Name, err)
		}
		meta.Styles = append(meta.Styles, style.Name)
	}
	sort.Strings(meta.Styles)

	for slug, template := range installed {
		s.charts[slug] = template
	}
	s.plugins[plugin.Name()] = meta
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ChartTemplates lists descriptors for every installed chart template.
func (s *Service) ChartTemplates() []ChartTemplateDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChartTemplateDescriptor, 0, len(s.charts))
	for _, template := range s.charts {
		out = append(out, template.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// ResolveChartTemplate finds an installed template by slug.
func (s *Service) ResolveChartTemplate(slug string) (ChartTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	template, ok := s.charts[slug]
	return template, ok
}

// RunChart validates parameters and executes the named template.
func (s *Service) RunChart(ctx context.Context, slug string, params map[string]any, scope ChartScope) (ChartRunResult, []ChartParameterError, error) {
	template, ok := s.ResolveChartTemplate(slug)
	if !ok {
		return ChartRunResult{}, nil, domain.NotFoundError{Kind: domain.KindTemplate, Name: slug}
	}
	start := s.clock.Now()
	result, paramErrs, err := template.Run(ctx, params, scope)
	s.observe("run_chart", start, err)
	return result, paramErrs, err
}

// StyleNames lists registered style names.
func (s *Service) StyleNames() []string {
	return s.styles.Names()
}

// Style returns a copy of the named style.
func (s *Service) Style(name string) (domain.Style, error) {
	style, err := s.styles.Lookup(name)
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "not_found"
		}
		s.metrics.ObserveStyleLookup(result)
	}
	return style, err
}

// SaveSession persists the active hierarchy together with presentation state.
func (s *Service) SaveSession(ctx context.Context, name, styleName string, selection []domain.SelectionKey) error {
	if name == "" {
		return fmt.Errorf("session name required")
	}
	s.mu.RLock()
	if !s.hasData {
		s.mu.RUnlock()
		return fmt.Errorf("no hierarchy to save")
	}
	session := domain.Session{
		Name:      name,
		Hierarchy: s.hierarchy.Clone(),
		StyleName: styleName,
		Selection: append([]domain.SelectionKey(nil), selection...),
		SavedAt:   s.clock.Now().UTC(),
	}
	s.mu.RUnlock()

	start := s.clock.Now()
	err := s.sessions.SaveSession(ctx, session)
	s.observe("save_session", start, err)
	return err
}

// LoadSession restores a saved session, replacing the active hierarchy.
func (s *Service) LoadSession(ctx context.Context, name string) (domain.Session, error) {
	start := s.clock.Now()
	session, ok, err := s.sessions.LoadSession(ctx, name)
	s.observe("load_session", start, err)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.NotFoundError{Kind: domain.KindSession, Name: name}
	}
	s.mu.Lock()
	s.hierarchy = session.Hierarchy.Clone()
	s.hasData = true
	s.mu.Unlock()
	s.recordHierarchySize(session.Hierarchy)
	return session, nil
}

// ListSessions returns saved session names.
func (s *Service) ListSessions(ctx context.Context) ([]string, error) {
	return s.sessions.ListSessions(ctx)
}

// DeleteSession removes a saved session. Returns false when it did not exist.
func (s *Service) DeleteSession(ctx context.Context, name string) (bool, error) {
	return s.sessions.DeleteSession(ctx, name)
}

// Close releases the session store.
func (s *Service) Close() error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Close()
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveOperation(op, status, s.clock.Since(start).Seconds())
}

func (s *Service) recordHierarchySize(h domain.Hierarchy) {
	if s.metrics == nil {
		return
	}
	s.metrics.SetHierarchySize(len(h.Sites), h.SampleCount())
}
