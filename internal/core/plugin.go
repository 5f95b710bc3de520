package core

import (
	"fmt"
	"sort"

	"fieldplot/pkg/domain"
)

// Plugin describes a module that contributes chart templates and styles.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	charts map[string]ChartTemplate
	styles []domain.Style
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		charts: make(map[string]ChartTemplate),
	}
}

// RegisterChartTemplate stores a chart template manifest contributed by the plugin.
func (r *PluginRegistry) RegisterChartTemplate(template ChartTemplate) error {
	if err := template.validate(); err != nil {
		return err
	}
	key := fmt.Sprintf("%s@%s", template.Key, template.Version)
	if _, exists := r.charts[key]; exists {
		return fmt.Errorf("chart template %s already registered", key)
	}
	r.charts[key] = template
	return nil
}

// RegisterStyle stores a style contributed by the plugin.
func (r *PluginRegistry) RegisterStyle(style domain.Style) {
	if style.Name == "" {
		return
	}
	r.styles = append(r.styles, style.Clone())
}

// ChartTemplates returns registered chart templates in slug order.
func (r *PluginRegistry) ChartTemplates() []ChartTemplate {
	out := make([]ChartTemplate, 0, len(r.charts))
	for _, template := range r.charts {
		cp := template
		cp.Parameters = append([]ChartParameter(nil), template.Parameters...)
		cp.OutputFormats = append([]ChartFormat(nil), template.OutputFormats...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key == out[j].Key {
			return out[i].Version < out[j].Version
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Styles returns a copy of registered styles.
func (r *PluginRegistry) Styles() []domain.Style {
	out := make([]domain.Style, 0, len(r.styles))
	for _, s := range r.styles {
		out = append(out, s.Clone())
	}
	return out
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name    string
	Version string
	Charts  []ChartTemplateDescriptor
	Styles  []string
}
