package plotapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fieldplot/pkg/domain"
)

// HostTemplate pairs a plugin-provided Template with host-side runtime state:
// the plugin name, structural validation, and the bound runner.
type HostTemplate struct {
	plugin  string
	tpl     Template
	runtime Runner
}

// NewHostTemplate constructs a HostTemplate for the given plugin/template
// pair after structural validation. The returned template has no bound
// runner; callers must invoke Bind before Run.
func NewHostTemplate(plugin string, tpl Template) (HostTemplate, error) {
	if err := validateTemplate(tpl); err != nil {
		return HostTemplate{}, err
	}
	return HostTemplate{plugin: strings.TrimSpace(plugin), tpl: cloneTemplate(tpl)}, nil
}

// Plugin returns the plugin identifier associated with the template.
func (h HostTemplate) Plugin() string { return h.plugin }

// Template returns a defensive copy of the underlying template manifest.
func (h HostTemplate) Template() Template { return cloneTemplate(h.tpl) }

// Slug returns the canonical identifier for the template (plugin/key@version).
func (h HostTemplate) Slug() string {
	return SlugFor(h.plugin, h.tpl.Key, h.tpl.Version)
}

// Descriptor produces a descriptor snapshot including plugin provenance.
func (h HostTemplate) Descriptor() TemplateDescriptor {
	return TemplateDescriptor{
		Plugin:        h.plugin,
		Key:           h.tpl.Key,
		Version:       h.tpl.Version,
		Title:         h.tpl.Title,
		Description:   h.tpl.Description,
		Parameters:    cloneParameters(h.tpl.Parameters),
		OutputFormats: cloneFormats(h.tpl.OutputFormats),
		Slug:          h.Slug(),
	}
}

// SupportsFormat reports whether the template declares the requested format.
func (h HostTemplate) SupportsFormat(format Format) bool {
	for _, candidate := range h.tpl.OutputFormats {
		if candidate == format {
			return true
		}
	}
	return false
}

// ValidateParameters validates supplied parameters against the template
// definition, returning normalized values plus any validation errors.
func (h HostTemplate) ValidateParameters(params map[string]any) (map[string]any, []ParameterError) {
	return validateParameters(h.tpl.Parameters, params)
}

// Bind attaches a runtime runner using the provided environment.
func (h *HostTemplate) Bind(env Environment) error {
	if h == nil {
		return errors.New("plotapi: host template nil")
	}
	if h.tpl.Binder == nil {
		return errors.New("plotapi: template binder missing")
	}
	runner, err := h.tpl.Binder(env)
	if err != nil {
		return err
	}
	if runner == nil {
		return errors.New("plotapi: template binder returned nil runner")
	}
	h.runtime = runner
	return nil
}

// Run executes the bound template after validating parameters.
func (h HostTemplate) Run(ctx context.Context, params map[string]any, scope Scope) (RunResult, []ParameterError, error) {
	if h.runtime == nil {
		return RunResult{}, nil, errors.New("plotapi: template not bound")
	}
	cleaned, errs := validateParameters(h.tpl.Parameters, params)
	if len(errs) > 0 {
		return RunResult{}, errs, nil
	}
	result, err := h.runtime(ctx, RunRequest{
		Template:   h.Descriptor(),
		Parameters: cleaned,
		Scope:      cloneScope(scope),
	})
	if err != nil {
		return RunResult{}, nil, err
	}
	result.GeneratedAt = result.GeneratedAt.UTC()
	return result, nil, nil
}

// SlugFor returns the canonical template identifier plugin/key@version.
func SlugFor(plugin, key, version string) string {
	keyPart := strings.TrimSpace(key)
	versionPart := strings.TrimSpace(version)
	if plugin = strings.TrimSpace(plugin); plugin == "" {
		return fmt.Sprintf("%s@%s", keyPart, versionPart)
	}
	return fmt.Sprintf("%s/%s@%s", plugin, keyPart, versionPart)
}

// SortTemplateDescriptors sorts the slice in-place by plugin/key/version for
// deterministic ordering.
func SortTemplateDescriptors(descriptors []TemplateDescriptor) {
	if len(descriptors) < 2 {
		return
	}
	sort.Slice(descriptors, func(i, j int) bool {
		a := descriptors[i]
		b := descriptors[j]
		if a.Plugin == b.Plugin {
			if a.Key == b.Key {
				return a.Version < b.Version
			}
			return a.Key < b.Key
		}
		return a.Plugin < b.Plugin
	})
}

func validateTemplate(tpl Template) error {
	if strings.TrimSpace(tpl.Key) == "" {
		return errors.New("plotapi: chart template key required")
	}
	if strings.TrimSpace(tpl.Version) == "" {
		return errors.New("plotapi: chart template version required")
	}
	if strings.TrimSpace(tpl.Title) == "" {
		return errors.New("plotapi: chart template title required")
	}
	if len(tpl.OutputFormats) == 0 {
		return errors.New("plotapi: chart template must declare output formats")
	}
	for _, format := range tpl.OutputFormats {
		if format.ContentType() == "" {
			return fmt.Errorf("plotapi: unsupported output format %q", format)
		}
	}
	if tpl.Binder == nil {
		return errors.New("plotapi: chart template binder required")
	}
	return nil
}

func validateParameters(definitions []Parameter, supplied map[string]any) (map[string]any, []ParameterError) {
	cleaned := make(map[string]any)
	var errs []ParameterError
	provided := make(map[string]struct{}, len(supplied))
	for k := range supplied {
		provided[strings.ToLower(k)] = struct{}{}
	}
	for _, param := range definitions {
		key := strings.ToLower(param.Name)
		val, ok := findParamValue(param.Name, supplied)
		if !ok {
			if param.Required {
				errs = append(errs, ParameterError{Name: param.Name, Message: "required parameter missing"})
				continue
			}
			if param.Default != nil {
				coerced, err := coerceParameter(param, param.Default)
				if err != nil {
					errs = append(errs, ParameterError{Name: param.Name, Message: err.Error()})
					continue
				}
				cleaned[param.Name] = coerced
			}
			continue
		}
		coerced, err := coerceParameter(param, val)
		if err != nil {
			errs = append(errs, ParameterError{Name: param.Name, Message: err.Error()})
			continue
		}
		cleaned[param.Name] = coerced
		delete(provided, key)
	}
	for leftover := range provided {
		errs = append(errs, ParameterError{Name: leftover, Message: "parameter not declared"})
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Name < errs[j].Name })
	}
	return cleaned, errs
}

func findParamValue(name string, supplied map[string]any) (any, bool) {
	if supplied == nil {
		return nil, false
	}
	if val, ok := supplied[name]; ok {
		return val, true
	}
	lower := strings.ToLower(name)
	for k, v := range supplied {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return nil, false
}

func coerceParameter(param Parameter, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("parameter %s cannot be null", param.Name)
	}
	switch param.Type {
	case "string":
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s expects string", param.Name)
		}
		if len(param.Enum) > 0 && !containsString(param.Enum, v) {
			return nil, fmt.Errorf("value must be one of %s", strings.Join(param.Enum, ", "))
		}
		return v, nil
	case "integer":
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("parameter %s expects integer", param.Name)
			}
			return int(v), nil
		case string:
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects integer", param.Name)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("parameter %s expects integer", param.Name)
		}
	case "number":
		switch v := raw.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects number", param.Name)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("parameter %s expects number", param.Name)
		}
	case "boolean":
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %s expects boolean", param.Name)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("parameter %s expects boolean", param.Name)
		}
	default:
		return nil, fmt.Errorf("parameter %s has unsupported type %q", param.Name, param.Type)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, candidate := range haystack {
		if candidate == needle {
			return true
		}
	}
	return false
}

func cloneTemplate(t Template) Template {
	cloned := t
	cloned.Parameters = cloneParameters(t.Parameters)
	cloned.OutputFormats = cloneFormats(t.OutputFormats)
	return cloned
}

func cloneParameters(params []Parameter) []Parameter {
	if len(params) == 0 {
		return nil
	}
	cloned := make([]Parameter, len(params))
	copy(cloned, params)
	for i := range cloned {
		if len(cloned[i].Enum) > 0 {
			cloned[i].Enum = append([]string(nil), cloned[i].Enum...)
		}
	}
	return cloned
}

func cloneFormats(formats []Format) []Format {
	if len(formats) == 0 {
		return nil
	}
	cloned := make([]Format, len(formats))
	copy(cloned, formats)
	return cloned
}

func cloneScope(scope Scope) Scope {
	cloned := scope
	cloned.Selection = append([]domain.SelectionKey(nil), scope.Selection...)
	return cloned
}

// CloneResult returns a deep copy of a run result.
func CloneResult(r RunResult) RunResult {
	out := r
	out.Series = make([]Series, len(r.Series))
	for i, s := range r.Series {
		cs := s
		cs.X = append([]float64(nil), s.X...)
		cs.Y = append([]float64(nil), s.Y...)
		cs.ErrBar = append([]float64(nil), s.ErrBar...)
		out.Series[i] = cs
	}
	out.XTickLabels = append([]string(nil), r.XTickLabels...)
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
