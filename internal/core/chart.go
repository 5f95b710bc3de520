package core

import (
	"context"
	"errors"

	"fieldplot/pkg/plotapi"
)

// ChartTemplate wraps a chart template contributed by plugins and manages
// host-side runtime state via pkg/plotapi's HostTemplate implementation.
type ChartTemplate struct {
	plotapi.Template
	Plugin string

	host *plotapi.HostTemplate
}

// Descriptor produces a descriptor snapshot for the template, cloning nested
// state to guard against mutation.
func (t ChartTemplate) Descriptor() ChartTemplateDescriptor {
	if host, err := t.hostOrNew(); err == nil {
		return host.Descriptor()
	}
	return ChartTemplateDescriptor{
		Plugin:        t.Plugin,
		Key:           t.Key,
		Version:       t.Version,
		Title:         t.Title,
		Description:   t.Description,
		Parameters:    append([]ChartParameter(nil), t.Parameters...),
		OutputFormats: append([]ChartFormat(nil), t.OutputFormats...),
		Slug:          plotapi.SlugFor(t.Plugin, t.Key, t.Version),
	}
}

// SupportsFormat reports whether the template declares the requested format.
func (t ChartTemplate) SupportsFormat(format ChartFormat) bool {
	if t.host != nil {
		return t.host.SupportsFormat(format)
	}
	for _, candidate := range t.OutputFormats {
		if candidate == format {
			return true
		}
	}
	return false
}

// ValidateParameters validates supplied parameters against the template definition.
func (t ChartTemplate) ValidateParameters(params map[string]any) (map[string]any, []ChartParameterError) {
	host, err := t.hostOrNew()
	if err != nil {
		return nil, []ChartParameterError{{Name: "", Message: err.Error()}}
	}
	return host.ValidateParameters(params)
}

// Run executes the chart template using the bound runner after validating parameters.
func (t ChartTemplate) Run(ctx context.Context, params map[string]any, scope ChartScope) (ChartRunResult, []ChartParameterError, error) {
	host, err := t.boundHost()
	if err != nil {
		return ChartRunResult{}, nil, err
	}
	return host.Run(ctx, params, scope)
}

// bind attaches a runtime runner using the provided environment.
func (t *ChartTemplate) bind(env ChartEnvironment) error {
	if t == nil {
		return errors.New("chart template nil")
	}
	host, err := plotapi.NewHostTemplate(t.Plugin, t.Template)
	if err != nil {
		return err
	}
	if err := host.Bind(env); err != nil {
		return err
	}
	t.host = &host
	return nil
}

// validate ensures required fields are present and structurally sound.
func (t ChartTemplate) validate() error {
	_, err := plotapi.NewHostTemplate(t.Plugin, t.Template)
	return err
}

// slug returns the canonical identifier for the template.
func (t ChartTemplate) slug() string {
	return plotapi.SlugFor(t.Plugin, t.Key, t.Version)
}

func (t ChartTemplate) hostOrNew() (plotapi.HostTemplate, error) {
	if t.host != nil {
		return *t.host, nil
	}
	return plotapi.NewHostTemplate(t.Plugin, t.Template)
}

func (t ChartTemplate) boundHost() (*plotapi.HostTemplate, error) {
	if t.host == nil {
		return nil, errors.New("chart template not bound")
	}
	return t.host, nil
}
