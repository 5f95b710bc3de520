// Package plotapi defines the contract between the fieldplot host and chart
// plugins: template manifests, parameter validation, and the bind/run
// lifecycle. It is the sole surface a plugin author needs to import.
package plotapi

import (
	"context"
	"time"

	"fieldplot/pkg/domain"
)

// Format identifies a figure output encoding.
type Format string

// Supported output formats for rendered figures.
const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type for the format, or an empty string for
// unknown formats.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	default:
		return ""
	}
}

// Parameter declares one tunable input of a chart template.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// ParameterError reports a single invalid or missing parameter.
type ParameterError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Scope narrows a chart run to part of the hierarchy. Empty fields widen the
// scope: an empty Site means all sites, an empty Selection means every
// specimen within the scoped sites.
type Scope struct {
	Site      string                `json:"site,omitempty"`
	Selection []domain.SelectionKey `json:"selection,omitempty"`
}

// Series is one named trace of a rendered chart.
type Series struct {
	Name   string    `json:"name"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	ErrBar []float64 `json:"err,omitempty"`
	Solid  bool      `json:"solid"`
}

// RunResult carries the data a chart run produced, ready for materialization
// into any declared output format.
type RunResult struct {
	Title       string         `json:"title"`
	XLabel      string         `json:"x_label,omitempty"`
	YLabel      string         `json:"y_label,omitempty"`
	XTickLabels []string       `json:"x_tick_labels,omitempty"`
	Series      []Series       `json:"series"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// RunRequest is handed to a bound runner for one chart execution.
type RunRequest struct {
	Template   TemplateDescriptor
	Parameters map[string]any
	Scope      Scope
}

// Environment provides runtime dependencies to binders. Hierarchy yields the
// active hierarchy snapshot at run time; Now supplies timestamps.
type Environment struct {
	Hierarchy func() domain.Hierarchy
	Now       func() time.Time
}

// Runner executes a bound template against the active hierarchy.
type Runner func(context.Context, RunRequest) (RunResult, error)

// Binder produces a Runner from the runtime environment. Binders originate
// from plugin authors and run once at install time.
type Binder func(Environment) (Runner, error)

// Template is a chart manifest contributed by a plugin.
type Template struct {
	Key           string
	Version       string
	Title         string
	Description   string
	Parameters    []Parameter
	OutputFormats []Format
	Binder        Binder
}

// TemplateDescriptor is an immutable snapshot of a template plus plugin
// provenance and its canonical slug.
type TemplateDescriptor struct {
	Plugin        string      `json:"plugin"`
	Key           string      `json:"key"`
	Version       string      `json:"version"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Parameters    []Parameter `json:"parameters"`
	OutputFormats []Format    `json:"output_formats"`
	Slug          string      `json:"slug"`
}
