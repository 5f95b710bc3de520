// Package waveform is the built-in chart plugin: deterministic series
// generators plus the chart templates for specimen traces and site summaries.
package waveform

import (
	"context"
	"fmt"

	"fieldplot/internal/core"
	"fieldplot/internal/stats"
	"fieldplot/pkg/domain"
	"fieldplot/pkg/plotapi"
)

// Plugin implements the built-in waveform chart module.
type Plugin struct{}

// New constructs a waveform plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "waveform" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "1.0.0" }

// Register wires the chart templates.
func (Plugin) Register(registry *core.PluginRegistry) error {
	for _, template := range []core.ChartTemplate{
		specimenSeriesTemplate(),
		siteSummaryTemplate(),
		allSitesSummaryTemplate(),
	} {
		if err := registry.RegisterChartTemplate(template); err != nil {
			return err
		}
	}
	return nil
}

func rangeParameters() []plotapi.Parameter {
	return []plotapi.Parameter{
		{Name: "range_down", Type: "integer", Default: stats.DefaultRangeDown, Description: "lower bound of the sample index window"},
		{Name: "range_up", Type: "integer", Default: stats.DefaultRangeUp, Description: "upper bound of the sample index window"},
	}
}

func rangeWindow(params map[string]any) (down, up int, err error) {
	down = intParam(params, "range_down", stats.DefaultRangeDown)
	up = intParam(params, "range_up", stats.DefaultRangeUp)
	if down > up {
		return 0, 0, fmt.Errorf("range_down %d exceeds range_up %d", down, up)
	}
	return down, up, nil
}

func intParam(params map[string]any, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func stringParam(params map[string]any, name string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return ""
}

func specimenSeriesTemplate() core.ChartTemplate {
	return core.ChartTemplate{
		Template: plotapi.Template{
			Key:         "specimen-series",
			Version:     "1.0.0",
			Title:       "Specimen series",
			Description: "Raw sample traces of one parameter for every specimen in scope; unselected specimens plot hollow.",
			Parameters: append([]plotapi.Parameter{
				{Name: "parameter", Type: "string", Required: true, Description: "parameter to plot"},
			}, rangeParameters()...),
			OutputFormats: []plotapi.Format{plotapi.FormatPNG, plotapi.FormatSVG, plotapi.FormatCSV, plotapi.FormatJSON},
			Binder: func(env plotapi.Environment) (plotapi.Runner, error) {
				return func(ctx context.Context, req plotapi.RunRequest) (plotapi.RunResult, error) {
					parameter := stringParam(req.Parameters, "parameter")
					down, up, err := rangeWindow(req.Parameters)
					if err != nil {
						return plotapi.RunResult{}, err
					}
					h := env.Hierarchy()
					var series []plotapi.Series
					solidCount := 0
					for _, key := range scopedSpecimens(h, req.Scope) {
						sp, ok := h.FindSpecimen(key.Site, key.Specimen)
						if !ok {
							continue
						}
						param, ok := sp.FindParameter(parameter)
						if !ok {
							continue
						}
						var xs, ys []float64
						for _, sample := range param.Samples {
							if sample.Index < down || sample.Index > up {
								continue
							}
							xs = append(xs, float64(sample.Index))
							ys = append(ys, sample.Value)
						}
						if len(xs) == 0 {
							continue
						}
						solid := isSelected(req.Scope.Selection, key)
						if solid {
							solidCount++
						}
						series = append(series, plotapi.Series{
							Name:  key.Site + "/" + key.Specimen,
							X:     xs,
							Y:     ys,
							Solid: solid,
						})
					}
					if len(series) == 0 {
						return plotapi.RunResult{}, fmt.Errorf("no specimen in scope carries parameter %q in window %d..%d", parameter, down, up)
					}
					return plotapi.RunResult{
						Title:  fmt.Sprintf("%s by specimen", parameter),
						XLabel: "sample index",
						YLabel: parameter,
						Series: series,
						Metadata: map[string]any{
							"specimens":  len(series),
							"selected":   solidCount,
							"range_down": down,
							"range_up":   up,
						},
						GeneratedAt: env.Now(),
					}, nil
				}, nil
			},
		},
	}
}

func siteSummaryTemplate() core.ChartTemplate {
	return core.ChartTemplate{
		Template: plotapi.Template{
			Key:         "site-summary",
			Version:     "1.0.0",
			Title:       "Site summary",
			Description: "Windowed mean of every parameter across a site's specimens, one standard deviation as error bars.",
			Parameters:  rangeParameters(),
			OutputFormats: []plotapi.Format{
				plotapi.FormatPNG, plotapi.FormatSVG, plotapi.FormatCSV, plotapi.FormatJSON,
			},
			Binder: func(env plotapi.Environment) (plotapi.Runner, error) {
				return func(ctx context.Context, req plotapi.RunRequest) (plotapi.RunResult, error) {
					down, up, err := rangeWindow(req.Parameters)
					if err != nil {
						return plotapi.RunResult{}, err
					}
					if req.Scope.Site == "" {
						return plotapi.RunResult{}, fmt.Errorf("site required in scope")
					}
					h := env.Hierarchy()
					site, ok := h.FindSite(req.Scope.Site)
					if !ok {
						return plotapi.RunResult{}, domain.NotFoundError{Kind: domain.KindSite, Name: req.Scope.Site}
					}
					selected := stats.SelectedSpecimens(req.Scope.Selection, site.Name)
					points := stats.SiteSummary(site, selected, down, up)
					if len(points) == 0 {
						return plotapi.RunResult{}, fmt.Errorf("site %q has no specimens", site.Name)
					}
					aggregated := len(site.Specimens)
					if len(selected) > 0 {
						aggregated = len(selected)
					}
					return plotapi.RunResult{
						Title:       fmt.Sprintf("%s summary", site.Name),
						XLabel:      "parameter",
						YLabel:      "windowed mean",
						XTickLabels: pointLabels(points),
						Series:      []plotapi.Series{summarySeries(site.Name, points)},
						Metadata: map[string]any{
							"specimens":  aggregated,
							"range_down": down,
							"range_up":   up,
						},
						GeneratedAt: env.Now(),
					}, nil
				}, nil
			},
		},
	}
}

func allSitesSummaryTemplate() core.ChartTemplate {
	return core.ChartTemplate{
		Template: plotapi.Template{
			Key:         "all-sites-summary",
			Version:     "1.0.0",
			Title:       "All sites summary",
			Description: "Windowed mean of one parameter across every site, one standard deviation as error bars.",
			Parameters: append([]plotapi.Parameter{
				{Name: "parameter", Type: "string", Required: true, Description: "parameter to aggregate"},
			}, rangeParameters()...),
			OutputFormats: []plotapi.Format{
				plotapi.FormatPNG, plotapi.FormatSVG, plotapi.FormatCSV, plotapi.FormatJSON,
			},
			Binder: func(env plotapi.Environment) (plotapi.Runner, error) {
				return func(ctx context.Context, req plotapi.RunRequest) (plotapi.RunResult, error) {
					parameter := stringParam(req.Parameters, "parameter")
					down, up, err := rangeWindow(req.Parameters)
					if err != nil {
						return plotapi.RunResult{}, err
					}
					h := env.Hierarchy()
					if len(h.Sites) == 0 {
						return plotapi.RunResult{}, fmt.Errorf("no sites loaded")
					}
					points := stats.AllSitesSummary(h, parameter, req.Scope.Selection, down, up)
					return plotapi.RunResult{
						Title:       fmt.Sprintf("%s across sites", parameter),
						XLabel:      "site",
						YLabel:      fmt.Sprintf("mean %s", parameter),
						XTickLabels: pointLabels(points),
						Series:      []plotapi.Series{summarySeries(parameter, points)},
						Metadata: map[string]any{
							"sites":      len(points),
							"range_down": down,
							"range_up":   up,
						},
						GeneratedAt: env.Now(),
					}, nil
				}, nil
			},
		},
	}
}

// scopedSpecimens lists every specimen the scope covers, in hierarchy order.
// The selection does not narrow the list; it only decides solid vs hollow.
func scopedSpecimens(h domain.Hierarchy, scope plotapi.Scope) []domain.SelectionKey {
	var keys []domain.SelectionKey
	for _, site := range h.Sites {
		if scope.Site != "" && site.Name != scope.Site {
			continue
		}
		for _, sp := range site.Specimens {
			keys = append(keys, domain.SelectionKey{Site: site.Name, Specimen: sp.Name})
		}
	}
	return keys
}

// isSelected reports whether a specimen is in the selection. An empty
// selection selects everything.
func isSelected(selection []domain.SelectionKey, key domain.SelectionKey) bool {
	if len(selection) == 0 {
		return true
	}
	for _, sel := range selection {
		if sel == key {
			return true
		}
	}
	return false
}

func pointLabels(points []stats.PointSummary) []string {
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Label
	}
	return labels
}

func summarySeries(name string, points []stats.PointSummary) plotapi.Series {
	s := plotapi.Series{Name: name, Solid: true}
	for i, p := range points {
		s.X = append(s.X, float64(i+1))
		s.Y = append(s.Y, p.Mean)
		s.ErrBar = append(s.ErrBar, p.Std)
	}
	return s
}
