package core

import "fieldplot/pkg/plotapi"

type (
	// ChartFormat mirrors plotapi.Format for core consumers.
	ChartFormat = plotapi.Format
	// ChartScope mirrors plotapi.Scope for core consumers.
	ChartScope = plotapi.Scope
	// ChartParameter mirrors plotapi.Parameter for core consumers.
	ChartParameter = plotapi.Parameter
	// ChartParameterError mirrors plotapi.ParameterError for core consumers.
	ChartParameterError = plotapi.ParameterError
	// ChartBinder mirrors plotapi.Binder for core consumers.
	ChartBinder = plotapi.Binder
	// ChartRunner mirrors plotapi.Runner for core consumers.
	ChartRunner = plotapi.Runner
	// ChartRunRequest mirrors plotapi.RunRequest for core consumers.
	ChartRunRequest = plotapi.RunRequest
	// ChartRunResult mirrors plotapi.RunResult for core consumers.
	ChartRunResult = plotapi.RunResult
	// ChartSeries mirrors plotapi.Series for core consumers.
	ChartSeries = plotapi.Series
	// ChartTemplateDescriptor mirrors plotapi.TemplateDescriptor for core consumers.
	ChartTemplateDescriptor = plotapi.TemplateDescriptor
	// ChartEnvironment mirrors plotapi.Environment for core consumers.
	ChartEnvironment = plotapi.Environment
)

const (
	// FormatPNG exposes plotapi.FormatPNG via the core package.
	FormatPNG ChartFormat = plotapi.FormatPNG
	// FormatSVG exposes plotapi.FormatSVG via the core package.
	FormatSVG ChartFormat = plotapi.FormatSVG
	// FormatCSV exposes plotapi.FormatCSV via the core package.
	FormatCSV ChartFormat = plotapi.FormatCSV
	// FormatJSON exposes plotapi.FormatJSON via the core package.
	FormatJSON ChartFormat = plotapi.FormatJSON
)
