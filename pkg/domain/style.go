package domain

// Style is a named, immutable bundle of rendering configuration. Styles are
// referenced by name from the presenter; they are independent of the data
// hierarchy and never mutated during a session.
type Style struct {
	Name       string   `json:"name"`
	Title      string   `json:"title,omitempty"`
	Palette    []string `json:"palette"`
	Background string   `json:"background"`
	GridColor  string   `json:"grid_color,omitempty"`
	Accent     string   `json:"accent,omitempty"`
	LineWidth  int      `json:"line_width"`
	MarkerSize int      `json:"marker_size"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Margin     int      `json:"margin"`
	ShowGrid   bool     `json:"show_grid"`
	ShowLegend bool     `json:"show_legend"`
}

// Clone returns a deep copy so registry consumers cannot mutate shared state.
func (s Style) Clone() Style {
	out := s
	out.Palette = append([]string(nil), s.Palette...)
	return out
}

// SeriesColor returns the palette entry for the i-th series, cycling when the
// palette is shorter than the series count.
func (s Style) SeriesColor(i int) string {
	if len(s.Palette) == 0 {
		return "#000000"
	}
	return s.Palette[i%len(s.Palette)]
}
