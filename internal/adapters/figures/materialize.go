package figures

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"fieldplot/pkg/domain"
	"fieldplot/pkg/plotapi"
)

const (
	defaultWidth  = 800
	defaultHeight = 600
	defaultMargin = 48
)

// RenderFigure encodes a chart result into the requested output format using
// the supplied style.
func RenderFigure(format plotapi.Format, style domain.Style, result plotapi.RunResult) ([]byte, error) {
	switch format {
	case plotapi.FormatPNG:
		return renderPNG(style, result)
	case plotapi.FormatSVG:
		return renderSVG(style, result), nil
	case plotapi.FormatCSV:
		return renderCSV(result)
	case plotapi.FormatJSON:
		return renderJSON(style, result)
	default:
		return nil, fmt.Errorf("unsupported figure format %s", format)
	}
}

type frame struct {
	width, height, margin  int
	minX, maxX, minY, maxY float64
}

func frameFor(style domain.Style, result plotapi.RunResult) frame {
	f := frame{width: style.Width, height: style.Height, margin: style.Margin}
	if f.width <= 0 {
		f.width = defaultWidth
	}
	if f.height <= 0 {
		f.height = defaultHeight
	}
	if f.margin <= 0 {
		f.margin = defaultMargin
	}
	f.minX, f.maxX = math.Inf(1), math.Inf(-1)
	f.minY, f.maxY = math.Inf(1), math.Inf(-1)
	for _, s := range result.Series {
		for i, x := range s.X {
			f.minX = math.Min(f.minX, x)
			f.maxX = math.Max(f.maxX, x)
			y := s.Y[i]
			bar := 0.0
			if i < len(s.ErrBar) {
				bar = s.ErrBar[i]
			}
			f.minY = math.Min(f.minY, y-bar)
			f.maxY = math.Max(f.maxY, y+bar)
		}
	}
	if math.IsInf(f.minX, 1) {
		f.minX, f.maxX = 0, 1
	}
	if math.IsInf(f.minY, 1) {
		f.minY, f.maxY = 0, 1
	}
	if f.maxX == f.minX {
		f.maxX = f.minX + 1
	}
	if f.maxY == f.minY {
		f.maxY = f.minY + 1
	}
	return f
}

// project maps a data point into pixel space inside the frame margins.
func (f frame) project(x, y float64) (int, int) {
	plotW := float64(f.width - 2*f.margin)
	plotH := float64(f.height - 2*f.margin)
	px := float64(f.margin) + (x-f.minX)/(f.maxX-f.minX)*plotW
	py := float64(f.height-f.margin) - (y-f.minY)/(f.maxY-f.minY)*plotH
	return int(math.Round(px)), int(math.Round(py))
}

const gridDivisions = 5

func renderPNG(style domain.Style, result plotapi.RunResult) ([]byte, error) {
	f := frameFor(style, result)
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	draw.Draw(img, img.Bounds(), &image.Uniform{parseHexColor(style.Background, color.RGBA{255, 255, 255, 255})}, image.Point{}, draw.Src)

	if style.ShowGrid {
		gridColor := parseHexColor(style.GridColor, color.RGBA{220, 220, 220, 255})
		for i := 0; i <= gridDivisions; i++ {
			x := f.margin + i*(f.width-2*f.margin)/gridDivisions
			y := f.margin + i*(f.height-2*f.margin)/gridDivisions
			drawLine(img, x, f.margin, x, f.height-f.margin, gridColor, 1)
			drawLine(img, f.margin, y, f.width-f.margin, y, gridColor, 1)
		}
	}

	axisColor := parseHexColor(style.Accent, color.RGBA{0, 0, 0, 255})
	drawLine(img, f.margin, f.height-f.margin, f.width-f.margin, f.height-f.margin, axisColor, 1)
	drawLine(img, f.margin, f.margin, f.margin, f.height-f.margin, axisColor, 1)

	lineWidth := style.LineWidth
	if lineWidth <= 0 {
		lineWidth = 1
	}
	markerSize := style.MarkerSize
	if markerSize <= 0 {
		markerSize = 4
	}
	background := parseHexColor(style.Background, color.RGBA{255, 255, 255, 255})
	for si, s := range result.Series {
		seriesColor := parseHexColor(style.SeriesColor(si), color.RGBA{0, 102, 204, 255})
		var prevX, prevY int
		for i, x := range s.X {
			px, py := f.project(x, s.Y[i])
			if i > 0 {
				drawLine(img, prevX, prevY, px, py, seriesColor, lineWidth)
			}
			if i < len(s.ErrBar) && s.ErrBar[i] > 0 {
				_, top := f.project(x, s.Y[i]+s.ErrBar[i])
				_, bottom := f.project(x, s.Y[i]-s.ErrBar[i])
				drawLine(img, px, top, px, bottom, seriesColor, 1)
				drawLine(img, px-markerSize, top, px+markerSize, top, seriesColor, 1)
				drawLine(img, px-markerSize, bottom, px+markerSize, bottom, seriesColor, 1)
			}
			drawMarker(img, px, py, markerSize, seriesColor, background, s.Solid)
			prevX, prevY = px, py
		}
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawLine paints a straight segment with a naive DDA walk.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color, width int) {
	dx := x1 - x0
	dy := y1 - y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		for off := -(width - 1) / 2; off <= width/2; off++ {
			if abs(dx) >= abs(dy) {
				img.Set(x, y+off, c)
			} else {
				img.Set(x+off, y, c)
			}
		}
	}
}

// drawMarker paints a square marker, filled when solid and hollow otherwise.
func drawMarker(img *image.RGBA, cx, cy, size int, c, background color.Color, solid bool) {
	half := size / 2
	if half < 1 {
		half = 1
	}
	for x := cx - half; x <= cx+half; x++ {
		for y := cy - half; y <= cy+half; y++ {
			onEdge := x == cx-half || x == cx+half || y == cy-half || y == cy+half
			switch {
			case solid || onEdge:
				img.Set(x, y, c)
			default:
				img.Set(x, y, background)
			}
		}
	}
}

func parseHexColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func renderSVG(style domain.Style, result plotapi.RunResult) []byte {
	f := frameFor(style, result)
	background := style.Background
	if background == "" {
		background = "#ffffff"
	}
	accent := style.Accent
	if accent == "" {
		accent = "#000000"
	}
	lineWidth := style.LineWidth
	if lineWidth <= 0 {
		lineWidth = 1
	}
	markerSize := style.MarkerSize
	if markerSize <= 0 {
		markerSize = 4
	}

	buf := &strings.Builder{}
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, f.width, f.height, f.width, f.height)
	fmt.Fprintf(buf, `<rect width="%d" height="%d" fill="%s"/>`, f.width, f.height, background)

	if style.ShowGrid {
		gridColor := style.GridColor
		if gridColor == "" {
			gridColor = "#dcdcdc"
		}
		for i := 0; i <= gridDivisions; i++ {
			x := f.margin + i*(f.width-2*f.margin)/gridDivisions
			y := f.margin + i*(f.height-2*f.margin)/gridDivisions
			fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, x, f.margin, x, f.height-f.margin, gridColor)
			fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, f.margin, y, f.width-f.margin, y, gridColor)
		}
	}

	fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, f.margin, f.height-f.margin, f.width-f.margin, f.height-f.margin, accent)
	fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, f.margin, f.margin, f.margin, f.height-f.margin, accent)

	if result.Title != "" {
		fmt.Fprintf(buf, `<text x="%d" y="%d" text-anchor="middle" fill="%s">%s</text>`, f.width/2, f.margin/2, accent, escapeXML(result.Title))
	}
	if result.XLabel != "" {
		fmt.Fprintf(buf, `<text x="%d" y="%d" text-anchor="middle" fill="%s">%s</text>`, f.width/2, f.height-f.margin/4, accent, escapeXML(result.XLabel))
	}
	if result.YLabel != "" {
		fmt.Fprintf(buf, `<text x="%d" y="%d" text-anchor="middle" fill="%s" transform="rotate(-90 %d %d)">%s</text>`, f.margin/3, f.height/2, accent, f.margin/3, f.height/2, escapeXML(result.YLabel))
	}
	for i, label := range result.XTickLabels {
		px, _ := f.project(float64(i+1), f.minY)
		fmt.Fprintf(buf, `<text x="%d" y="%d" text-anchor="middle" fill="%s">%s</text>`, px, f.height-f.margin/2, accent, escapeXML(label))
	}

	for si, s := range result.Series {
		seriesColor := style.SeriesColor(si)
		if len(s.X) > 1 {
			points := make([]string, len(s.X))
			for i, x := range s.X {
				px, py := f.project(x, s.Y[i])
				points[i] = fmt.Sprintf("%d,%d", px, py)
			}
			fmt.Fprintf(buf, `<polyline fill="none" stroke="%s" stroke-width="%d" points="%s"/>`, seriesColor, lineWidth, strings.Join(points, " "))
		}
		for i, x := range s.X {
			px, py := f.project(x, s.Y[i])
			if i < len(s.ErrBar) && s.ErrBar[i] > 0 {
				_, top := f.project(x, s.Y[i]+s.ErrBar[i])
				_, bottom := f.project(x, s.Y[i]-s.ErrBar[i])
				fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, px, top, px, bottom, seriesColor)
			}
			fill := seriesColor
			if !s.Solid {
				fill = background
			}
			fmt.Fprintf(buf, `<circle cx="%d" cy="%d" r="%d" fill="%s" stroke="%s"/>`, px, py, markerSize/2+1, fill, seriesColor)
		}
	}

	if style.ShowLegend {
		for si, s := range result.Series {
			y := f.margin + si*16
			fmt.Fprintf(buf, `<rect x="%d" y="%d" width="10" height="10" fill="%s"/>`, f.width-f.margin+4, y, style.SeriesColor(si))
			fmt.Fprintf(buf, `<text x="%d" y="%d" fill="%s" font-size="10">%s</text>`, f.width-f.margin+18, y+9, accent, escapeXML(s.Name))
		}
	}

	buf.WriteString(`</svg>`)
	return []byte(buf.String())
}

func escapeXML(s string) string {
	buf := &bytes.Buffer{}
	if err := xmlEscape(buf, s); err != nil {
		return s
	}
	return buf.String()
}

func xmlEscape(buf *bytes.Buffer, s string) error {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	_, err := replacer.WriteString(buf, s)
	return err
}

func renderCSV(result plotapi.RunResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"series", "x", "y", "err"}); err != nil {
		return nil, err
	}
	for _, s := range result.Series {
		for i, x := range s.X {
			bar := ""
			if i < len(s.ErrBar) {
				bar = strconv.FormatFloat(s.ErrBar[i], 'g', -1, 64)
			}
			row := []string{
				s.Name,
				strconv.FormatFloat(x, 'g', -1, 64),
				strconv.FormatFloat(s.Y[i], 'g', -1, 64),
				bar,
			}
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderJSON(style domain.Style, result plotapi.RunResult) ([]byte, error) {
	payload := struct {
		Style  string            `json:"style"`
		Result plotapi.RunResult `json:"result"`
	}{Style: style.Name, Result: result}
	return json.Marshal(payload)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
