// Command style-check validates a styles JSON file: structural requirements,
// color formats, and name uniqueness. It is run against internal/styles/styles.json
// in CI and against user-provided style bundles before distribution.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"fieldplot/pkg/domain"
)

var (
	hexColorRE = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	exitFunc   = os.Exit
)

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("style-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var stylesPath string
	fs.StringVar(&stylesPath, "styles", "internal/styles/styles.json", "path to styles json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	count, err := run(stylesPath)
	if err != nil {
		fmt.Fprintf(stderr, "Style validation failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Style validation passed (%d styles).\n", count)
	return 0
}

// validatePath ensures the styles file path stays inside the working tree and
// is not an absolute or path-traversing reference.
func validatePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths not allowed: %s", p)
	}
	clean := filepath.Clean(p)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("path traversal not allowed: %s", p)
	}
	return clean, nil
}

func run(stylesPath string) (int, error) {
	safePath, err := validatePath(stylesPath)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(safePath) // #nosec G304: path validated by validatePath
	if err != nil {
		return 0, fmt.Errorf("read styles: %w", err)
	}
	var styleList []domain.Style
	if err := json.Unmarshal(data, &styleList); err != nil {
		return 0, fmt.Errorf("parse styles: %w", err)
	}
	if len(styleList) == 0 {
		return 0, fmt.Errorf("styles entry is empty")
	}
	seen := make(map[string]struct{}, len(styleList))
	for i, style := range styleList {
		if err := validateStyle(style); err != nil {
			return 0, fmt.Errorf("styles[%d]: %w", i, err)
		}
		if _, dup := seen[style.Name]; dup {
			return 0, fmt.Errorf("styles[%d]: duplicate name %q", i, style.Name)
		}
		seen[style.Name] = struct{}{}
	}
	return len(styleList), nil
}

func validateStyle(style domain.Style) error {
	if style.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(style.Palette) == 0 {
		return fmt.Errorf("%s: palette is empty", style.Name)
	}
	for i, entry := range style.Palette {
		if !hexColorRE.MatchString(entry) {
			return fmt.Errorf("%s: palette[%d] %q is not a #rrggbb color", style.Name, i, entry)
		}
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"background", style.Background},
		{"grid_color", style.GridColor},
		{"accent", style.Accent},
	} {
		if field.value == "" {
			continue
		}
		if !hexColorRE.MatchString(field.value) {
			return fmt.Errorf("%s: %s %q is not a #rrggbb color", style.Name, field.name, field.value)
		}
	}
	if style.Background == "" {
		return fmt.Errorf("%s: missing background", style.Name)
	}
	if style.LineWidth <= 0 || style.MarkerSize <= 0 {
		return fmt.Errorf("%s: line_width and marker_size must be positive", style.Name)
	}
	if style.Width <= 0 || style.Height <= 0 {
		return fmt.Errorf("%s: width and height must be positive", style.Name)
	}
	if style.Margin < 0 {
		return fmt.Errorf("%s: margin must not be negative", style.Name)
	}
	return nil
}
