package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validStyles = `[
  {"name": "classic", "palette": ["#1f77b4", "#ff7f0e"], "background": "#ffffff",
   "grid_color": "#dddddd", "line_width": 2, "marker_size": 6,
   "width": 800, "height": 600, "margin": 40, "show_grid": true, "show_legend": true}
]`

func writeStyles(t *testing.T, content string) string {
	t.Helper()
	t.Chdir(t.TempDir())
	path := filepath.Join("bundle", "styles.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCLIPass(t *testing.T) {
	path := writeStyles(t, validStyles)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-styles", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("got exit code %d, stderr %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "passed (1 styles)") {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestCLIMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-styles", "nope.json"}, &stdout, &stderr); code != 1 {
		t.Fatalf("got exit code %d", code)
	}
	if !strings.Contains(stderr.String(), "Style validation failed") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestCLIBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-unknown"}, &stdout, &stderr); code != 2 {
		t.Fatalf("got exit code %d", code)
	}
}

func TestRunRejectsInvalidStyles(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", "nope", "parse styles"},
		{"empty list", "[]", "styles entry is empty"},
		{"missing name", `[{"palette": ["#111111"], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 1, "height": 1}]`, "missing name"},
		{"empty palette", `[{"name": "a", "palette": [], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 1, "height": 1}]`, "palette is empty"},
		{"bad color", `[{"name": "a", "palette": ["red"], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 1, "height": 1}]`, "not a #rrggbb color"},
		{"bad background", `[{"name": "a", "palette": ["#111111"], "background": "white", "line_width": 1, "marker_size": 1, "width": 1, "height": 1}]`, "not a #rrggbb color"},
		{"missing background", `[{"name": "a", "palette": ["#111111"], "background": "", "line_width": 1, "marker_size": 1, "width": 1, "height": 1}]`, "missing background"},
		{"zero line width", `[{"name": "a", "palette": ["#111111"], "background": "#ffffff", "line_width": 0, "marker_size": 1, "width": 1, "height": 1}]`, "must be positive"},
		{"zero dimensions", `[{"name": "a", "palette": ["#111111"], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 0, "height": 1}]`, "width and height"},
		{"negative margin", `[{"name": "a", "palette": ["#111111"], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 1, "height": 1, "margin": -1}]`, "margin"},
		{"duplicate name", `[
			{"name": "a", "palette": ["#111111"], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 1, "height": 1},
			{"name": "a", "palette": ["#222222"], "background": "#ffffff", "line_width": 1, "marker_size": 1, "width": 1, "height": 1}
		]`, "duplicate name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeStyles(t, tc.content)
			_, err := run(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	if _, err := validatePath(""); err == nil {
		t.Fatalf("empty path accepted")
	}
	if _, err := validatePath("/etc/styles.json"); err == nil {
		t.Fatalf("absolute path accepted")
	}
	if _, err := validatePath("../styles.json"); err == nil {
		t.Fatalf("traversal accepted")
	}
	if _, err := validatePath("bundle/styles.json"); err != nil {
		t.Fatalf("relative path rejected: %v", err)
	}
}
