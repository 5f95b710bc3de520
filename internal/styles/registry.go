// Package styles maintains the registry of named chart styles. A default set
// ships embedded in the binary; callers may register additional styles at
// runtime.
package styles

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"fieldplot/pkg/domain"
)

//go:embed styles.json
var defaultStylesJSON []byte

// Registry holds named styles. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	styles map[string]domain.Style
}

// NewRegistry returns a registry preloaded with the embedded default styles.
func NewRegistry() (*Registry, error) {
	var defaults []domain.Style
	if err := json.Unmarshal(defaultStylesJSON, &defaults); err != nil {
		return nil, fmt.Errorf("decode embedded styles: %w", err)
	}
	r := &Registry{styles: make(map[string]domain.Style, len(defaults))}
	for _, s := range defaults {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a style. Registered styles are immutable: a duplicate name
// is an error, never a replacement. The registry stores its own copy.
func (r *Registry) Register(s domain.Style) error {
	if s.Name == "" {
		return fmt.Errorf("style name required")
	}
	if len(s.Palette) == 0 {
		return fmt.Errorf("style %q: palette required", s.Name)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("style %q: positive dimensions required", s.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.styles[s.Name]; exists {
		return fmt.Errorf("style %q already registered", s.Name)
	}
	r.styles[s.Name] = s.Clone()
	return nil
}

// Lookup returns a copy of the named style.
func (r *Registry) Lookup(name string) (domain.Style, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.styles[name]
	if !ok {
		return domain.Style{}, domain.NotFoundError{Kind: domain.KindStyle, Name: name}
	}
	return s.Clone(), nil
}

// Names lists registered style names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.styles))
	for name := range r.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
