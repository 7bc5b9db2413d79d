// Package theme holds the look of the status page: dark mode, the
// background mask and the pool of background images.
package theme

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "default"

type Theme struct {
	Name        string   `yaml:"name" json:"name"`
	DarkMode    bool     `yaml:"dark_mode" json:"dark_mode"`
	MaskOpacity float64  `yaml:"mask_opacity" json:"mask_opacity"`
	Backgrounds []string `yaml:"backgrounds" json:"backgrounds"`
}

// Pick returns one of the backgrounds at random, or "" when there are none.
func (t Theme) Pick() string {
	if len(t.Backgrounds) == 0 {
		return ""
	}
	return t.Backgrounds[rand.IntN(len(t.Backgrounds))]
}

// Validate checks the ranges of the numeric fields.
func (t Theme) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("theme has no name")
	}
	if t.MaskOpacity < 0 || t.MaskOpacity > 1 {
		return fmt.Errorf("theme %q: mask_opacity %v outside [0, 1]", t.Name, t.MaskOpacity)
	}
	return nil
}

// Set is the collection of themes available to the renderer.
type Set struct {
	mu     sync.RWMutex
	themes map[string]Theme
}

// NewSet starts a set containing only base.
func NewSet(base Theme) *Set {
	return &Set{themes: map[string]Theme{base.Name: base}}
}

// Add registers or replaces a theme.
func (s *Set) Add(t Theme) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.themes[t.Name] = t
	s.mu.Unlock()
	return nil
}

// Get returns the theme named name, or the default theme.
func (s *Set) Get(name string) Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.themes[name]; ok {
		return t
	}
	return s.themes[DefaultName]
}

// Names lists the registered themes in alphabetical order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.themes))
	for n := range s.themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadDir reads every *.yaml / *.yml file in dir into the set. A missing
// directory is not an error; a malformed file is skipped with a warning.
func (s *Set) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read theme dir: %w", err)
	}

	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := readTheme(path)
		if err != nil {
			slog.Warn("skipping theme file", "path", path, "error", err)
			continue
		}
		if err := s.Add(t); err != nil {
			slog.Warn("skipping theme file", "path", path, "error", err)
			continue
		}
		slog.Info("loaded theme", "name", t.Name, "backgrounds", len(t.Backgrounds))
	}
	return nil
}

func readTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Theme{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t, nil
}
