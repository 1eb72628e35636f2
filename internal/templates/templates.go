// Package templates expands named multi-event plans into concrete blocks.
package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/schedd/internal/freeslot"
	"github.com/sandeepkv93/schedd/internal/model"
)

//go:embed builtin.yaml
var builtinYAML []byte

var ErrUnknownTemplate = errors.New("templates: unknown template")

// Step is one block of a plan. At pins the start; otherwise the block is
// fitted into Window.
type Step struct {
	Title        string         `yaml:"title" json:"title"`
	Duration     int            `yaml:"duration" json:"duration"`
	DayOffset    int            `yaml:"day_offset,omitempty" json:"day_offset,omitempty"`
	At           string         `yaml:"at,omitempty" json:"at,omitempty"`
	Window       string         `yaml:"window,omitempty" json:"window,omitempty"`
	BufferBefore int            `yaml:"buffer_before,omitempty" json:"buffer_before,omitempty"`
	BufferAfter  int            `yaml:"buffer_after,omitempty" json:"buffer_after,omitempty"`
	Label        string         `yaml:"label,omitempty" json:"label,omitempty"`
	Location     string         `yaml:"location,omitempty" json:"location,omitempty"`
	Modality     model.Modality `yaml:"modality,omitempty" json:"modality,omitempty"`
	Notes        string         `yaml:"notes,omitempty" json:"notes,omitempty"`
}

type Template struct {
	Name     string         `yaml:"name" json:"name"`
	Label    string         `yaml:"label,omitempty" json:"label,omitempty"`
	Location string         `yaml:"location,omitempty" json:"location,omitempty"`
	Modality model.Modality `yaml:"modality,omitempty" json:"modality,omitempty"`
	Steps    []Step         `yaml:"steps" json:"steps"`
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("templates: name is required")
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("templates: %s has no steps", t.Name)
	}
	for i, s := range t.Steps {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("templates: %s step %d has no title", t.Name, i+1)
		}
		if s.Duration <= 0 || s.Duration >= model.MinutesPerDay {
			return fmt.Errorf("templates: %s step %q duration %d out of range", t.Name, s.Title, s.Duration)
		}
		if s.BufferBefore < 0 || s.BufferAfter < 0 {
			return fmt.Errorf("templates: %s step %q has a negative buffer", t.Name, s.Title)
		}
		if s.At != "" {
			if _, err := model.ParseClock(s.At); err != nil {
				return fmt.Errorf("templates: %s step %q: %w", t.Name, s.Title, err)
			}
		}
		if s.Window != "" {
			if _, err := freeslot.ParseWindow(s.Window); err != nil {
				return fmt.Errorf("templates: %s step %q: %w", t.Name, s.Title, err)
			}
		}
		if !s.Modality.IsValid() {
			return fmt.Errorf("templates: %s step %q: %w", t.Name, s.Title, model.ErrInvalidModality)
		}
	}
	return nil
}

type file struct {
	Templates []Template `yaml:"templates"`
}

// Library holds templates by lower-cased name.
type Library struct {
	byName map[string]Template
}

// Builtin returns the library of built-in plans.
func Builtin() *Library {
	lib, err := parse(&Library{byName: map[string]Template{}}, bytes.NewReader(builtinYAML))
	if err != nil {
		panic(fmt.Sprintf("templates: builtin: %v", err))
	}
	return lib
}

// Load reads YAML from r on top of the built-ins. A template with a built-in
// name replaces it.
func Load(r io.Reader) (*Library, error) {
	return parse(Builtin(), r)
}

func LoadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("templates: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func parse(lib *Library, r io.Reader) (*Library, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("templates: decode: %w", err)
	}
	for _, t := range doc.Templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		lib.byName[strings.ToLower(t.Name)] = t
	}
	return lib, nil
}

func (l *Library) Names() []string {
	out := make([]string, 0, len(l.byName))
	for name := range l.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (l *Library) Get(name string) (Template, bool) {
	t, ok := l.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}
