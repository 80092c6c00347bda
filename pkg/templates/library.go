// Package templates loads the named SQL template library from YAML.
package templates

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/sqlparams/pkg/apperrors"
	"github.com/ekaya-inc/sqlparams/pkg/models"
)

// ErrTemplateNotFound is returned by Get for unknown names.
var ErrTemplateNotFound = fmt.Errorf("template %w", apperrors.ErrNotFound)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Library is a read-only set of named templates.
type Library struct {
	byName map[string]*models.SQLTemplate
	sorted []*models.SQLTemplate
}

type libraryFile struct {
	Templates []*models.SQLTemplate `yaml:"templates"`
}

// Load reads a library file. An empty path yields an empty library.
func Load(path string) (*Library, error) {
	if strings.TrimSpace(path) == "" {
		return newLibrary(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}

	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes and validates library YAML.
func Parse(data []byte) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(file.Templates))
	for i, t := range file.Templates {
		if t == nil {
			return nil, fmt.Errorf("templates[%d]: empty entry", i)
		}
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("templates[%d]: name is required", i)
		}
		if !namePattern.MatchString(t.Name) {
			return nil, fmt.Errorf("templates[%d]: invalid name %q (letters, digits, _ and - only)", i, t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("templates[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}
		if strings.TrimSpace(t.SQL) == "" {
			return nil, fmt.Errorf("template %q: sql is required", t.Name)
		}
	}

	return newLibrary(file.Templates), nil
}

func newLibrary(list []*models.SQLTemplate) *Library {
	lib := &Library{
		byName: make(map[string]*models.SQLTemplate, len(list)),
		sorted: make([]*models.SQLTemplate, 0, len(list)),
	}
	for _, t := range list {
		lib.byName[t.Name] = t
		lib.sorted = append(lib.sorted, t)
	}
	sort.Slice(lib.sorted, func(i, j int) bool {
		return lib.sorted[i].Name < lib.sorted[j].Name
	})
	return lib
}

// Get returns a copy of the named template.
func (l *Library) Get(name string) (*models.SQLTemplate, error) {
	t, ok := l.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	cp := *t
	return &cp, nil
}

// List returns copies of all templates sorted by name.
func (l *Library) List() []*models.SQLTemplate {
	out := make([]*models.SQLTemplate, 0, len(l.sorted))
	for _, t := range l.sorted {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// Len is the number of templates.
func (l *Library) Len() int {
	return len(l.sorted)
}

// IsNotFound reports whether err came from a lookup of an unknown template.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
