package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one risk category with its ordered keyword list.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is the externally configured set of risk categories. It is loaded
// once at process start and never mutated afterwards, so it is safe to share
// across concurrent classification calls. Category order follows the file.
type Taxonomy struct {
	categories []Category
	index      map[string]int
}

type taxonomyFile struct {
	Categories []Category `yaml:"categories"`
}

// Load reads a taxonomy from a YAML file. Errors here are configuration
// errors: the caller is expected to treat them as fatal.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return nil, fmt.Errorf("taxonomy path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	return New(file.Categories)
}

// New builds a Taxonomy from an ordered category list.
func New(categories []Category) (*Taxonomy, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("taxonomy defines no categories")
	}
	index := make(map[string]int, len(categories))
	for i, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("taxonomy category %d has no name", i)
		}
		if _, exists := index[name]; exists {
			return nil, fmt.Errorf("duplicate taxonomy category %q", name)
		}
		categories[i].Name = name
		index[name] = i
	}
	return &Taxonomy{categories: categories, index: index}, nil
}

// Categories returns the categories in file order. Callers must not modify
// the returned slice.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// Names returns the category names in file order.
func (t *Taxonomy) Names() []string {
	names := make([]string, 0, len(t.categories))
	for _, cat := range t.categories {
		names = append(names, cat.Name)
	}
	return names
}

// Keywords returns the keyword list for a category, nil when unknown.
func (t *Taxonomy) Keywords(category string) []string {
	i, ok := t.index[category]
	if !ok {
		return nil
	}
	return t.categories[i].Keywords
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.categories)
}
