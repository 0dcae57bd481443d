package classify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Built-in category labels.
const (
	Images    = "images"
	Documents = "documents"
	Audio     = "audio"
	Video     = "video"
	Archives  = "archives"
	Unknown   = "Unknown"
)

var (
	ErrDuplicateExtension = errors.New("extension assigned to more than one category")
	ErrReservedCategory   = errors.New("category name is reserved")
	ErrInvalidCategory    = errors.New("invalid category name")
)

// Category is a named group of extensions.
type Category struct {
	Name       string
	Extensions []string
}

// Table classifies names by extension. The zero value is not usable; build
// one with New or Default.
type Table struct {
	categories []Category
	index      map[string]string
	names      map[string]struct{}
}

// DefaultCategories returns the built-in taxonomy in table order.
func DefaultCategories() []Category {
	return []Category{
		{Name: Images, Extensions: []string{"JPEG", "PNG", "JPG", "SVG"}},
		{Name: Documents, Extensions: []string{"DOC", "DOCX", "TXT", "PDF", "XLSX", "PPTX"}},
		{Name: Audio, Extensions: []string{"MP3", "OGG", "WAV", "AMR"}},
		{Name: Video, Extensions: []string{"AVI", "MP4", "MOV", "MKV"}},
		{Name: Archives, Extensions: []string{"ZIP", "GZ", "TAR"}},
	}
}

var defaultTable = mustNew(DefaultCategories())

// Default returns the shared built-in table.
func Default() *Table {
	return defaultTable
}

func mustNew(categories []Category) *Table {
	t, err := New(categories)
	if err != nil {
		panic(err)
	}
	return t
}

// New normalizes categories into a Table. Extensions are lower-cased and
// stripped of a leading dot; duplicates inside one category collapse, while an
// extension shared by two categories is an error.
func New(categories []Category) (*Table, error) {
	t := &Table{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]string),
		names:      make(map[string]struct{}, len(categories)+1),
	}
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, c.Name)
		}
		if name == Unknown {
			return nil, fmt.Errorf("%w: %q", ErrReservedCategory, name)
		}
		if _, dup := t.names[name]; dup {
			return nil, fmt.Errorf("%w: %q listed twice", ErrInvalidCategory, name)
		}
		t.names[name] = struct{}{}

		exts := make([]string, 0, len(c.Extensions))
		for _, raw := range c.Extensions {
			ext := normalizeExt(raw)
			if ext == "" {
				continue
			}
			if owner, ok := t.index[ext]; ok {
				if owner == name {
					continue
				}
				return nil, fmt.Errorf("%w: %q in %q and %q", ErrDuplicateExtension, ext, owner, name)
			}
			t.index[ext] = name
			exts = append(exts, ext)
		}
		t.categories = append(t.categories, Category{Name: name, Extensions: exts})
	}
	t.names[Unknown] = struct{}{}
	return t, nil
}

// FromMap builds a table from an unordered mapping, ordering categories by name.
func FromMap(m map[string][]string) (*Table, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	categories := make([]Category, 0, len(names))
	for _, name := range names {
		categories = append(categories, Category{Name: name, Extensions: m[name]})
	}
	return New(categories)
}

// Classify returns the category for a file name (not a full path).
func (t *Table) Classify(name string) string {
	ext := Extension(name)
	if ext == "" {
		return Unknown
	}
	if category, ok := t.index[ext]; ok {
		return category
	}
	return Unknown
}

// IsCategory reports whether name is one of the table's labels, Unknown included.
func (t *Table) IsCategory(name string) bool {
	_, ok := t.names[name]
	return ok
}

// Categories returns every label in table order followed by Unknown.
func (t *Table) Categories() []string {
	out := make([]string, 0, len(t.categories)+1)
	for _, c := range t.categories {
		out = append(out, c.Name)
	}
	return append(out, Unknown)
}

// Extensions returns the normalized extensions owned by category.
func (t *Table) Extensions(category string) []string {
	for _, c := range t.categories {
		if c.Name == category {
			out := make([]string, len(c.Extensions))
			copy(out, c.Extensions)
			return out
		}
	}
	return nil
}

// Extension returns the lower-cased text after the last dot of name, or an
// empty string when name has no extension.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Classify uses the default table.
func Classify(name string) string {
	return defaultTable.Classify(name)
}

var titleCaser = cases.Title(language.Und)

// Title renders a category label for display.
func Title(category string) string {
	return titleCaser.String(category)
}

func normalizeExt(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
}
