// Package catalog holds the read-only set of converter descriptors the tools
// use to answer discovery queries.
package catalog

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
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Parameter describes one option a converter accepts.
type Parameter struct {
	Name        string   `yaml:"name" json:"Name"`
	Type        string   `yaml:"type" json:"Type"`
	Description string   `yaml:"description,omitempty" json:"Description,omitempty"`
	Required    bool     `yaml:"required,omitempty" json:"Required"`
	Default     string   `yaml:"default,omitempty" json:"Default,omitempty"`
	Values      []string `yaml:"values,omitempty" json:"Values,omitempty"`
	Min         *float64 `yaml:"min,omitempty" json:"Min,omitempty"`
	Max         *float64 `yaml:"max,omitempty" json:"Max,omitempty"`
}

// Descriptor is one conversion path offered by the remote service.
type Descriptor struct {
	From       string      `yaml:"from" json:"SourceFormat"`
	To         string      `yaml:"to" json:"DestinationFormat"`
	Title      string      `yaml:"title" json:"Title"`
	Summary    string      `yaml:"summary,omitempty" json:"Summary,omitempty"`
	Tags       []string    `yaml:"tags,omitempty" json:"Tags,omitempty"`
	Parameters []Parameter `yaml:"parameters,omitempty" json:"Parameters,omitempty"`
}

type document struct {
	Converters []Descriptor `yaml:"converters"`
}

// Catalog is an immutable set of descriptors. It is safe for concurrent reads.
type Catalog struct {
	descriptors []Descriptor
	byPair      map[string]int
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(embeddedCatalog))
}

// LoadFile reads a YAML catalog from path. A blank path yields Default.
func LoadFile(path string) (*Catalog, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Default()
	}
	f, err := os.Open(trimmed)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Converters)
}

// New validates descriptors and builds a Catalog. Pairs must be non-empty and
// unique ignoring case.
func New(descriptors []Descriptor) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		byPair:      make(map[string]int, len(descriptors)),
	}
	for i, d := range descriptors {
		d.From = strings.TrimSpace(d.From)
		d.To = strings.TrimSpace(d.To)
		if d.From == "" || d.To == "" {
			return nil, fmt.Errorf("converter %d: from and to are required", i)
		}
		key := pairKey(d.From, d.To)
		if _, exists := c.byPair[key]; exists {
			return nil, fmt.Errorf("duplicate converter %s -> %s", d.From, d.To)
		}
		c.byPair[key] = len(c.descriptors)
		c.descriptors = append(c.descriptors, d)
	}
	return c, nil
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// All returns every descriptor sorted by pair.
func (c *Catalog) All() []Descriptor {
	return sorted(c.descriptors)
}

// Lookup returns the descriptor for an exact pair, ignoring case.
func (c *Catalog) Lookup(from, to string) (Descriptor, bool) {
	idx, ok := c.byPair[pairKey(from, to)]
	if !ok {
		return Descriptor{}, false
	}
	return clone(c.descriptors[idx]), true
}

// ByTags returns descriptors carrying every requested tag. Blank tags are
// ignored; an empty set matches nothing.
func (c *Catalog) ByTags(tags []string) []Descriptor {
	wanted := normalizeTerms(tags)
	if len(wanted) == 0 {
		return nil
	}
	var out []Descriptor
	for _, d := range c.descriptors {
		have := make(map[string]struct{}, len(d.Tags))
		for _, tag := range d.Tags {
			have[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
		}
		matched := true
		for _, tag := range wanted {
			if _, ok := have[tag]; !ok {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, d)
		}
	}
	return sorted(out)
}

// Search returns descriptors where any term is a case-insensitive substring
// of the pair, title, summary, a tag, or a parameter name or description.
func (c *Catalog) Search(terms []string) []Descriptor {
	wanted := normalizeTerms(terms)
	if len(wanted) == 0 {
		return nil
	}
	var out []Descriptor
	for _, d := range c.descriptors {
		text := searchText(d)
		for _, term := range wanted {
			if strings.Contains(text, term) {
				out = append(out, d)
				break
			}
		}
	}
	return sorted(out)
}

func searchText(d Descriptor) string {
	var b strings.Builder
	for _, s := range []string{d.From, d.To, d.Title, d.Summary} {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	for _, tag := range d.Tags {
		b.WriteString(tag)
		b.WriteByte('\n')
	}
	for _, p := range d.Parameters {
		b.WriteString(p.Name)
		b.WriteByte('\n')
		b.WriteString(p.Description)
		b.WriteByte('\n')
	}
	return strings.ToLower(b.String())
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func pairKey(from, to string) string {
	return strings.ToLower(strings.TrimSpace(from)) + "\x00" + strings.ToLower(strings.TrimSpace(to))
}

func sorted(in []Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(in))
	for _, d := range in {
		out = append(out, clone(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].From, out[j].From) {
			return strings.ToLower(out[i].From) < strings.ToLower(out[j].From)
		}
		return strings.ToLower(out[i].To) < strings.ToLower(out[j].To)
	})
	return out
}

// clone copies the slices so callers cannot mutate the catalog.
func clone(d Descriptor) Descriptor {
	d.Tags = append([]string(nil), d.Tags...)
	params := make([]Parameter, len(d.Parameters))
	for i, p := range d.Parameters {
		p.Values = append([]string(nil), p.Values...)
		params[i] = p
	}
	if d.Parameters == nil {
		params = nil
	}
	d.Parameters = params
	return d
}
