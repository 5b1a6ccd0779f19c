package indexing

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

//go:embed defaults.yaml
var defaultDefinitions []byte

// idParameter is indexed for every resource type.
var idParameter = Definition{
	Code: "_id",
	URL:  "http://hl7.org/fhir/SearchParameter/Resource-id",
	Type: string(domain.ValueToken),
	Path: "id",
}

// Definition describes one search parameter.
type Definition struct {
	Code string `yaml:"code"`
	URL  string `yaml:"url"`
	Type string `yaml:"type"`

	// Base lists the resource types the parameter applies to. Empty means all.
	Base []string `yaml:"base,omitempty"`

	// Path is a dotted path into the JSON body. Arrays met on the way are
	// flattened.
	Path string `yaml:"path"`
}

// AppliesTo reports whether the parameter is defined for resourceType.
func (d Definition) AppliesTo(resourceType string) bool {
	return len(d.Base) == 0 || slices.Contains(d.Base, resourceType)
}

// Compartment lists, per resource type, the reference parameters that make
// a resource a member of a compartment of Type.
type Compartment struct {
	Type   string              `yaml:"type"`
	Params map[string][]string `yaml:"params"`
}

// Definitions is a validated set of parameter and compartment definitions.
type Definitions struct {
	Parameters   []Definition  `yaml:"parameters"`
	Compartments []Compartment `yaml:"compartments"`

	valueTypes map[string]domain.ValueType
}

// DefaultDefinitions returns the built-in definitions.
func DefaultDefinitions() (*Definitions, error) {
	return ParseDefinitionsString(string(defaultDefinitions))
}

// LoadDefinitionsFile reads definitions from a YAML file.
func LoadDefinitionsFile(path string) (*Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening definitions: %w", err)
	}
	defer f.Close()

	defs, err := ParseDefinitions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions decodes and validates YAML definitions. The built-in _id
// parameter is added unless the input defines it.
func ParseDefinitions(r io.Reader) (*Definitions, error) {
	var defs Definitions
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: decoding definitions: %v", domain.ErrInvalidInput, err)
	}

	if !slices.ContainsFunc(defs.Parameters, func(d Definition) bool { return d.Code == idParameter.Code }) {
		defs.Parameters = append([]Definition{idParameter}, defs.Parameters...)
	}

	defs.valueTypes = make(map[string]domain.ValueType, len(defs.Parameters))
	seen := make(map[string]bool, len(defs.Parameters))
	for _, d := range defs.Parameters {
		if d.Code == "" || d.Path == "" {
			return nil, fmt.Errorf("%w: parameter %q needs a code and a path", domain.ErrInvalidInput, d.Code)
		}
		t, err := domain.ParseValueType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", d.Code, err)
		}
		for _, base := range baseOrAll(d.Base) {
			key := base + "." + d.Code
			if seen[key] {
				return nil, fmt.Errorf("%w: parameter %s defined twice for %s", domain.ErrInvalidInput, d.Code, base)
			}
			seen[key] = true
		}
		defs.valueTypes[d.Code] = t
	}

	for _, c := range defs.Compartments {
		if c.Type == "" {
			return nil, fmt.Errorf("%w: compartment without a type", domain.ErrInvalidInput)
		}
		for resourceType, codes := range c.Params {
			for _, code := range codes {
				if defs.valueTypes[code] != domain.ValueReference {
					return nil, fmt.Errorf("%w: compartment %s uses %s.%s, which is not a reference parameter",
						domain.ErrInvalidInput, c.Type, resourceType, code)
				}
			}
		}
	}

	return &defs, nil
}

func baseOrAll(base []string) []string {
	if len(base) == 0 {
		return []string{"*"}
	}
	return base
}

// Hash fingerprints the definitions. It changes whenever a definition that
// affects indexing changes, regardless of the order definitions are listed.
func (d *Definitions) Hash() string {
	lines := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		base := append([]string(nil), p.Base...)
		sort.Strings(base)
		lines = append(lines, strings.Join([]string{p.Code, p.URL, p.Type, p.Path, strings.Join(base, ",")}, "|"))
	}
	sort.Strings(lines)
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(lines, "\n")))
}

// For returns the parameters that apply to resourceType.
func (d *Definitions) For(resourceType string) []Definition {
	var out []Definition
	for _, p := range d.Parameters {
		if p.AppliesTo(resourceType) {
			out = append(out, p)
		}
	}
	return out
}

// compartmentParams returns, for resourceType, the compartment types keyed
// by the reference parameter code that places a resource in them.
func (d *Definitions) compartmentParams(resourceType string) map[string][]string {
	out := make(map[string][]string)
	for _, c := range d.Compartments {
		for _, code := range c.Params[resourceType] {
			out[code] = append(out[code], c.Type)
		}
	}
	return out
}

// ParseDefinitionsString is ParseDefinitions over a string.
func ParseDefinitionsString(s string) (*Definitions, error) {
	return ParseDefinitions(strings.NewReader(s))
}
