package heuristic

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/go-core/xerrors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultSeverity is the label applied to rules that omit one.
const DefaultSeverity = "info"

// Rule is a single named detection heuristic. A rule is either a
// field-keyword rule (MatchFields plus Keywords) or a custom rule that
// names a registered Matcher, never both.
type Rule struct {
	Name              string   `yaml:"name" json:"name"`
	MatchFields       []string `yaml:"match_fields,omitempty" json:"match_fields,omitempty"`
	Keywords          []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	AllKeywords       []string `yaml:"all_keywords,omitempty" json:"all_keywords,omitempty"`
	ExcludeKeywords   []string `yaml:"exclude_keywords,omitempty" json:"exclude_keywords,omitempty"`
	Matcher           string   `yaml:"matcher,omitempty" json:"matcher,omitempty"`
	Severity          string   `yaml:"severity" json:"severity"`
	DetectionGoal     string   `yaml:"detection_goal" json:"detection_goal"`
	ExampleCompletion string   `yaml:"example_completion" json:"example_completion"`

	// lower-cased at load
	keywords []string
	all      []string
	exclude  []string
	match    MatcherFunc
}

// Custom reports whether the rule dispatches to a named matcher.
func (r *Rule) Custom() bool { return r.Matcher != "" }

// Catalog is an ordered, validated set of rules. It is read-only after load.
type Catalog struct {
	rules  []*Rule
	byName map[string]*Rule
}

type catalogFile struct {
	Heuristics []*Rule `yaml:"heuristics"`
}

// Default returns the embedded default catalog.
func Default() *Catalog {
	c, err := ParseCatalog(defaultCatalog, BuiltinMatchers())
	if err != nil {
		panic(xerrors.New("embedded heuristic catalog is invalid: " + err.Error()))
	}
	return c
}

// LoadCatalog reads a YAML catalog from path. An empty path returns the
// embedded default.
func LoadCatalog(path string, matchers Matchers) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog, matchers)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: catalog path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(data, matchers)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates YAML catalog data. Custom rules are
// bound to matchers by name.
func ParseCatalog(data []byte, matchers Matchers) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byName: make(map[string]*Rule, len(f.Heuristics))}
	var errs []error
	for i, r := range f.Heuristics {
		if r == nil {
			errs = append(errs, fmt.Errorf("heuristic %d: empty entry", i))
			continue
		}
		if err := compile(r, matchers); err != nil {
			errs = append(errs, fmt.Errorf("heuristic %d (%s): %w", i, r.Name, err))
			continue
		}
		if _, dup := c.byName[r.Name]; dup {
			errs = append(errs, fmt.Errorf("heuristic %d: duplicate name %q", i, r.Name))
			continue
		}
		c.byName[r.Name] = r
		c.rules = append(c.rules, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(c.rules) == 0 {
		return nil, errors.New("catalog has no heuristics")
	}
	return c, nil
}

func compile(r *Rule, matchers Matchers) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Severity == "" {
		r.Severity = DefaultSeverity
	}

	fieldMode := len(r.MatchFields) > 0 || len(r.Keywords) > 0 || len(r.AllKeywords) > 0 || len(r.ExcludeKeywords) > 0
	switch {
	case r.Custom() && fieldMode:
		return errors.New("matcher cannot be combined with match_fields or keywords")
	case r.Custom():
		fn, ok := matchers[r.Matcher]
		if !ok {
			return fmt.Errorf("unknown matcher %q", r.Matcher)
		}
		r.match = fn
	case len(r.MatchFields) == 0:
		return errors.New("match_fields or matcher is required")
	case len(r.Keywords) == 0:
		return errors.New("keywords are required with match_fields")
	}

	r.keywords = lowerAll(r.Keywords)
	r.all = lowerAll(r.AllKeywords)
	r.exclude = lowerAll(r.ExcludeKeywords)
	return nil
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Rules returns the rules in evaluation order. The slice must not be modified.
func (c *Catalog) Rules() []*Rule { return c.rules }

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Lookup returns the rule with the given name.
func (c *Catalog) Lookup(name string) (*Rule, bool) {
	r, ok := c.byName[name]
	return r, ok
}
