// Package plan reads declarative catalog plans from YAML and applies them
// as a sequence of catalog commands.
//
// A plan lists data models, schemas, transformation specs and validation
// specs in dependency order. Entities name each other with "$ref" strings
// that resolve to the ids created earlier in the same apply; any other
// string is taken as a literal id of an existing entity.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// Plan is the root of a plan file.
type Plan struct {
	Tenant          string           `yaml:"tenant"`
	PublishedBy     string           `yaml:"published_by"`
	DataModels      []DataModel      `yaml:"data_models"`
	Schemas         []Schema         `yaml:"schemas"`
	Transformations []Transformation `yaml:"transformations"`
	Validations     []Validation     `yaml:"validations"`
}

// DataModel is upserted by key.
type DataModel struct {
	Ref         string `yaml:"ref"`
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Schema creates a new Draft version of (tenant, key, role).
type Schema struct {
	Ref         string            `yaml:"ref"`
	Role        domain.SchemaRole `yaml:"role"`
	Key         string            `yaml:"key"`
	DataModel   string            `yaml:"data_model"`
	Description string            `yaml:"description"`
	Fields      []Field           `yaml:"fields"`
	Keys        []Key             `yaml:"keys"`
	Tags        []string          `yaml:"tags"`
	Publish     bool              `yaml:"publish"`
}

// Field is one field definition. Element may be "$self" to nest the
// schema being defined.
type Field struct {
	Path        string            `yaml:"path"`
	Type        domain.FieldType  `yaml:"type"`
	Scalar      domain.ScalarType `yaml:"scalar"`
	Element     string            `yaml:"element"`
	Required    bool              `yaml:"required"`
	Description string            `yaml:"description"`
}

// Key is a key definition; Fields are paths in key order.
type Key struct {
	Name    string   `yaml:"name"`
	Primary bool     `yaml:"primary"`
	Fields  []string `yaml:"fields"`
}

// Transformation creates a new Draft spec over (source, target).
type Transformation struct {
	Ref         string               `yaml:"ref"`
	Source      string               `yaml:"source"`
	Target      string               `yaml:"target"`
	Mode        domain.TransformMode `yaml:"mode"`
	Cardinality domain.Cardinality   `yaml:"cardinality"`
	Description string               `yaml:"description"`
	Rules       []Rule               `yaml:"rules"`
	Nodes       []Node               `yaml:"nodes"`
	Edges       []Edge               `yaml:"edges"`
	Bindings    []Binding            `yaml:"bindings"`
	References  []TransformReference `yaml:"references"`
	Publish     bool                 `yaml:"publish"`
}

// Rule is a Simple mode rule.
type Rule struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	Converter string `yaml:"converter"`
	Required  bool   `yaml:"required"`
	Order     *int   `yaml:"order"`
}

// Node is an Advanced mode graph node, addressed by Key within the plan.
type Node struct {
	Key        string          `yaml:"key"`
	Type       domain.NodeType `yaml:"type"`
	OutputType string          `yaml:"output_type"`
	Config     string          `yaml:"config"`
}

// Edge connects two node keys.
type Edge struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Input string `yaml:"input"`
	Order int    `yaml:"order"`
}

// Binding writes a node's output to a target path.
type Binding struct {
	Target string `yaml:"target"`
	From   string `yaml:"from"`
}

// TransformReference delegates a structured field pair to a child spec.
type TransformReference struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Child  string `yaml:"child"`
}

// Validation creates a new Draft validation spec for a schema.
type Validation struct {
	Ref         string                `yaml:"ref"`
	Schema      string                `yaml:"schema"`
	Description string                `yaml:"description"`
	Rules       []ValidationRule      `yaml:"rules"`
	References  []ValidationReference `yaml:"references"`
	Publish     bool                  `yaml:"publish"`
}

// ValidationRule is one rule; Parameters is opaque text.
type ValidationRule struct {
	Type       domain.RuleType `yaml:"type"`
	Severity   domain.Severity `yaml:"severity"`
	Parameters string          `yaml:"parameters"`
}

// ValidationReference applies a child spec to a field path.
type ValidationReference struct {
	Field string `yaml:"field"`
	Child string `yaml:"child"`
}

// SelfRef names the schema being defined in a field's element.
const SelfRef = "$self"

// DefaultPublisher is recorded as publishedBy when a plan names no publisher.
const DefaultPublisher = "specforge-plan"

// Publisher returns the publishedBy value for the plan's publishes.
func (p *Plan) Publisher() string {
	if p.PublishedBy == "" {
		return DefaultPublisher
	}
	return p.PublishedBy
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan and checks it. Unknown keys are rejected.
func Parse(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Plan
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// IsRef reports whether s names a plan entity rather than an id.
func IsRef(s string) bool {
	return strings.HasPrefix(s, "$") && len(s) > 1
}

// Validate checks the plan's structure: required values, enumerations and
// that every $ref is declared before it is used. Catalog rules such as
// role compatibility are left to the commands.
func (p *Plan) Validate() error {
	if p.Tenant == "" {
		return errors.New("plan: tenant is required")
	}
	c := checker{declared: make(map[string]string)}

	for i, dm := range p.DataModels {
		at := fmt.Sprintf("data_models[%d]", i)
		c.require(at+".key", dm.Key)
		c.require(at+".name", dm.Name)
		c.declare(at, dm.Ref, "data model")
	}

	for i, s := range p.Schemas {
		at := fmt.Sprintf("schemas[%d]", i)
		c.require(at+".key", s.Key)
		c.enum(at+".role", s.Role.IsValid(), string(s.Role))
		c.use(at+".data_model", s.DataModel, "data model")
		for j, f := range s.Fields {
			fat := fmt.Sprintf("%s.fields[%d]", at, j)
			c.require(fat+".path", f.Path)
			c.enum(fat+".type", f.Type.IsValid(), string(f.Type))
			if f.Scalar != "" {
				c.enum(fat+".scalar", f.Scalar.IsValid(), string(f.Scalar))
			}
			if f.Element != SelfRef {
				c.use(fat+".element", f.Element, "schema")
			}
		}
		for j, k := range s.Keys {
			kat := fmt.Sprintf("%s.keys[%d]", at, j)
			c.require(kat+".name", k.Name)
			if len(k.Fields) == 0 {
				c.fail("%s.fields: at least one field path is required", kat)
			}
		}
		c.declare(at, s.Ref, "schema")
	}

	for i, t := range p.Transformations {
		at := fmt.Sprintf("transformations[%d]", i)
		c.use(at+".source", t.Source, "schema")
		c.use(at+".target", t.Target, "schema")
		c.require(at+".source", t.Source)
		c.require(at+".target", t.Target)
		c.enum(at+".mode", t.Mode.IsValid(), string(t.Mode))
		if t.Cardinality != "" {
			c.enum(at+".cardinality", t.Cardinality.IsValid(), string(t.Cardinality))
		}
		if t.Mode == domain.ModeSimple && (len(t.Nodes) > 0 || len(t.Edges) > 0 || len(t.Bindings) > 0) {
			c.fail("%s: Simple specs take rules, not nodes, edges or bindings", at)
		}
		if t.Mode == domain.ModeAdvanced && len(t.Rules) > 0 {
			c.fail("%s: Advanced specs take nodes, edges and bindings, not rules", at)
		}
		nodes := make(map[string]bool, len(t.Nodes))
		for j, n := range t.Nodes {
			nat := fmt.Sprintf("%s.nodes[%d]", at, j)
			c.require(nat+".key", n.Key)
			c.enum(nat+".type", n.Type.IsValid(), string(n.Type))
			if nodes[n.Key] {
				c.fail("%s.key: node %q is declared twice", nat, n.Key)
			}
			nodes[n.Key] = true
		}
		for j, e := range t.Edges {
			eat := fmt.Sprintf("%s.edges[%d]", at, j)
			c.node(eat+".from", e.From, nodes)
			c.node(eat+".to", e.To, nodes)
		}
		for j, b := range t.Bindings {
			c.node(fmt.Sprintf("%s.bindings[%d].from", at, j), b.From, nodes)
		}
		for j, r := range t.References {
			c.use(fmt.Sprintf("%s.references[%d].child", at, j), r.Child, "transformation")
		}
		c.declare(at, t.Ref, "transformation")
	}

	for i, v := range p.Validations {
		at := fmt.Sprintf("validations[%d]", i)
		c.require(at+".schema", v.Schema)
		c.use(at+".schema", v.Schema, "schema")
		for j, r := range v.Rules {
			rat := fmt.Sprintf("%s.rules[%d]", at, j)
			c.enum(rat+".type", r.Type.IsValid(), string(r.Type))
			c.enum(rat+".severity", r.Severity.IsValid(), string(r.Severity))
		}
		for j, r := range v.References {
			c.use(fmt.Sprintf("%s.references[%d].child", at, j), r.Child, "validation")
		}
		c.declare(at, v.Ref, "validation")
	}

	return errors.Join(c.errs...)
}

type checker struct {
	declared map[string]string // ref -> kind
	errs     []error
}

func (c *checker) fail(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf("plan: "+format, args...))
}

func (c *checker) require(at, value string) {
	if value == "" {
		c.fail("%s is required", at)
	}
}

func (c *checker) enum(at string, ok bool, value string) {
	if !ok {
		c.fail("%s: invalid value %q", at, value)
	}
}

func (c *checker) declare(at, ref, kind string) {
	if ref == "" {
		return
	}
	name := "$" + ref
	if strings.HasPrefix(ref, "$") || name == SelfRef {
		c.fail("%s.ref: %q is not a valid ref name", at, ref)
		return
	}
	if prev, dup := c.declared[name]; dup {
		c.fail("%s.ref: %q is already declared as a %s", at, ref, prev)
		return
	}
	c.declared[name] = kind
}

func (c *checker) use(at, value, kind string) {
	if !IsRef(value) {
		return
	}
	got, ok := c.declared[value]
	switch {
	case !ok:
		c.fail("%s: %s is not declared earlier in the plan", at, value)
	case got != kind:
		c.fail("%s: %s is a %s, want a %s", at, value, got, kind)
	}
}

func (c *checker) node(at, key string, nodes map[string]bool) {
	if !nodes[key] {
		c.fail("%s: node %q is not declared in this spec", at, key)
	}
}
