// Package render presents catalog entities on the command line: JSON and
// YAML encodings, glamour-rendered markdown descriptions, version tables
// and line diffs between schema versions.
package render

import (
	"time"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// DataModelDTO represents a data model for presentation.
type DataModelDTO struct {
	ID          string `json:"id" yaml:"id"`
	TenantID    string `json:"tenantId" yaml:"tenantId"`
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// VersionDTO is the lifecycle header shared by versioned entities.
type VersionDTO struct {
	ID          string        `json:"id" yaml:"id"`
	TenantID    string        `json:"tenantId" yaml:"tenantId"`
	Version     int           `json:"version" yaml:"version"`
	Status      domain.Status `json:"status" yaml:"status"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	PublishedBy string        `json:"publishedBy,omitempty" yaml:"publishedBy,omitempty"`
}

// SchemaDTO represents a data schema. Child rows are listed without their
// ids so two versions of a schema compare line by line.
type SchemaDTO struct {
	VersionDTO  `yaml:",inline"`
	DataModelID string            `json:"dataModelId,omitempty" yaml:"dataModelId,omitempty"`
	Role        domain.SchemaRole `json:"role" yaml:"role"`
	Key         string            `json:"key" yaml:"key"`
	Fields      []FieldDTO        `json:"fields" yaml:"fields"`
	Keys        []KeyDTO          `json:"keys,omitempty" yaml:"keys,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// FieldDTO represents a field definition.
type FieldDTO struct {
	Path            string            `json:"path" yaml:"path"`
	Type            domain.FieldType  `json:"type" yaml:"type"`
	ScalarType      domain.ScalarType `json:"scalarType,omitempty" yaml:"scalarType,omitempty"`
	ElementSchemaID string            `json:"elementSchemaId,omitempty" yaml:"elementSchemaId,omitempty"`
	Required        bool              `json:"required" yaml:"required"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// KeyDTO represents a key definition with its field paths in key order.
type KeyDTO struct {
	Name    string   `json:"name" yaml:"name"`
	Primary bool     `json:"primary" yaml:"primary"`
	Fields  []string `json:"fields" yaml:"fields"`
}

// TransformationDTO represents a transformation spec. Graph edges and
// bindings name nodes by key.
type TransformationDTO struct {
	VersionDTO     `yaml:",inline"`
	SourceSchemaID string               `json:"sourceSchemaId" yaml:"sourceSchemaId"`
	TargetSchemaID string               `json:"targetSchemaId" yaml:"targetSchemaId"`
	Mode           domain.TransformMode `json:"mode" yaml:"mode"`
	Cardinality    domain.Cardinality   `json:"cardinality" yaml:"cardinality"`
	Rules          []RuleDTO            `json:"rules,omitempty" yaml:"rules,omitempty"`
	Nodes          []NodeDTO            `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges          []EdgeDTO            `json:"edges,omitempty" yaml:"edges,omitempty"`
	Bindings       []BindingDTO         `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	References     []TransformRefDTO    `json:"references,omitempty" yaml:"references,omitempty"`
}

// RuleDTO represents a Simple mode rule.
type RuleDTO struct {
	SourcePath  string `json:"sourcePath" yaml:"sourcePath"`
	TargetPath  string `json:"targetPath" yaml:"targetPath"`
	ConverterID string `json:"converterId,omitempty" yaml:"converterId,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
	Order       int    `json:"order" yaml:"order"`
}

// NodeDTO represents a graph node.
type NodeDTO struct {
	Key        string          `json:"key" yaml:"key"`
	Type       domain.NodeType `json:"type" yaml:"type"`
	OutputType string          `json:"outputType,omitempty" yaml:"outputType,omitempty"`
	Config     string          `json:"config,omitempty" yaml:"config,omitempty"`
}

// EdgeDTO represents a graph edge between node keys.
type EdgeDTO struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Input string `json:"input" yaml:"input"`
	Order int    `json:"order" yaml:"order"`
}

// BindingDTO represents an output binding.
type BindingDTO struct {
	TargetPath string `json:"targetPath" yaml:"targetPath"`
	From       string `json:"from" yaml:"from"`
}

// TransformRefDTO represents a reference to a child transformation spec.
type TransformRefDTO struct {
	SourceFieldPath string `json:"sourceFieldPath" yaml:"sourceFieldPath"`
	TargetFieldPath string `json:"targetFieldPath" yaml:"targetFieldPath"`
	ChildSpecID     string `json:"childSpecId" yaml:"childSpecId"`
}

// ValidationDTO represents a validation spec.
type ValidationDTO struct {
	VersionDTO   `yaml:",inline"`
	DataSchemaID string              `json:"dataSchemaId" yaml:"dataSchemaId"`
	Rules        []ValidationRuleDTO `json:"rules,omitempty" yaml:"rules,omitempty"`
	References   []ValidationRefDTO  `json:"references,omitempty" yaml:"references,omitempty"`
}

// ValidationRuleDTO represents a validation rule.
type ValidationRuleDTO struct {
	Type       domain.RuleType `json:"type" yaml:"type"`
	Severity   domain.Severity `json:"severity" yaml:"severity"`
	Parameters string          `json:"parameters" yaml:"parameters"`
}

// ValidationRefDTO represents a reference to a child validation spec.
type ValidationRefDTO struct {
	FieldPath   string `json:"fieldPath" yaml:"fieldPath"`
	ChildSpecID string `json:"childSpecId" yaml:"childSpecId"`
}

type versionedEntity interface {
	ID() string
	TenantID() string
	Version() int
	Status() domain.Status
	Description() string
	PublishedAt() *time.Time
	PublishedBy() string
}

func versionOf(v versionedEntity) VersionDTO {
	return VersionDTO{
		ID:          v.ID(),
		TenantID:    v.TenantID(),
		Version:     v.Version(),
		Status:      v.Status(),
		Description: v.Description(),
		PublishedAt: v.PublishedAt(),
		PublishedBy: v.PublishedBy(),
	}
}

// FromDataModel converts a domain data model to a DTO.
func FromDataModel(m *domain.DataModel) DataModelDTO {
	return DataModelDTO{
		ID:          m.ID(),
		TenantID:    m.TenantID(),
		Key:         m.Key(),
		Name:        m.Name(),
		Description: m.Description(),
	}
}

// FromSchema converts a domain schema to a DTO.
func FromSchema(s *domain.DataSchema) SchemaDTO {
	dto := SchemaDTO{
		VersionDTO:  versionOf(s),
		DataModelID: s.DataModelID(),
		Role:        s.Role(),
		Key:         s.Key(),
		Fields:      make([]FieldDTO, 0, len(s.Fields())),
	}
	for _, f := range s.Fields() {
		dto.Fields = append(dto.Fields, FieldDTO{
			Path:            f.Path,
			Type:            f.FieldType(),
			ScalarType:      f.ScalarType(),
			ElementSchemaID: f.ElementSchemaID(),
			Required:        f.Required,
			Description:     f.Description,
		})
	}
	for _, k := range s.Keys() {
		key := KeyDTO{Name: k.Name, Primary: k.IsPrimary, Fields: []string{}}
		for _, kf := range k.SortedFields() {
			key.Fields = append(key.Fields, kf.FieldPath)
		}
		dto.Keys = append(dto.Keys, key)
	}
	for _, t := range s.Tags() {
		dto.Tags = append(dto.Tags, t.Tag)
	}
	return dto
}

// FromTransformation converts a domain transformation spec to a DTO.
func FromTransformation(t *domain.TransformationSpec) TransformationDTO {
	dto := TransformationDTO{
		VersionDTO:     versionOf(t),
		SourceSchemaID: t.SourceSchemaID(),
		TargetSchemaID: t.TargetSchemaID(),
		Mode:           t.Mode(),
		Cardinality:    t.Cardinality(),
	}

	switch body := t.Body().(type) {
	case *domain.SimpleBody:
		for _, r := range body.Rules {
			dto.Rules = append(dto.Rules, RuleDTO{
				SourcePath:  r.SourcePath,
				TargetPath:  r.TargetPath,
				ConverterID: r.ConverterID,
				Required:    r.Required,
				Order:       r.Order,
			})
		}
	case *domain.AdvancedBody:
		keys := make(map[string]string, len(body.Nodes))
		for _, n := range body.Nodes {
			keys[n.ID] = n.Key
			dto.Nodes = append(dto.Nodes, NodeDTO{Key: n.Key, Type: n.NodeType, OutputType: n.OutputType, Config: n.Config})
		}
		for _, e := range body.Edges {
			dto.Edges = append(dto.Edges, EdgeDTO{From: keys[e.FromNodeID], To: keys[e.ToNodeID], Input: e.InputName, Order: e.Order})
		}
		for _, b := range body.Bindings {
			dto.Bindings = append(dto.Bindings, BindingDTO{TargetPath: b.TargetPath, From: keys[b.FromNodeID]})
		}
	}

	for _, r := range t.References() {
		dto.References = append(dto.References, TransformRefDTO{
			SourceFieldPath: r.SourceFieldPath,
			TargetFieldPath: r.TargetFieldPath,
			ChildSpecID:     r.ChildTransformationSpecID,
		})
	}
	return dto
}

// FromValidation converts a domain validation spec to a DTO.
func FromValidation(v *domain.ValidationSpec) ValidationDTO {
	dto := ValidationDTO{
		VersionDTO:   versionOf(v),
		DataSchemaID: v.DataSchemaID(),
	}
	for _, r := range v.Rules() {
		dto.Rules = append(dto.Rules, ValidationRuleDTO{Type: r.RuleType, Severity: r.Severity, Parameters: r.Parameters})
	}
	for _, r := range v.References() {
		dto.References = append(dto.References, ValidationRefDTO{FieldPath: r.FieldPath, ChildSpecID: r.ChildValidationSpecID})
	}
	return dto
}

// Versions converts a version group listing to headers, oldest first.
func Versions[E versionedEntity](entities []E) []VersionDTO {
	out := make([]VersionDTO, len(entities))
	for i, e := range entities {
		out[i] = versionOf(e)
	}
	return out
}
