package domain

// Status is the lifecycle state of a versioned entity.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
	StatusArchived  Status = "Archived"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// SchemaRole is the position of a schema in the ingestion pipeline.
type SchemaRole string

const (
	RoleIncoming SchemaRole = "Incoming"
	RoleMaster   SchemaRole = "Master"
	RoleOutgoing SchemaRole = "Outgoing"
)

func (r SchemaRole) String() string {
	return string(r)
}

// IsValid returns true if the role is a recognized schema role.
func (r SchemaRole) IsValid() bool {
	switch r {
	case RoleIncoming, RoleMaster, RoleOutgoing:
		return true
	default:
		return false
	}
}

// FieldType is the structural kind of a field.
type FieldType string

const (
	FieldScalar FieldType = "Scalar"
	FieldObject FieldType = "Object"
	FieldArray  FieldType = "Array"
)

func (t FieldType) String() string {
	return string(t)
}

// IsValid returns true if the field type is recognized.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldScalar, FieldObject, FieldArray:
		return true
	default:
		return false
	}
}

// ScalarType is the primitive type of a scalar field or scalar array element.
type ScalarType string

const (
	ScalarString   ScalarType = "String"
	ScalarInteger  ScalarType = "Integer"
	ScalarLong     ScalarType = "Long"
	ScalarDecimal  ScalarType = "Decimal"
	ScalarDouble   ScalarType = "Double"
	ScalarBoolean  ScalarType = "Boolean"
	ScalarDate     ScalarType = "Date"
	ScalarDateTime ScalarType = "DateTime"
	ScalarGUID     ScalarType = "Guid"
)

func (t ScalarType) String() string {
	return string(t)
}

// IsValid returns true if the scalar type is recognized.
func (t ScalarType) IsValid() bool {
	switch t {
	case ScalarString, ScalarInteger, ScalarLong, ScalarDecimal, ScalarDouble,
		ScalarBoolean, ScalarDate, ScalarDateTime, ScalarGUID:
		return true
	default:
		return false
	}
}

// TransformMode selects the body shape of a transformation spec.
type TransformMode string

const (
	ModeSimple   TransformMode = "Simple"
	ModeAdvanced TransformMode = "Advanced"
)

func (m TransformMode) String() string {
	return string(m)
}

// IsValid returns true if the mode is recognized.
func (m TransformMode) IsValid() bool {
	return m == ModeSimple || m == ModeAdvanced
}

// Cardinality describes how many source records feed how many target records.
type Cardinality string

const (
	OneToOne   Cardinality = "OneToOne"
	OneToMany  Cardinality = "OneToMany"
	ManyToOne  Cardinality = "ManyToOne"
	ManyToMany Cardinality = "ManyToMany"
)

func (c Cardinality) String() string {
	return string(c)
}

// IsValid returns true if the cardinality is recognized.
func (c Cardinality) IsValid() bool {
	switch c {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return true
	default:
		return false
	}
}

// NodeType is the operator kind of an advanced transformation graph node.
type NodeType string

const (
	NodeSource     NodeType = "Source"
	NodeMap        NodeType = "Map"
	NodeFilter     NodeType = "Filter"
	NodeAggregate  NodeType = "Aggregate"
	NodeJoin       NodeType = "Join"
	NodeSplit      NodeType = "Split"
	NodeConstant   NodeType = "Constant"
	NodeExpression NodeType = "Expression"
)

func (t NodeType) String() string {
	return string(t)
}

// IsValid returns true if the node type is recognized.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeSource, NodeMap, NodeFilter, NodeAggregate, NodeJoin, NodeSplit, NodeConstant, NodeExpression:
		return true
	default:
		return false
	}
}

// AcceptsInputs reports whether edges may terminate at a node of this type.
// Source and Constant nodes are roots of the graph.
func (t NodeType) AcceptsInputs() bool {
	switch t {
	case NodeSource, NodeConstant:
		return false
	case NodeMap, NodeFilter, NodeAggregate, NodeJoin, NodeSplit, NodeExpression:
		return true
	default:
		return false
	}
}

// RuleType is the scope of a validation rule.
type RuleType string

const (
	RuleField       RuleType = "Field"
	RuleCrossField  RuleType = "CrossField"
	RuleConditional RuleType = "Conditional"
)

func (t RuleType) String() string {
	return string(t)
}

// IsValid returns true if the rule type is recognized.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleField, RuleCrossField, RuleConditional:
		return true
	default:
		return false
	}
}

// Severity is how a validation rule violation is reported.
type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
)

func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity is recognized.
func (s Severity) IsValid() bool {
	return s == SeverityError || s == SeverityWarning
}

// EntityKind names an entity type in errors, events and logs.
type EntityKind string

const (
	KindDataModel           EntityKind = "data model"
	KindSchema              EntityKind = "schema"
	KindField               EntityKind = "field"
	KindKeyDefinition       EntityKind = "key definition"
	KindKeyField            EntityKind = "key field"
	KindSchemaTag           EntityKind = "schema tag"
	KindTransformation      EntityKind = "transformation spec"
	KindSimpleRule          EntityKind = "simple rule"
	KindGraphNode           EntityKind = "graph node"
	KindGraphEdge           EntityKind = "graph edge"
	KindOutputBinding       EntityKind = "output binding"
	KindTransformReference  EntityKind = "transform reference"
	KindValidation          EntityKind = "validation spec"
	KindValidationRule      EntityKind = "validation rule"
	KindValidationReference EntityKind = "validation reference"
)

func (k EntityKind) String() string {
	return string(k)
}
