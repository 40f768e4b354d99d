package testutil

import "github.com/zjrosen/specforge/internal/catalog/domain"

type fieldData struct {
	path         string
	fieldType    domain.FieldType
	scalar       domain.ScalarType
	elementAlias string
	required     bool
}

type keyData struct {
	name    string
	primary bool
	paths   []string
}

// schemaData holds everything needed to insert one schema.
type schemaData struct {
	alias     string
	tenant    string
	role      domain.SchemaRole
	key       string
	version   int
	status    domain.Status
	dataModel string
	fields    []fieldData
	keys      []keyData
	tags      []string
}

// SchemaOption configures a schema during builder setup.
type SchemaOption func(*schemaData)

// Version pins the schema version; by default the next free one is used.
func Version(v int) SchemaOption {
	return func(s *schemaData) { s.version = v }
}

// Status sets the schema status. Archived schemas are published first.
func Status(st domain.Status) SchemaOption {
	return func(s *schemaData) { s.status = st }
}

// TenantID overrides the schema tenant.
func TenantID(tenant string) SchemaOption {
	return func(s *schemaData) { s.tenant = tenant }
}

// DataModel attaches a data model by id.
func DataModel(id string) SchemaOption {
	return func(s *schemaData) { s.dataModel = id }
}

// Scalar adds an optional scalar field.
func Scalar(path string, st domain.ScalarType) SchemaOption {
	return func(s *schemaData) {
		s.fields = append(s.fields, fieldData{path: path, fieldType: domain.FieldScalar, scalar: st})
	}
}

// Required adds a required scalar field.
func Required(path string, st domain.ScalarType) SchemaOption {
	return func(s *schemaData) {
		s.fields = append(s.fields, fieldData{path: path, fieldType: domain.FieldScalar, scalar: st, required: true})
	}
}

// Object adds an Object field nesting the schema built under elementAlias.
func Object(path, elementAlias string) SchemaOption {
	return func(s *schemaData) {
		s.fields = append(s.fields, fieldData{path: path, fieldType: domain.FieldObject, elementAlias: elementAlias})
	}
}

// ScalarArray adds an Array field of scalars.
func ScalarArray(path string, st domain.ScalarType) SchemaOption {
	return func(s *schemaData) {
		s.fields = append(s.fields, fieldData{path: path, fieldType: domain.FieldArray, scalar: st})
	}
}

// ObjectArray adds an Array field of the schema built under elementAlias.
func ObjectArray(path, elementAlias string) SchemaOption {
	return func(s *schemaData) {
		s.fields = append(s.fields, fieldData{path: path, fieldType: domain.FieldArray, elementAlias: elementAlias})
	}
}

// PrimaryKey adds the primary key over the given scalar paths.
func PrimaryKey(name string, paths ...string) SchemaOption {
	return func(s *schemaData) { s.keys = append(s.keys, keyData{name: name, primary: true, paths: paths}) }
}

// Key adds a secondary key over the given scalar paths.
func Key(name string, paths ...string) SchemaOption {
	return func(s *schemaData) { s.keys = append(s.keys, keyData{name: name, paths: paths}) }
}

// Tags adds schema tags.
func Tags(tags ...string) SchemaOption {
	return func(s *schemaData) { s.tags = append(s.tags, tags...) }
}

type nodeData struct {
	key      string
	nodeType domain.NodeType
	config   string
}

type edgeData struct {
	from, to string
	input    string
	order    int
}

type bindingData struct {
	targetPath string
	fromKey    string
}

type referenceData struct {
	source, target string
	childAlias     string
}

// transformData holds everything needed to insert one transformation spec.
type transformData struct {
	alias       string
	sourceAlias string
	targetAlias string
	mode        domain.TransformMode
	cardinality domain.Cardinality
	status      domain.Status
	rules       [][2]string
	nodes       []nodeData
	edges       []edgeData
	bindings    []bindingData
	references  []referenceData
}

// TransformOption configures a transformation spec during builder setup.
type TransformOption func(*transformData)

// SpecStatus sets the spec status.
func SpecStatus(st domain.Status) TransformOption {
	return func(t *transformData) { t.status = st }
}

// Cardinality sets the spec cardinality.
func Cardinality(c domain.Cardinality) TransformOption {
	return func(t *transformData) { t.cardinality = c }
}

// Rule adds a Simple rule; rules get ascending orders.
func Rule(sourcePath, targetPath string) TransformOption {
	return func(t *transformData) { t.rules = append(t.rules, [2]string{sourcePath, targetPath}) }
}

// Node adds an Advanced graph node.
func Node(key string, nodeType domain.NodeType, config string) TransformOption {
	return func(t *transformData) { t.nodes = append(t.nodes, nodeData{key: key, nodeType: nodeType, config: config}) }
}

// Edge connects two nodes by key.
func Edge(fromKey, toKey, input string, order int) TransformOption {
	return func(t *transformData) {
		t.edges = append(t.edges, edgeData{from: fromKey, to: toKey, input: input, order: order})
	}
}

// Binding binds a node's output to a target path.
func Binding(targetPath, fromKey string) TransformOption {
	return func(t *transformData) {
		t.bindings = append(t.bindings, bindingData{targetPath: targetPath, fromKey: fromKey})
	}
}

// TransformRef delegates a field pair to the spec built under childAlias.
func TransformRef(sourcePath, targetPath, childAlias string) TransformOption {
	return func(t *transformData) {
		t.references = append(t.references, referenceData{source: sourcePath, target: targetPath, childAlias: childAlias})
	}
}

// validationData holds everything needed to insert one validation spec.
type validationData struct {
	alias       string
	schemaAlias string
	status      domain.Status
	rules       []domain.RuleType
	references  []referenceData
}

// ValidationOption configures a validation spec during builder setup.
type ValidationOption func(*validationData)

// ValidationStatus sets the validation spec status.
func ValidationStatus(st domain.Status) ValidationOption {
	return func(v *validationData) { v.status = st }
}

// ValidationRule adds an Error severity rule.
func ValidationRule(rt domain.RuleType) ValidationOption {
	return func(v *validationData) { v.rules = append(v.rules, rt) }
}

// ValidationRef applies the spec built under childAlias to a field path.
func ValidationRef(fieldPath, childAlias string) ValidationOption {
	return func(v *validationData) {
		v.references = append(v.references, referenceData{source: fieldPath, childAlias: childAlias})
	}
}
