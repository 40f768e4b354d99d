package domain

import (
	"slices"
	"strings"
)

// SimpleTransformRule copies one source path to one target path.
type SimpleTransformRule struct {
	ID          string
	SourcePath  string
	TargetPath  string
	ConverterID string
	Required    bool
	Order       int
}

// TransformGraphNode is an operator in an Advanced graph. OutputType and
// Config are opaque to the catalog.
type TransformGraphNode struct {
	ID         string
	Key        string
	NodeType   NodeType
	OutputType string
	Config     string
}

// TransformGraphEdge feeds the output of one node into a named input of
// another. Order disambiguates multiple edges into the same input and
// selects the output slot of multi-output nodes.
type TransformGraphEdge struct {
	ID         string
	FromNodeID string
	ToNodeID   string
	InputName  string
	Order      int
}

// TransformOutputBinding writes a node's output to a target schema path.
type TransformOutputBinding struct {
	ID         string
	TargetPath string
	FromNodeID string
}

// TransformReference delegates a structured field pair to a child spec.
type TransformReference struct {
	ID                        string
	SourceFieldPath           string
	TargetFieldPath           string
	ChildTransformationSpecID string
}

// TransformBody is the closed set of mode-specific rule collections.
type TransformBody interface {
	Mode() TransformMode
	isTransformBody()
}

// SimpleBody holds the flat rule list of a Simple spec.
type SimpleBody struct {
	Rules []SimpleTransformRule
}

// AdvancedBody holds the node graph of an Advanced spec.
type AdvancedBody struct {
	Nodes    []TransformGraphNode
	Edges    []TransformGraphEdge
	Bindings []TransformOutputBinding
}

func (*SimpleBody) Mode() TransformMode   { return ModeSimple }
func (*AdvancedBody) Mode() TransformMode { return ModeAdvanced }
func (*SimpleBody) isTransformBody()      {}
func (*AdvancedBody) isTransformBody()    {}

// NewTransformBody returns an empty body for mode.
func NewTransformBody(mode TransformMode) (TransformBody, error) {
	switch mode {
	case ModeSimple:
		return &SimpleBody{}, nil
	case ModeAdvanced:
		return &AdvancedBody{}, nil
	default:
		return nil, InvalidArgument("unknown transformation mode %q", mode)
	}
}

// Node returns the node with the given id.
func (b *AdvancedBody) Node(id string) (TransformGraphNode, bool) {
	for _, n := range b.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return TransformGraphNode{}, false
}

func (b *AdvancedBody) clone() *AdvancedBody {
	return &AdvancedBody{
		Nodes:    slices.Clone(b.Nodes),
		Edges:    slices.Clone(b.Edges),
		Bindings: slices.Clone(b.Bindings),
	}
}

// TransformationGroup identifies a transformation version group.
type TransformationGroup struct {
	SourceSchemaID string
	TargetSchemaID string
}

// TransformationSpec maps a source schema to a target schema.
type TransformationSpec struct {
	versioned
	sourceSchemaID string
	targetSchemaID string
	cardinality    Cardinality
	body           TransformBody
	references     []TransformReference
}

// NewTransformationSpec creates a Draft spec with an empty body for mode.
func NewTransformationSpec(tenantID, sourceSchemaID, targetSchemaID string, mode TransformMode,
	cardinality Cardinality, version int, description string) (*TransformationSpec, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, InvalidArgument("tenant id is required")
	}
	if sourceSchemaID == "" || targetSchemaID == "" {
		return nil, InvalidArgument("source and target schema ids are required")
	}
	if !cardinality.IsValid() {
		return nil, InvalidArgument("unknown cardinality %q", cardinality)
	}
	if version < 1 {
		return nil, InvalidArgument("version must be positive, got %d", version)
	}
	body, err := NewTransformBody(mode)
	if err != nil {
		return nil, err
	}
	return &TransformationSpec{
		versioned:      newVersioned(KindTransformation, tenantID, version, description),
		sourceSchemaID: sourceSchemaID,
		targetSchemaID: targetSchemaID,
		cardinality:    cardinality,
		body:           body,
	}, nil
}

// ReconstituteTransformationSpec rebuilds a spec from persisted state.
func ReconstituteTransformationSpec(info VersionInfo, sourceSchemaID, targetSchemaID string,
	cardinality Cardinality, body TransformBody, references []TransformReference) *TransformationSpec {
	return &TransformationSpec{
		versioned:      versioned{kind: KindTransformation, info: info},
		sourceSchemaID: sourceSchemaID,
		targetSchemaID: targetSchemaID,
		cardinality:    cardinality,
		body:           body,
		references:     references,
	}
}

func (t *TransformationSpec) SourceSchemaID() string   { return t.sourceSchemaID }
func (t *TransformationSpec) TargetSchemaID() string   { return t.targetSchemaID }
func (t *TransformationSpec) Cardinality() Cardinality { return t.cardinality }
func (t *TransformationSpec) Mode() TransformMode      { return t.body.Mode() }

// Group returns the spec's version group.
func (t *TransformationSpec) Group() TransformationGroup {
	return TransformationGroup{SourceSchemaID: t.sourceSchemaID, TargetSchemaID: t.targetSchemaID}
}

// Body returns a copy of the mode-specific body.
func (t *TransformationSpec) Body() TransformBody {
	switch b := t.body.(type) {
	case *SimpleBody:
		return &SimpleBody{Rules: slices.Clone(b.Rules)}
	case *AdvancedBody:
		return b.clone()
	default:
		return nil
	}
}

// References returns the child spec references.
func (t *TransformationSpec) References() []TransformReference {
	return slices.Clone(t.references)
}

// SetCardinality changes the cardinality. Draft only.
func (t *TransformationSpec) SetCardinality(c Cardinality) error {
	if err := t.requireDraft("update"); err != nil {
		return err
	}
	if !c.IsValid() {
		return InvalidArgument("unknown cardinality %q", c)
	}
	t.cardinality = c
	t.touch()
	return nil
}

func (t *TransformationSpec) simple(op string) (*SimpleBody, error) {
	if err := t.requireDraft(op); err != nil {
		return nil, err
	}
	b, ok := t.body.(*SimpleBody)
	if !ok {
		return nil, wrongMode(t.ID(), ModeSimple, t.Mode())
	}
	return b, nil
}

func (t *TransformationSpec) advanced(op string) (*AdvancedBody, error) {
	if err := t.requireDraft(op); err != nil {
		return nil, err
	}
	b, ok := t.body.(*AdvancedBody)
	if !ok {
		return nil, wrongMode(t.ID(), ModeAdvanced, t.Mode())
	}
	return b, nil
}

// AddSimpleRule appends a rule. A nil order places it after the current last rule.
func (t *TransformationSpec) AddSimpleRule(sourcePath, targetPath, converterID string, required bool, order *int) (SimpleTransformRule, error) {
	b, err := t.simple("add rule to")
	if err != nil {
		return SimpleTransformRule{}, err
	}
	if err := ValidatePath(sourcePath); err != nil {
		return SimpleTransformRule{}, err
	}
	if err := ValidatePath(targetPath); err != nil {
		return SimpleTransformRule{}, err
	}
	next := 0
	for _, r := range b.Rules {
		next = max(next, r.Order+1)
	}
	if order != nil {
		if *order < 0 {
			return SimpleTransformRule{}, InvalidArgument("rule order must be >= 0, got %d", *order)
		}
		next = *order
	}
	rule := SimpleTransformRule{
		ID:          NewID(),
		SourcePath:  sourcePath,
		TargetPath:  targetPath,
		ConverterID: converterID,
		Required:    required,
		Order:       next,
	}
	b.Rules = append(b.Rules, rule)
	t.touch()
	return rule, nil
}

// SimpleRuleUpdate carries a partial rule update; nil members are left unchanged.
type SimpleRuleUpdate struct {
	SourcePath  *string
	TargetPath  *string
	ConverterID *string
	Required    *bool
	Order       *int
}

// UpdateSimpleRule applies a partial update to a rule.
func (t *TransformationSpec) UpdateSimpleRule(id string, upd SimpleRuleUpdate) (SimpleTransformRule, error) {
	b, err := t.simple("update rule of")
	if err != nil {
		return SimpleTransformRule{}, err
	}
	i := slices.IndexFunc(b.Rules, func(r SimpleTransformRule) bool { return r.ID == id })
	if i < 0 {
		return SimpleTransformRule{}, &NotFoundError{Kind: KindSimpleRule, ID: id}
	}
	rule := b.Rules[i]
	if upd.SourcePath != nil {
		if err := ValidatePath(*upd.SourcePath); err != nil {
			return SimpleTransformRule{}, err
		}
		rule.SourcePath = *upd.SourcePath
	}
	if upd.TargetPath != nil {
		if err := ValidatePath(*upd.TargetPath); err != nil {
			return SimpleTransformRule{}, err
		}
		rule.TargetPath = *upd.TargetPath
	}
	if upd.ConverterID != nil {
		rule.ConverterID = *upd.ConverterID
	}
	if upd.Required != nil {
		rule.Required = *upd.Required
	}
	if upd.Order != nil {
		if *upd.Order < 0 {
			return SimpleTransformRule{}, InvalidArgument("rule order must be >= 0, got %d", *upd.Order)
		}
		rule.Order = *upd.Order
	}
	b.Rules[i] = rule
	t.touch()
	return rule, nil
}

// RemoveSimpleRule deletes a rule.
func (t *TransformationSpec) RemoveSimpleRule(id string) error {
	b, err := t.simple("remove rule from")
	if err != nil {
		return err
	}
	i := slices.IndexFunc(b.Rules, func(r SimpleTransformRule) bool { return r.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindSimpleRule, ID: id}
	}
	b.Rules = slices.Delete(b.Rules, i, i+1)
	t.touch()
	return nil
}

// AddGraphNode adds a node with a spec-unique key.
func (t *TransformationSpec) AddGraphNode(key string, nodeType NodeType, outputType, config string) (TransformGraphNode, error) {
	b, err := t.advanced("add node to")
	if err != nil {
		return TransformGraphNode{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return TransformGraphNode{}, InvalidArgument("node key is required")
	}
	if !nodeType.IsValid() {
		return TransformGraphNode{}, InvalidArgument("unknown node type %q", nodeType)
	}
	if slices.ContainsFunc(b.Nodes, func(n TransformGraphNode) bool { return n.Key == key }) {
		return TransformGraphNode{}, Duplicate("node key %q already exists in spec %s", key, t.ID())
	}
	node := TransformGraphNode{ID: NewID(), Key: key, NodeType: nodeType, OutputType: outputType, Config: config}
	b.Nodes = append(b.Nodes, node)
	t.touch()
	return node, nil
}

// GraphNodeUpdate carries a partial node update; nil members are left unchanged.
type GraphNodeUpdate struct {
	Key        *string
	NodeType   *NodeType
	OutputType *string
	Config     *string
}

// UpdateGraphNode applies a partial update to a node.
func (t *TransformationSpec) UpdateGraphNode(id string, upd GraphNodeUpdate) (TransformGraphNode, error) {
	b, err := t.advanced("update node of")
	if err != nil {
		return TransformGraphNode{}, err
	}
	i := slices.IndexFunc(b.Nodes, func(n TransformGraphNode) bool { return n.ID == id })
	if i < 0 {
		return TransformGraphNode{}, &NotFoundError{Kind: KindGraphNode, ID: id}
	}
	node := b.Nodes[i]
	if upd.Key != nil {
		key := strings.TrimSpace(*upd.Key)
		if key == "" {
			return TransformGraphNode{}, InvalidArgument("node key is required")
		}
		if key != node.Key && slices.ContainsFunc(b.Nodes, func(n TransformGraphNode) bool { return n.Key == key }) {
			return TransformGraphNode{}, Duplicate("node key %q already exists in spec %s", key, t.ID())
		}
		node.Key = key
	}
	if upd.NodeType != nil {
		if !upd.NodeType.IsValid() {
			return TransformGraphNode{}, InvalidArgument("unknown node type %q", *upd.NodeType)
		}
		node.NodeType = *upd.NodeType
	}
	if upd.OutputType != nil {
		node.OutputType = *upd.OutputType
	}
	if upd.Config != nil {
		node.Config = *upd.Config
	}
	b.Nodes[i] = node
	t.touch()
	return node, nil
}

// RemoveGraphNode deletes a node together with every edge and output
// binding attached to it.
func (t *TransformationSpec) RemoveGraphNode(id string) error {
	b, err := t.advanced("remove node from")
	if err != nil {
		return err
	}
	i := slices.IndexFunc(b.Nodes, func(n TransformGraphNode) bool { return n.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindGraphNode, ID: id}
	}
	b.Nodes = slices.Delete(b.Nodes, i, i+1)
	b.Edges = slices.DeleteFunc(b.Edges, func(e TransformGraphEdge) bool { return e.FromNodeID == id || e.ToNodeID == id })
	b.Bindings = slices.DeleteFunc(b.Bindings, func(o TransformOutputBinding) bool { return o.FromNodeID == id })
	t.touch()
	return nil
}

// AddGraphEdge connects two nodes of this spec.
func (t *TransformationSpec) AddGraphEdge(fromNodeID, toNodeID, inputName string, order int) (TransformGraphEdge, error) {
	b, err := t.advanced("add edge to")
	if err != nil {
		return TransformGraphEdge{}, err
	}
	if _, ok := b.Node(fromNodeID); !ok {
		return TransformGraphEdge{}, InvalidReference("edge source node %q does not belong to spec %s", fromNodeID, t.ID())
	}
	to, ok := b.Node(toNodeID)
	if !ok {
		return TransformGraphEdge{}, InvalidReference("edge target node %q does not belong to spec %s", toNodeID, t.ID())
	}
	if fromNodeID == toNodeID {
		return TransformGraphEdge{}, InvalidArgument("edge must connect two different nodes")
	}
	if !to.NodeType.AcceptsInputs() {
		return TransformGraphEdge{}, InvalidArgument("%s node %q does not accept inputs", to.NodeType, to.Key)
	}
	inputName = strings.TrimSpace(inputName)
	if inputName == "" {
		return TransformGraphEdge{}, InvalidArgument("edge input name is required")
	}
	if order < 0 {
		return TransformGraphEdge{}, InvalidArgument("edge order must be >= 0, got %d", order)
	}
	for _, e := range b.Edges {
		if e.ToNodeID == toNodeID && e.InputName == inputName && e.Order == order {
			return TransformGraphEdge{}, Duplicate("input %q of node %q already has an edge at order %d", inputName, to.Key, order)
		}
	}
	edge := TransformGraphEdge{ID: NewID(), FromNodeID: fromNodeID, ToNodeID: toNodeID, InputName: inputName, Order: order}
	b.Edges = append(b.Edges, edge)
	t.touch()
	return edge, nil
}

// RemoveGraphEdge deletes an edge.
func (t *TransformationSpec) RemoveGraphEdge(id string) error {
	b, err := t.advanced("remove edge from")
	if err != nil {
		return err
	}
	i := slices.IndexFunc(b.Edges, func(e TransformGraphEdge) bool { return e.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindGraphEdge, ID: id}
	}
	b.Edges = slices.Delete(b.Edges, i, i+1)
	t.touch()
	return nil
}

// AddOutputBinding binds a node's output to a spec-unique target path.
func (t *TransformationSpec) AddOutputBinding(targetPath, fromNodeID string) (TransformOutputBinding, error) {
	b, err := t.advanced("add output binding to")
	if err != nil {
		return TransformOutputBinding{}, err
	}
	if err := ValidatePath(targetPath); err != nil {
		return TransformOutputBinding{}, err
	}
	if _, ok := b.Node(fromNodeID); !ok {
		return TransformOutputBinding{}, InvalidReference("binding node %q does not belong to spec %s", fromNodeID, t.ID())
	}
	if slices.ContainsFunc(b.Bindings, func(o TransformOutputBinding) bool { return o.TargetPath == targetPath }) {
		return TransformOutputBinding{}, Duplicate("target path %q is already bound in spec %s", targetPath, t.ID())
	}
	binding := TransformOutputBinding{ID: NewID(), TargetPath: targetPath, FromNodeID: fromNodeID}
	b.Bindings = append(b.Bindings, binding)
	t.touch()
	return binding, nil
}

// RemoveOutputBinding deletes a binding.
func (t *TransformationSpec) RemoveOutputBinding(id string) error {
	b, err := t.advanced("remove output binding from")
	if err != nil {
		return err
	}
	i := slices.IndexFunc(b.Bindings, func(o TransformOutputBinding) bool { return o.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindOutputBinding, ID: id}
	}
	b.Bindings = slices.Delete(b.Bindings, i, i+1)
	t.touch()
	return nil
}

// AddReference adds a child spec reference for a source/target field pair.
// The child's status is checked by the caller, which has store access.
func (t *TransformationSpec) AddReference(sourceFieldPath, targetFieldPath, childSpecID string) (TransformReference, error) {
	if err := t.requireDraft("add reference to"); err != nil {
		return TransformReference{}, err
	}
	if err := ValidatePath(sourceFieldPath); err != nil {
		return TransformReference{}, err
	}
	if err := ValidatePath(targetFieldPath); err != nil {
		return TransformReference{}, err
	}
	if err := requireID(KindTransformation, childSpecID); err != nil {
		return TransformReference{}, err
	}
	if childSpecID == t.ID() {
		return TransformReference{}, InvalidReference("spec %s cannot reference itself", t.ID())
	}
	if slices.ContainsFunc(t.references, func(r TransformReference) bool {
		return r.SourceFieldPath == sourceFieldPath && r.TargetFieldPath == targetFieldPath
	}) {
		return TransformReference{}, Duplicate("reference %s -> %s already exists in spec %s", sourceFieldPath, targetFieldPath, t.ID())
	}
	ref := TransformReference{
		ID:                        NewID(),
		SourceFieldPath:           sourceFieldPath,
		TargetFieldPath:           targetFieldPath,
		ChildTransformationSpecID: childSpecID,
	}
	t.references = append(t.references, ref)
	t.touch()
	return ref, nil
}

// RemoveReference deletes a reference.
func (t *TransformationSpec) RemoveReference(id string) error {
	if err := t.requireDraft("remove reference from"); err != nil {
		return err
	}
	i := slices.IndexFunc(t.references, func(r TransformReference) bool { return r.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindTransformReference, ID: id}
	}
	t.references = slices.Delete(t.references, i, i+1)
	t.touch()
	return nil
}
