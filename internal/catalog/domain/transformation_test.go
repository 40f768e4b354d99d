package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSpec(t *testing.T, mode TransformMode) *TransformationSpec {
	t.Helper()
	spec, err := NewTransformationSpec("tenant-a", "src", "tgt", mode, OneToOne, 1, "")
	require.NoError(t, err)
	return spec
}

func TestNewTransformationSpec_Validation(t *testing.T) {
	_, err := NewTransformationSpec("tenant-a", "src", "tgt", "Hybrid", OneToOne, 1, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewTransformationSpec("tenant-a", "", "tgt", ModeSimple, OneToOne, 1, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewTransformationSpec("tenant-a", "src", "tgt", ModeSimple, "OneToFew", 1, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	spec := newSpec(t, ModeAdvanced)
	require.Equal(t, ModeAdvanced, spec.Mode())
	require.Equal(t, StatusDraft, spec.Status())
	require.Equal(t, TransformationGroup{SourceSchemaID: "src", TargetSchemaID: "tgt"}, spec.Group())
}

func TestTransformationSpec_SimpleRules(t *testing.T) {
	spec := newSpec(t, ModeSimple)

	r1, err := spec.AddSimpleRule("name", "fullName", "", true, nil)
	require.NoError(t, err)
	require.Equal(t, 0, r1.Order)

	r2, err := spec.AddSimpleRule("age", "years", "toInt", false, nil)
	require.NoError(t, err)
	require.Equal(t, 1, r2.Order, "nil order appends after the last rule")

	explicit := 10
	r3, err := spec.AddSimpleRule("email", "mail", "", false, &explicit)
	require.NoError(t, err)
	require.Equal(t, 10, r3.Order)

	target := "displayName"
	updated, err := spec.UpdateSimpleRule(r1.ID, SimpleRuleUpdate{TargetPath: &target})
	require.NoError(t, err)
	require.Equal(t, "displayName", updated.TargetPath)
	require.Equal(t, "name", updated.SourcePath)

	require.NoError(t, spec.RemoveSimpleRule(r2.ID))
	body, ok := spec.Body().(*SimpleBody)
	require.True(t, ok)
	require.Len(t, body.Rules, 2)

	require.ErrorIs(t, spec.RemoveSimpleRule("missing"), ErrNotFound)
}

func TestTransformationSpec_ModeMismatch(t *testing.T) {
	simple := newSpec(t, ModeSimple)
	_, err := simple.AddGraphNode("src", NodeSource, "", "")
	require.ErrorIs(t, err, ErrWrongMode)

	advanced := newSpec(t, ModeAdvanced)
	_, err = advanced.AddSimpleRule("a", "b", "", false, nil)
	require.ErrorIs(t, err, ErrWrongMode)
}

func TestTransformationSpec_DraftCheckPrecedesModeCheck(t *testing.T) {
	spec := newSpec(t, ModeSimple)
	require.NoError(t, spec.MarkPublished("alice", time.Now()))

	_, err := spec.AddGraphNode("src", NodeSource, "", "")
	require.ErrorIs(t, err, ErrNotDraft)
	require.NotErrorIs(t, err, ErrWrongMode)
}

func TestTransformationSpec_Graph(t *testing.T) {
	spec := newSpec(t, ModeAdvanced)

	src, err := spec.AddGraphNode("read", NodeSource, "Customer", `{"path":"customer"}`)
	require.NoError(t, err)
	mapper, err := spec.AddGraphNode("map", NodeMap, "Customer", "")
	require.NoError(t, err)
	constant, err := spec.AddGraphNode("zero", NodeConstant, "Integer", "0")
	require.NoError(t, err)

	_, err = spec.AddGraphNode("map", NodeFilter, "", "")
	require.ErrorIs(t, err, ErrDuplicate, "node keys are unique per spec")

	_, err = spec.AddGraphEdge(src.ID, constant.ID, "in", 0)
	require.ErrorIs(t, err, ErrInvalidArgument, "constant nodes take no inputs")

	_, err = spec.AddGraphEdge(src.ID, "foreign-node", "in", 0)
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = spec.AddGraphEdge(mapper.ID, mapper.ID, "in", 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	edge, err := spec.AddGraphEdge(src.ID, mapper.ID, "in", 0)
	require.NoError(t, err)
	_, err = spec.AddGraphEdge(constant.ID, mapper.ID, "in", 0)
	require.ErrorIs(t, err, ErrDuplicate, "same input and order")
	_, err = spec.AddGraphEdge(constant.ID, mapper.ID, "in", 1)
	require.NoError(t, err)

	binding, err := spec.AddOutputBinding("customer.name", mapper.ID)
	require.NoError(t, err)
	_, err = spec.AddOutputBinding("customer.name", src.ID)
	require.ErrorIs(t, err, ErrDuplicate)

	key := "transform"
	renamed, err := spec.UpdateGraphNode(mapper.ID, GraphNodeUpdate{Key: &key})
	require.NoError(t, err)
	require.Equal(t, "transform", renamed.Key)
	require.Equal(t, NodeMap, renamed.NodeType)

	require.NoError(t, spec.RemoveGraphNode(mapper.ID))
	body := spec.Body().(*AdvancedBody)
	require.Len(t, body.Nodes, 2)
	require.Empty(t, body.Edges, "edges into removed node cascade")
	require.Empty(t, body.Bindings, "bindings from removed node cascade")

	require.ErrorIs(t, spec.RemoveGraphEdge(edge.ID), ErrNotFound)
	require.ErrorIs(t, spec.RemoveOutputBinding(binding.ID), ErrNotFound)
}

func TestTransformationSpec_References(t *testing.T) {
	spec := newSpec(t, ModeSimple)

	_, err := spec.AddReference("address", "address", spec.ID())
	require.ErrorIs(t, err, ErrInvalidReference)

	ref, err := spec.AddReference("address", "address", "child-1")
	require.NoError(t, err)
	_, err = spec.AddReference("address", "address", "child-2")
	require.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, spec.RemoveReference(ref.ID))
	require.Empty(t, spec.References())
}

func TestTransformationSpec_BodyIsCopy(t *testing.T) {
	spec := newSpec(t, ModeSimple)
	_, err := spec.AddSimpleRule("a", "b", "", false, nil)
	require.NoError(t, err)

	body := spec.Body().(*SimpleBody)
	body.Rules[0].TargetPath = "mutated"

	again := spec.Body().(*SimpleBody)
	require.Equal(t, "b", again.Rules[0].TargetPath)
}

func TestValidationSpec_RulesAndReferences(t *testing.T) {
	spec, err := NewValidationSpec("tenant-a", "schema-1", 1, "")
	require.NoError(t, err)

	rule, err := spec.AddRule(RuleField, SeverityError, `{"path":"name","required":true}`)
	require.NoError(t, err)
	_, err = spec.AddRule("Regex", SeverityError, "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	warn := SeverityWarning
	updated, err := spec.UpdateRule(rule.ID, ValidationRuleUpdate{Severity: &warn})
	require.NoError(t, err)
	require.Equal(t, SeverityWarning, updated.Severity)
	require.Equal(t, RuleField, updated.RuleType)

	_, err = spec.AddReference("address", "child-1")
	require.NoError(t, err)
	_, err = spec.AddReference("address", "child-2")
	require.ErrorIs(t, err, ErrDuplicate)
	_, err = spec.AddReference("other", spec.ID())
	require.ErrorIs(t, err, ErrInvalidReference)

	require.NoError(t, spec.MarkPublished("alice", time.Now()))
	require.ErrorIs(t, spec.RemoveRule(rule.ID), ErrNotDraft)
	require.Len(t, spec.Rules(), 1)
}
