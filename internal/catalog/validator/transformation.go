package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// ValidateTransformation checks schemas, rule paths, graph shape and child references.
func (e *Engine) ValidateTransformation(ctx context.Context, store domain.Store, id string, forPublish bool) (Result, error) {
	r := newRun(ctx, store, forPublish)
	spec, err := store.Transformations().Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	source, err := r.referencedSchema("sourceSchemaId", spec.SourceSchemaID())
	if err != nil {
		return Result{}, err
	}
	target, err := r.referencedSchema("targetSchemaId", spec.TargetSchemaID())
	if err != nil {
		return Result{}, err
	}

	switch body := spec.Body().(type) {
	case *domain.SimpleBody:
		if err := r.checkSimple(body, source, target); err != nil {
			return Result{}, err
		}
	case *domain.AdvancedBody:
		if err := r.checkGraph(body, target); err != nil {
			return Result{}, err
		}
	}

	for _, ref := range spec.References() {
		if err := r.checkTransformReference(spec, ref, source, target); err != nil {
			return Result{}, err
		}
	}
	return r.result(domain.KindTransformation, id), nil
}

func (r *run) checkSimple(body *domain.SimpleBody, source, target *domain.DataSchema) error {
	for i, rule := range body.Rules {
		if source != nil {
			if _, err := r.requirePath(fmt.Sprintf("rules[%d].sourcePath", i), source, rule.SourcePath, false); err != nil {
				return err
			}
		}
		if target != nil {
			if _, err := r.requirePath(fmt.Sprintf("rules[%d].targetPath", i), target, rule.TargetPath, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) checkGraph(body *domain.AdvancedBody, target *domain.DataSchema) error {
	nodes := make(map[string]domain.TransformGraphNode, len(body.Nodes))
	for _, n := range body.Nodes {
		nodes[n.ID] = n
	}
	for i, e := range body.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		if _, ok := nodes[e.FromNodeID]; !ok {
			r.addf(field, "source node %s is not part of the spec", e.FromNodeID)
		}
		to, ok := nodes[e.ToNodeID]
		if !ok {
			r.addf(field, "target node %s is not part of the spec", e.ToNodeID)
			continue
		}
		if !to.NodeType.AcceptsInputs() {
			r.addf(field, "%s node %q does not accept inputs", to.NodeType, to.Key)
		}
	}
	if cycle := body.FindCycle(); cycle != nil {
		r.addf("edges", "graph has a cycle: %s", strings.Join(cycle, " -> "))
	}

	for _, b := range body.Bindings {
		field := fmt.Sprintf("outputBindings[%s]", b.TargetPath)
		if _, ok := nodes[b.FromNodeID]; !ok {
			r.addf(field, "source node %s is not part of the spec", b.FromNodeID)
		}
		if target != nil {
			if _, err := r.requirePath(field, target, b.TargetPath, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) checkTransformReference(spec *domain.TransformationSpec, ref domain.TransformReference, source, target *domain.DataSchema) error {
	field := fmt.Sprintf("references[%s->%s]", ref.SourceFieldPath, ref.TargetFieldPath)

	var srcField, tgtField domain.FieldDefinition
	var err error
	if source != nil {
		if srcField, err = r.requirePath(field+".sourceFieldPath", source, ref.SourceFieldPath, true); err != nil {
			return err
		}
	}
	if target != nil {
		if tgtField, err = r.requirePath(field+".targetFieldPath", target, ref.TargetFieldPath, true); err != nil {
			return err
		}
	}

	child, err := r.store.Transformations().Get(r.ctx, ref.ChildTransformationSpecID)
	if domain.IsNotFound(err) {
		r.addf(field, "child transformation spec %s does not exist", ref.ChildTransformationSpecID)
		return nil
	}
	if err != nil {
		return err
	}
	if child.ID() == spec.ID() {
		r.addf(field, "spec cannot reference itself")
		return nil
	}
	r.checkStatus(field, domain.KindTransformation, child.ID(), child.Status())

	if el := srcField.ElementSchemaID(); el != "" && child.SourceSchemaID() != el {
		r.addf(field, "child spec %s reads schema %s, field %q nests %s", child.ID(), child.SourceSchemaID(), ref.SourceFieldPath, el)
	}
	if el := tgtField.ElementSchemaID(); el != "" && child.TargetSchemaID() != el {
		r.addf(field, "child spec %s writes schema %s, field %q nests %s", child.ID(), child.TargetSchemaID(), ref.TargetFieldPath, el)
	}
	return nil
}
