package validator

import (
	"context"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// ValidateValidationSpec checks the data schema, rule enums and child references.
func (e *Engine) ValidateValidationSpec(ctx context.Context, store domain.Store, id string, forPublish bool) (Result, error) {
	r := newRun(ctx, store, forPublish)
	spec, err := store.Validations().Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	schema, err := r.referencedSchema("dataSchemaId", spec.DataSchemaID())
	if err != nil {
		return Result{}, err
	}

	for i, rule := range spec.Rules() {
		if !rule.RuleType.IsValid() {
			r.addf(fmt.Sprintf("rules[%d].ruleType", i), "unknown rule type %q", rule.RuleType)
		}
		if !rule.Severity.IsValid() {
			r.addf(fmt.Sprintf("rules[%d].severity", i), "unknown severity %q", rule.Severity)
		}
	}

	for _, ref := range spec.References() {
		field := fmt.Sprintf("references[%s]", ref.FieldPath)
		var target domain.FieldDefinition
		if schema != nil {
			if target, err = r.requirePath(field+".fieldPath", schema, ref.FieldPath, true); err != nil {
				return Result{}, err
			}
		}

		child, err := store.Validations().Get(ctx, ref.ChildValidationSpecID)
		if domain.IsNotFound(err) {
			r.addf(field, "child validation spec %s does not exist", ref.ChildValidationSpecID)
			continue
		}
		if err != nil {
			return Result{}, err
		}
		if child.ID() == spec.ID() {
			r.addf(field, "spec cannot reference itself")
			continue
		}
		r.checkStatus(field, domain.KindValidation, child.ID(), child.Status())
		if el := target.ElementSchemaID(); el != "" && child.DataSchemaID() != el {
			r.addf(field, "child spec %s validates schema %s, field %q nests %s", child.ID(), child.DataSchemaID(), ref.FieldPath, el)
		}
	}
	return r.result(domain.KindValidation, id), nil
}
