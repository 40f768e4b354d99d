package domain

import (
	"slices"
	"strings"
)

// ValidationRule constrains instances of the spec's data schema.
// Parameters is opaque to the catalog.
type ValidationRule struct {
	ID         string
	RuleType   RuleType
	Severity   Severity
	Parameters string
}

// ValidationReference applies a child validation spec to a structured field.
type ValidationReference struct {
	ID                    string
	FieldPath             string
	ChildValidationSpecID string
}

// ValidationSpec is a versioned rule set over one data schema. Its version
// group is the data schema id.
type ValidationSpec struct {
	versioned
	dataSchemaID string
	rules        []ValidationRule
	references   []ValidationReference
}

// NewValidationSpec creates a Draft validation spec.
func NewValidationSpec(tenantID, dataSchemaID string, version int, description string) (*ValidationSpec, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, InvalidArgument("tenant id is required")
	}
	if err := requireID(KindSchema, dataSchemaID); err != nil {
		return nil, err
	}
	if version < 1 {
		return nil, InvalidArgument("version must be positive, got %d", version)
	}
	return &ValidationSpec{
		versioned:    newVersioned(KindValidation, tenantID, version, description),
		dataSchemaID: dataSchemaID,
	}, nil
}

// ReconstituteValidationSpec rebuilds a spec from persisted state.
func ReconstituteValidationSpec(info VersionInfo, dataSchemaID string, rules []ValidationRule, references []ValidationReference) *ValidationSpec {
	return &ValidationSpec{
		versioned:    versioned{kind: KindValidation, info: info},
		dataSchemaID: dataSchemaID,
		rules:        rules,
		references:   references,
	}
}

func (v *ValidationSpec) DataSchemaID() string { return v.dataSchemaID }

// Rules returns the rules in insertion order.
func (v *ValidationSpec) Rules() []ValidationRule { return slices.Clone(v.rules) }

// References returns the child spec references.
func (v *ValidationSpec) References() []ValidationReference { return slices.Clone(v.references) }

// AddRule appends a rule.
func (v *ValidationSpec) AddRule(ruleType RuleType, severity Severity, parameters string) (ValidationRule, error) {
	if err := v.requireDraft("add rule to"); err != nil {
		return ValidationRule{}, err
	}
	if !ruleType.IsValid() {
		return ValidationRule{}, InvalidArgument("unknown rule type %q", ruleType)
	}
	if !severity.IsValid() {
		return ValidationRule{}, InvalidArgument("unknown severity %q", severity)
	}
	rule := ValidationRule{ID: NewID(), RuleType: ruleType, Severity: severity, Parameters: parameters}
	v.rules = append(v.rules, rule)
	v.touch()
	return rule, nil
}

// ValidationRuleUpdate carries a partial rule update; nil members are left unchanged.
type ValidationRuleUpdate struct {
	RuleType   *RuleType
	Severity   *Severity
	Parameters *string
}

// UpdateRule applies a partial update to a rule.
func (v *ValidationSpec) UpdateRule(id string, upd ValidationRuleUpdate) (ValidationRule, error) {
	if err := v.requireDraft("update rule of"); err != nil {
		return ValidationRule{}, err
	}
	i := slices.IndexFunc(v.rules, func(r ValidationRule) bool { return r.ID == id })
	if i < 0 {
		return ValidationRule{}, &NotFoundError{Kind: KindValidationRule, ID: id}
	}
	rule := v.rules[i]
	if upd.RuleType != nil {
		if !upd.RuleType.IsValid() {
			return ValidationRule{}, InvalidArgument("unknown rule type %q", *upd.RuleType)
		}
		rule.RuleType = *upd.RuleType
	}
	if upd.Severity != nil {
		if !upd.Severity.IsValid() {
			return ValidationRule{}, InvalidArgument("unknown severity %q", *upd.Severity)
		}
		rule.Severity = *upd.Severity
	}
	if upd.Parameters != nil {
		rule.Parameters = *upd.Parameters
	}
	v.rules[i] = rule
	v.touch()
	return rule, nil
}

// RemoveRule deletes a rule.
func (v *ValidationSpec) RemoveRule(id string) error {
	if err := v.requireDraft("remove rule from"); err != nil {
		return err
	}
	i := slices.IndexFunc(v.rules, func(r ValidationRule) bool { return r.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindValidationRule, ID: id}
	}
	v.rules = slices.Delete(v.rules, i, i+1)
	v.touch()
	return nil
}

// AddReference attaches a child spec to a field path, one per path.
// The child's status is checked by the caller.
func (v *ValidationSpec) AddReference(fieldPath, childSpecID string) (ValidationReference, error) {
	if err := v.requireDraft("add reference to"); err != nil {
		return ValidationReference{}, err
	}
	if err := ValidatePath(fieldPath); err != nil {
		return ValidationReference{}, err
	}
	if err := requireID(KindValidation, childSpecID); err != nil {
		return ValidationReference{}, err
	}
	if childSpecID == v.ID() {
		return ValidationReference{}, InvalidReference("spec %s cannot reference itself", v.ID())
	}
	if slices.ContainsFunc(v.references, func(r ValidationReference) bool { return r.FieldPath == fieldPath }) {
		return ValidationReference{}, Duplicate("field path %q already has a reference in spec %s", fieldPath, v.ID())
	}
	ref := ValidationReference{ID: NewID(), FieldPath: fieldPath, ChildValidationSpecID: childSpecID}
	v.references = append(v.references, ref)
	v.touch()
	return ref, nil
}

// RemoveReference deletes a reference.
func (v *ValidationSpec) RemoveReference(id string) error {
	if err := v.requireDraft("remove reference from"); err != nil {
		return err
	}
	i := slices.IndexFunc(v.references, func(r ValidationReference) bool { return r.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindValidationReference, ID: id}
	}
	v.references = slices.Delete(v.references, i, i+1)
	v.touch()
	return nil
}
