package validator

import (
	"context"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// ValidateSchema checks a schema's data model, element schemas and keys.
func (e *Engine) ValidateSchema(ctx context.Context, store domain.Store, id string, forPublish bool) (Result, error) {
	r := newRun(ctx, store, forPublish)
	s, err := store.Schemas().Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	r.schemas[id] = s

	if dm := s.DataModelID(); dm != "" {
		if _, err := store.DataModels().Get(ctx, dm); err != nil {
			if !domain.IsNotFound(err) {
				return Result{}, err
			}
			r.addf("dataModelId", "data model %s does not exist", dm)
		}
	}

	for _, f := range s.Fields() {
		elementID := f.ElementSchemaID()
		if elementID == "" {
			continue
		}
		field := fmt.Sprintf("fields[%s].elementSchemaId", f.Path)
		if elementID == id {
			// A self-reference is published together with the schema.
			continue
		}
		element, err := r.referencedSchema(field, elementID)
		if err != nil {
			return Result{}, err
		}
		if element != nil && element.Role() != s.Role() {
			r.addf(field, "element schema %s has role %s, want %s", elementID, element.Role(), s.Role())
		}
	}

	r.checkKeys(s)
	return r.result(domain.KindSchema, id), nil
}

func (r *run) checkKeys(s *domain.DataSchema) {
	keys := s.Keys()
	if s.Role() != domain.RoleMaster {
		if len(keys) > 0 {
			r.addf("keys", "%s schema must not define keys", s.Role())
		}
		return
	}
	if len(keys) == 0 {
		r.addf("keys", "Master schema requires at least one key definition")
		return
	}

	primaries := 0
	for _, k := range keys {
		if k.IsPrimary {
			primaries++
		}
		field := fmt.Sprintf("keys[%s]", k.Name)
		if r.forPublish && len(k.Fields) == 0 {
			r.addf(field, "key has no fields")
		}
		for _, kf := range k.Fields {
			f, ok := s.FieldByPath(kf.FieldPath)
			switch {
			case !ok:
				r.addf(field, "key field %q is not a field of the schema", kf.FieldPath)
			case f.FieldType() != domain.FieldScalar:
				r.addf(field, "key field %q must be Scalar, is %s", kf.FieldPath, f.FieldType())
			}
		}
	}
	if primaries > 1 {
		r.addf("keys", "schema has %d primary keys, at most one is allowed", primaries)
	}
}
