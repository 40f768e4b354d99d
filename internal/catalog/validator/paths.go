package validator

import (
	"strings"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// resolvePath finds the field a dotted path addresses, starting in root and
// descending through element schemas. Field paths may themselves contain
// dots, so at each level the longest matching prefix wins. "[]" markers
// are ignored.
func (r *run) resolvePath(root *domain.DataSchema, path string) (domain.FieldDefinition, bool, error) {
	segments := strings.Split(domain.NormalizePath(path), ".")
	current := root
	for {
		field, rest, ok := longestPrefix(current, segments)
		if !ok {
			return domain.FieldDefinition{}, false, nil
		}
		if len(rest) == 0 {
			return field, true, nil
		}
		if !field.IsStructured() {
			return domain.FieldDefinition{}, false, nil
		}
		next, err := r.schema(field.ElementSchemaID())
		if err != nil {
			return domain.FieldDefinition{}, false, err
		}
		if next == nil {
			return domain.FieldDefinition{}, false, nil
		}
		current, segments = next, rest
	}
}

func longestPrefix(s *domain.DataSchema, segments []string) (domain.FieldDefinition, []string, bool) {
	fields := s.Fields()
	for n := len(segments); n >= 1; n-- {
		candidate := strings.Join(segments[:n], ".")
		for _, f := range fields {
			if domain.NormalizePath(f.Path) == candidate {
				return f, segments[n:], true
			}
		}
	}
	return domain.FieldDefinition{}, nil, false
}

// requirePath records an issue unless path resolves in schema. With
// structured set, the field must also be an Object or Array.
func (r *run) requirePath(field string, schema *domain.DataSchema, path string, structured bool) (domain.FieldDefinition, error) {
	f, ok, err := r.resolvePath(schema, path)
	if err != nil {
		return domain.FieldDefinition{}, err
	}
	if !ok {
		r.addf(field, "path %q does not resolve in schema %s", path, schema.ID())
		return domain.FieldDefinition{}, nil
	}
	if structured && !f.AcceptsReference() {
		r.addf(field, "path %q in schema %s is %s, want an Object or Array field", path, schema.ID(), f.FieldType())
		return domain.FieldDefinition{}, nil
	}
	return f, nil
}
