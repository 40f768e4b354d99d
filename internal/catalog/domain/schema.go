package domain

import (
	"slices"
	"strings"
)

// FieldShape is the closed set of field type/type-parameter combinations.
// Exactly one of a scalar type or an element schema defines every shape.
type FieldShape interface {
	FieldType() FieldType
	isFieldShape()
}

// ScalarShape is a single primitive value.
type ScalarShape struct{ Scalar ScalarType }

// ObjectShape is a nested structure described by another schema.
type ObjectShape struct{ ElementSchemaID string }

// ScalarArrayShape is a list of primitive values.
type ScalarArrayShape struct{ Element ScalarType }

// ObjectArrayShape is a list of nested structures described by another schema.
type ObjectArrayShape struct{ ElementSchemaID string }

func (ScalarShape) FieldType() FieldType      { return FieldScalar }
func (ObjectShape) FieldType() FieldType      { return FieldObject }
func (ScalarArrayShape) FieldType() FieldType { return FieldArray }
func (ObjectArrayShape) FieldType() FieldType { return FieldArray }

func (ScalarShape) isFieldShape()      {}
func (ObjectShape) isFieldShape()      {}
func (ScalarArrayShape) isFieldShape() {}
func (ObjectArrayShape) isFieldShape() {}

// NewFieldShape builds a shape from its flat representation, enforcing
// that exactly one of scalarType and elementSchemaID is set and that the
// one that is set fits fieldType.
func NewFieldShape(fieldType FieldType, scalarType ScalarType, elementSchemaID string) (FieldShape, error) {
	hasScalar := scalarType != ""
	hasElement := elementSchemaID != ""
	if hasScalar && hasElement {
		return nil, InvalidArgument("%s field must set exactly one of scalarType and elementSchemaId, got both", fieldType)
	}
	if hasScalar && !scalarType.IsValid() {
		return nil, InvalidArgument("unknown scalar type %q", scalarType)
	}

	switch fieldType {
	case FieldScalar:
		if !hasScalar {
			return nil, InvalidArgument("Scalar field requires scalarType and no elementSchemaId")
		}
		return ScalarShape{Scalar: scalarType}, nil
	case FieldObject:
		if !hasElement {
			return nil, InvalidArgument("Object field requires elementSchemaId and no scalarType")
		}
		return ObjectShape{ElementSchemaID: elementSchemaID}, nil
	case FieldArray:
		switch {
		case hasScalar:
			return ScalarArrayShape{Element: scalarType}, nil
		case hasElement:
			return ObjectArrayShape{ElementSchemaID: elementSchemaID}, nil
		default:
			return nil, InvalidArgument("Array field requires exactly one of scalarType and elementSchemaId")
		}
	default:
		return nil, InvalidArgument("unknown field type %q", fieldType)
	}
}

// ShapeParts flattens a shape back into its persisted columns.
func ShapeParts(shape FieldShape) (FieldType, ScalarType, string) {
	switch s := shape.(type) {
	case ScalarShape:
		return FieldScalar, s.Scalar, ""
	case ObjectShape:
		return FieldObject, "", s.ElementSchemaID
	case ScalarArrayShape:
		return FieldArray, s.Element, ""
	case ObjectArrayShape:
		return FieldArray, "", s.ElementSchemaID
	default:
		return "", "", ""
	}
}

// FieldDefinition is one addressable path of a schema.
type FieldDefinition struct {
	ID          string
	Path        string
	Shape       FieldShape
	Required    bool
	Description string
	Position    int
}

// FieldType returns the structural kind of the field.
func (f FieldDefinition) FieldType() FieldType {
	if f.Shape == nil {
		return ""
	}
	return f.Shape.FieldType()
}

// ScalarType returns the scalar or scalar element type, if any.
func (f FieldDefinition) ScalarType() ScalarType {
	_, st, _ := ShapeParts(f.Shape)
	return st
}

// ElementSchemaID returns the nested schema id, if any.
func (f FieldDefinition) ElementSchemaID() string {
	_, _, id := ShapeParts(f.Shape)
	return id
}

// IsStructured reports whether the field nests another schema.
func (f FieldDefinition) IsStructured() bool {
	switch f.Shape.(type) {
	case ObjectShape, ObjectArrayShape:
		return true
	default:
		return false
	}
}

// AcceptsReference reports whether a transform or validation reference may
// target the field: any Object or Array. Arrays of scalars are handled one
// element at a time and have no element schema to match.
func (f FieldDefinition) AcceptsReference() bool {
	return f.FieldType() != FieldScalar
}

// KeyField is one element of a business key tuple.
type KeyField struct {
	ID            string
	FieldPath     string
	Order         int
	Normalization string
}

// KeyDefinition is a named, ordered tuple of scalar field paths.
type KeyDefinition struct {
	ID        string
	Name      string
	IsPrimary bool
	Fields    []KeyField
}

// SortedFields returns the key fields ordered by Order.
func (k KeyDefinition) SortedFields() []KeyField {
	out := slices.Clone(k.Fields)
	slices.SortStableFunc(out, func(a, b KeyField) int { return a.Order - b.Order })
	return out
}

// SchemaTag is a free-form label on a schema.
type SchemaTag struct {
	ID  string
	Tag string
}

// SchemaGroup identifies a schema version group.
type SchemaGroup struct {
	TenantID string
	Key      string
	Role     SchemaRole
}

// DataSchema is a versioned structural contract made of fields, keys and tags.
type DataSchema struct {
	versioned
	dataModelID string
	role        SchemaRole
	key         string
	fields      []FieldDefinition
	keys        []KeyDefinition
	tags        []SchemaTag
}

// NewDataSchema creates a Draft schema at the given version.
func NewDataSchema(tenantID, dataModelID string, role SchemaRole, key string, version int, description string) (*DataSchema, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, InvalidArgument("tenant id is required")
	}
	if !role.IsValid() {
		return nil, InvalidArgument("unknown schema role %q", role)
	}
	if strings.TrimSpace(key) == "" {
		return nil, InvalidArgument("schema key is required")
	}
	if version < 1 {
		return nil, InvalidArgument("version must be positive, got %d", version)
	}
	return &DataSchema{
		versioned:   newVersioned(KindSchema, tenantID, version, description),
		dataModelID: dataModelID,
		role:        role,
		key:         key,
	}, nil
}

// ReconstituteDataSchema rebuilds a schema from persisted state.
func ReconstituteDataSchema(info VersionInfo, dataModelID string, role SchemaRole, key string,
	fields []FieldDefinition, keys []KeyDefinition, tags []SchemaTag) *DataSchema {
	return &DataSchema{
		versioned:   versioned{kind: KindSchema, info: info},
		dataModelID: dataModelID,
		role:        role,
		key:         key,
		fields:      fields,
		keys:        keys,
		tags:        tags,
	}
}

func (s *DataSchema) DataModelID() string { return s.dataModelID }
func (s *DataSchema) Role() SchemaRole    { return s.role }
func (s *DataSchema) Key() string         { return s.key }

// Group returns the schema's version group.
func (s *DataSchema) Group() SchemaGroup {
	return SchemaGroup{TenantID: s.TenantID(), Key: s.key, Role: s.role}
}

// Fields returns the fields in insertion order.
func (s *DataSchema) Fields() []FieldDefinition { return slices.Clone(s.fields) }

// Keys returns the key definitions.
func (s *DataSchema) Keys() []KeyDefinition {
	out := make([]KeyDefinition, len(s.keys))
	for i, k := range s.keys {
		k.Fields = slices.Clone(k.Fields)
		out[i] = k
	}
	return out
}

// Tags returns the schema tags.
func (s *DataSchema) Tags() []SchemaTag { return slices.Clone(s.tags) }

// Field returns the field with the given id.
func (s *DataSchema) Field(id string) (FieldDefinition, bool) {
	for _, f := range s.fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// FieldByPath returns the field with the given path.
func (s *DataSchema) FieldByPath(path string) (FieldDefinition, bool) {
	for _, f := range s.fields {
		if f.Path == path {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// KeyDefinition returns the key definition with the given id.
func (s *DataSchema) KeyDefinition(id string) (KeyDefinition, bool) {
	if i := s.keyIndex(id); i >= 0 {
		k := s.keys[i]
		k.Fields = slices.Clone(k.Fields)
		return k, true
	}
	return KeyDefinition{}, false
}

// ElementSchemaIDs returns the distinct nested schema ids in field order.
func (s *DataSchema) ElementSchemaIDs() []string {
	var ids []string
	for _, f := range s.fields {
		if id := f.ElementSchemaID(); id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetDataModel attaches or, with an empty id, detaches a data model. Draft only.
func (s *DataSchema) SetDataModel(dataModelID string) error {
	if err := s.requireDraft("update"); err != nil {
		return err
	}
	s.dataModelID = dataModelID
	s.touch()
	return nil
}

// AddField appends a field. Cross-schema checks on the element schema are
// the caller's responsibility.
func (s *DataSchema) AddField(path string, shape FieldShape, required bool, description string) (FieldDefinition, error) {
	if err := s.requireDraft("add field to"); err != nil {
		return FieldDefinition{}, err
	}
	if err := ValidatePath(path); err != nil {
		return FieldDefinition{}, err
	}
	if shape == nil {
		return FieldDefinition{}, InvalidArgument("field shape is required")
	}
	if _, exists := s.FieldByPath(path); exists {
		return FieldDefinition{}, Duplicate("field path %q already exists in schema %s", path, s.ID())
	}

	position := 0
	for _, f := range s.fields {
		position = max(position, f.Position+1)
	}
	field := FieldDefinition{
		ID:          NewID(),
		Path:        path,
		Shape:       shape,
		Required:    required,
		Description: description,
		Position:    position,
	}
	s.fields = append(s.fields, field)
	s.touch()
	return field, nil
}

// FieldUpdate carries a partial field update; nil members are left unchanged.
type FieldUpdate struct {
	Path        *string
	Shape       FieldShape
	Required    *bool
	Description *string
}

// UpdateField applies a partial update. A field used by a key may not be
// renamed or turned into a non-scalar.
func (s *DataSchema) UpdateField(id string, upd FieldUpdate) (FieldDefinition, error) {
	if err := s.requireDraft("update field of"); err != nil {
		return FieldDefinition{}, err
	}
	i := slices.IndexFunc(s.fields, func(f FieldDefinition) bool { return f.ID == id })
	if i < 0 {
		return FieldDefinition{}, &NotFoundError{Kind: KindField, ID: id}
	}
	field := s.fields[i]
	keyed := s.keyUsesPath(field.Path)

	if upd.Path != nil && *upd.Path != field.Path {
		if err := ValidatePath(*upd.Path); err != nil {
			return FieldDefinition{}, err
		}
		if _, exists := s.FieldByPath(*upd.Path); exists {
			return FieldDefinition{}, Duplicate("field path %q already exists in schema %s", *upd.Path, s.ID())
		}
		if keyed {
			return FieldDefinition{}, InUse("field %q is part of a key and cannot be renamed", field.Path)
		}
		field.Path = *upd.Path
	}
	if upd.Shape != nil {
		if _, scalar := upd.Shape.(ScalarShape); keyed && !scalar {
			return FieldDefinition{}, InUse("field %q is part of a key and must stay Scalar", field.Path)
		}
		field.Shape = upd.Shape
	}
	if upd.Required != nil {
		field.Required = *upd.Required
	}
	if upd.Description != nil {
		field.Description = *upd.Description
	}

	s.fields[i] = field
	s.touch()
	return field, nil
}

// RemoveField deletes a field that no key depends on.
func (s *DataSchema) RemoveField(id string) error {
	if err := s.requireDraft("remove field from"); err != nil {
		return err
	}
	i := slices.IndexFunc(s.fields, func(f FieldDefinition) bool { return f.ID == id })
	if i < 0 {
		return &NotFoundError{Kind: KindField, ID: id}
	}
	if s.keyUsesPath(s.fields[i].Path) {
		return InUse("field %q is part of a key", s.fields[i].Path)
	}
	s.fields = slices.Delete(s.fields, i, i+1)
	s.touch()
	return nil
}

// AddTag adds a unique tag.
func (s *DataSchema) AddTag(tag string) (SchemaTag, error) {
	if err := s.requireDraft("tag"); err != nil {
		return SchemaTag{}, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return SchemaTag{}, InvalidArgument("tag is required")
	}
	if slices.ContainsFunc(s.tags, func(t SchemaTag) bool { return t.Tag == tag }) {
		return SchemaTag{}, Duplicate("tag %q already exists on schema %s", tag, s.ID())
	}
	t := SchemaTag{ID: NewID(), Tag: tag}
	s.tags = append(s.tags, t)
	s.touch()
	return t, nil
}

// RemoveTag removes a tag by value.
func (s *DataSchema) RemoveTag(tag string) error {
	if err := s.requireDraft("untag"); err != nil {
		return err
	}
	i := slices.IndexFunc(s.tags, func(t SchemaTag) bool { return t.Tag == tag })
	if i < 0 {
		return &NotFoundError{Kind: KindSchemaTag, ID: tag}
	}
	s.tags = slices.Delete(s.tags, i, i+1)
	s.touch()
	return nil
}

// AddKeyDefinition adds a named business key. Master schemas only; at most
// one key may be primary.
func (s *DataSchema) AddKeyDefinition(name string, isPrimary bool) (KeyDefinition, error) {
	if err := s.requireDraft("add key to"); err != nil {
		return KeyDefinition{}, err
	}
	if s.role != RoleMaster {
		return KeyDefinition{}, InvalidArgument("key definitions require a Master schema, %s is %s", s.ID(), s.role)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return KeyDefinition{}, InvalidArgument("key name is required")
	}
	for _, k := range s.keys {
		if k.Name == name {
			return KeyDefinition{}, Duplicate("key %q already exists on schema %s", name, s.ID())
		}
		if isPrimary && k.IsPrimary {
			return KeyDefinition{}, Duplicate("schema %s already has primary key %q", s.ID(), k.Name)
		}
	}
	key := KeyDefinition{ID: NewID(), Name: name, IsPrimary: isPrimary}
	s.keys = append(s.keys, key)
	s.touch()
	return key, nil
}

// RemoveKeyDefinition removes a key and its fields.
func (s *DataSchema) RemoveKeyDefinition(keyID string) error {
	if err := s.requireDraft("remove key from"); err != nil {
		return err
	}
	i := s.keyIndex(keyID)
	if i < 0 {
		return &NotFoundError{Kind: KindKeyDefinition, ID: keyID}
	}
	s.keys = slices.Delete(s.keys, i, i+1)
	s.touch()
	return nil
}

// HasKey reports whether the schema owns the key definition.
func (s *DataSchema) HasKey(keyID string) bool {
	return s.keyIndex(keyID) >= 0
}

// AddKeyField appends a Scalar field path to a key at an unoccupied order.
func (s *DataSchema) AddKeyField(keyID, fieldPath string, order int, normalization string) (KeyField, error) {
	if err := s.requireDraft("add key field to"); err != nil {
		return KeyField{}, err
	}
	i := s.keyIndex(keyID)
	if i < 0 {
		return KeyField{}, &NotFoundError{Kind: KindKeyDefinition, ID: keyID}
	}
	field, ok := s.FieldByPath(fieldPath)
	if !ok {
		return KeyField{}, InvalidReference("key field path %q is not a field of schema %s", fieldPath, s.ID())
	}
	if field.FieldType() != FieldScalar {
		return KeyField{}, InvalidArgument("key field %q must be Scalar, is %s", fieldPath, field.FieldType())
	}
	if order < 0 {
		return KeyField{}, InvalidArgument("key field order must be >= 0, got %d", order)
	}
	key := s.keys[i]
	for _, kf := range key.Fields {
		if kf.FieldPath == fieldPath {
			return KeyField{}, Duplicate("field %q is already part of key %q", fieldPath, key.Name)
		}
		if kf.Order == order {
			return KeyField{}, Duplicate("order %d is already occupied in key %q", order, key.Name)
		}
	}
	kf := KeyField{ID: NewID(), FieldPath: fieldPath, Order: order, Normalization: normalization}
	key.Fields = append(slices.Clone(key.Fields), kf)
	s.keys[i] = key
	s.touch()
	return kf, nil
}

// RemoveKeyField removes a key field and compacts the remaining orders to
// 0..n-1, keeping their relative sequence.
func (s *DataSchema) RemoveKeyField(keyID, keyFieldID string) error {
	if err := s.requireDraft("remove key field from"); err != nil {
		return err
	}
	i := s.keyIndex(keyID)
	if i < 0 {
		return &NotFoundError{Kind: KindKeyDefinition, ID: keyID}
	}
	key := s.keys[i]
	j := slices.IndexFunc(key.Fields, func(kf KeyField) bool { return kf.ID == keyFieldID })
	if j < 0 {
		return &NotFoundError{Kind: KindKeyField, ID: keyFieldID}
	}
	remaining := slices.Delete(slices.Clone(key.Fields), j, j+1)
	slices.SortStableFunc(remaining, func(a, b KeyField) int { return a.Order - b.Order })
	for n := range remaining {
		remaining[n].Order = n
	}
	key.Fields = remaining
	s.keys[i] = key
	s.touch()
	return nil
}

// ReorderKeyFields assigns order = position in idsInOrder. The list must be
// a permutation of the key's current field ids; otherwise nothing changes.
func (s *DataSchema) ReorderKeyFields(keyID string, idsInOrder []string) error {
	if err := s.requireDraft("reorder key of"); err != nil {
		return err
	}
	i := s.keyIndex(keyID)
	if i < 0 {
		return &NotFoundError{Kind: KindKeyDefinition, ID: keyID}
	}
	key := s.keys[i]
	if len(idsInOrder) != len(key.Fields) {
		return InvalidArgument("reorder of key %q must list all %d field ids, got %d", key.Name, len(key.Fields), len(idsInOrder))
	}
	positions := make(map[string]int, len(idsInOrder))
	for pos, id := range idsInOrder {
		if _, dup := positions[id]; dup {
			return InvalidArgument("key field id %q listed twice", id)
		}
		positions[id] = pos
	}
	reordered := slices.Clone(key.Fields)
	for n, kf := range reordered {
		pos, ok := positions[kf.ID]
		if !ok {
			return InvalidArgument("reorder of key %q is missing key field %q", key.Name, kf.ID)
		}
		reordered[n].Order = pos
	}
	slices.SortStableFunc(reordered, func(a, b KeyField) int { return a.Order - b.Order })
	key.Fields = reordered
	s.keys[i] = key
	s.touch()
	return nil
}

// PrimaryKey returns the primary key definition, if any.
func (s *DataSchema) PrimaryKey() (KeyDefinition, bool) {
	for _, k := range s.keys {
		if k.IsPrimary {
			k.Fields = slices.Clone(k.Fields)
			return k, true
		}
	}
	return KeyDefinition{}, false
}

// KeyDefinitionForField returns the id of the key definition owning a key field.
func (s *DataSchema) KeyDefinitionForField(keyFieldID string) (string, bool) {
	for _, k := range s.keys {
		for _, kf := range k.Fields {
			if kf.ID == keyFieldID {
				return k.ID, true
			}
		}
	}
	return "", false
}

func (s *DataSchema) keyIndex(id string) int {
	return slices.IndexFunc(s.keys, func(k KeyDefinition) bool { return k.ID == id })
}

func (s *DataSchema) keyUsesPath(path string) bool {
	for _, k := range s.keys {
		for _, kf := range k.Fields {
			if kf.FieldPath == path {
				return true
			}
		}
	}
	return false
}
