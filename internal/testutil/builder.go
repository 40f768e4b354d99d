package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// Builder accumulates catalog entities and inserts them in declaration
// order, straight through the repositories. Entities refer to each other
// by alias; an alias must be declared before it is referenced, except that
// a schema may nest itself.
type Builder struct {
	t     testing.TB
	store domain.Store
	steps []func(f *Fixture)
}

// Fixture maps aliases to the inserted entities.
type Fixture struct {
	Schemas         map[string]*domain.DataSchema
	Transformations map[string]*domain.TransformationSpec
	Validations     map[string]*domain.ValidationSpec
}

// SchemaID returns the id of the schema built under alias.
func (f *Fixture) SchemaID(alias string) string { return f.Schemas[alias].ID() }

// TransformationID returns the id of the spec built under alias.
func (f *Fixture) TransformationID(alias string) string { return f.Transformations[alias].ID() }

// ValidationID returns the id of the validation spec built under alias.
func (f *Fixture) ValidationID(alias string) string { return f.Validations[alias].ID() }

// NewBuilder creates a builder writing to store.
func NewBuilder(t testing.TB, store domain.Store) *Builder {
	t.Helper()
	return &Builder{t: t, store: store}
}

// WithSchema declares a Draft schema unless Status says otherwise.
func (b *Builder) WithSchema(alias string, role domain.SchemaRole, key string, opts ...SchemaOption) *Builder {
	data := schemaData{alias: alias, tenant: Tenant, role: role, key: key, status: domain.StatusDraft}
	for _, opt := range opts {
		opt(&data)
	}
	b.steps = append(b.steps, func(f *Fixture) { b.insertSchema(f, data) })
	return b
}

// WithTransformation declares a spec between two declared schemas.
func (b *Builder) WithTransformation(alias, sourceAlias, targetAlias string, mode domain.TransformMode, opts ...TransformOption) *Builder {
	data := transformData{
		alias: alias, sourceAlias: sourceAlias, targetAlias: targetAlias,
		mode: mode, cardinality: domain.OneToOne, status: domain.StatusDraft,
	}
	for _, opt := range opts {
		opt(&data)
	}
	b.steps = append(b.steps, func(f *Fixture) { b.insertTransformation(f, data) })
	return b
}

// WithValidation declares a validation spec over a declared schema.
func (b *Builder) WithValidation(alias, schemaAlias string, opts ...ValidationOption) *Builder {
	data := validationData{alias: alias, schemaAlias: schemaAlias, status: domain.StatusDraft}
	for _, opt := range opts {
		opt(&data)
	}
	b.steps = append(b.steps, func(f *Fixture) { b.insertValidation(f, data) })
	return b
}

// Build inserts everything declared so far.
func (b *Builder) Build() *Fixture {
	b.t.Helper()
	f := &Fixture{
		Schemas:         make(map[string]*domain.DataSchema),
		Transformations: make(map[string]*domain.TransformationSpec),
		Validations:     make(map[string]*domain.ValidationSpec),
	}
	for _, step := range b.steps {
		step(f)
	}
	return f
}

func (b *Builder) insertSchema(f *Fixture, data schemaData) {
	b.t.Helper()
	ctx := context.Background()

	version := data.version
	if version == 0 {
		maxVersion, err := b.store.Schemas().MaxVersion(ctx, domain.SchemaGroup{TenantID: data.tenant, Key: data.key, Role: data.role})
		require.NoError(b.t, err)
		version = maxVersion + 1
	}
	s, err := domain.NewDataSchema(data.tenant, data.dataModel, data.role, data.key, version, "")
	require.NoError(b.t, err)
	// Saved once up front so self-nesting fields satisfy the foreign key.
	require.NoError(b.t, b.store.Schemas().Save(ctx, s))

	for _, fd := range data.fields {
		element := ""
		switch {
		case fd.elementAlias == data.alias:
			element = s.ID()
		case fd.elementAlias != "":
			element = f.SchemaID(fd.elementAlias)
		}
		shape, err := domain.NewFieldShape(fd.fieldType, fd.scalar, element)
		require.NoError(b.t, err)
		_, err = s.AddField(fd.path, shape, fd.required, "")
		require.NoError(b.t, err)
	}
	for _, kd := range data.keys {
		key, err := s.AddKeyDefinition(kd.name, kd.primary)
		require.NoError(b.t, err)
		for i, p := range kd.paths {
			_, err := s.AddKeyField(key.ID, p, i, "")
			require.NoError(b.t, err)
		}
	}
	for _, tag := range data.tags {
		_, err := s.AddTag(tag)
		require.NoError(b.t, err)
	}
	applyStatus(b.t, s, data.status)
	require.NoError(b.t, b.store.Schemas().Save(ctx, s))
	f.Schemas[data.alias] = s
}

func (b *Builder) insertTransformation(f *Fixture, data transformData) {
	b.t.Helper()
	ctx := context.Background()
	src, tgt := f.SchemaID(data.sourceAlias), f.SchemaID(data.targetAlias)

	maxVersion, err := b.store.Transformations().MaxVersion(ctx, domain.TransformationGroup{SourceSchemaID: src, TargetSchemaID: tgt})
	require.NoError(b.t, err)
	spec, err := domain.NewTransformationSpec(Tenant, src, tgt, data.mode, data.cardinality, maxVersion+1, "")
	require.NoError(b.t, err)

	for i, r := range data.rules {
		order := i
		_, err := spec.AddSimpleRule(r[0], r[1], "", false, &order)
		require.NoError(b.t, err)
	}
	nodeIDs := make(map[string]string, len(data.nodes))
	for _, n := range data.nodes {
		node, err := spec.AddGraphNode(n.key, n.nodeType, "", n.config)
		require.NoError(b.t, err)
		nodeIDs[n.key] = node.ID
	}
	for _, e := range data.edges {
		_, err := spec.AddGraphEdge(nodeIDs[e.from], nodeIDs[e.to], e.input, e.order)
		require.NoError(b.t, err)
	}
	for _, bd := range data.bindings {
		_, err := spec.AddOutputBinding(bd.targetPath, nodeIDs[bd.fromKey])
		require.NoError(b.t, err)
	}
	for _, ref := range data.references {
		_, err := spec.AddReference(ref.source, ref.target, f.TransformationID(ref.childAlias))
		require.NoError(b.t, err)
	}
	applyStatus(b.t, spec, data.status)
	require.NoError(b.t, b.store.Transformations().Save(ctx, spec))
	f.Transformations[data.alias] = spec
}

func (b *Builder) insertValidation(f *Fixture, data validationData) {
	b.t.Helper()
	ctx := context.Background()
	schemaID := f.SchemaID(data.schemaAlias)

	maxVersion, err := b.store.Validations().MaxVersion(ctx, schemaID)
	require.NoError(b.t, err)
	spec, err := domain.NewValidationSpec(Tenant, schemaID, maxVersion+1, "")
	require.NoError(b.t, err)

	for _, rt := range data.rules {
		_, err := spec.AddRule(rt, domain.SeverityError, "{}")
		require.NoError(b.t, err)
	}
	for _, ref := range data.references {
		_, err := spec.AddReference(ref.source, f.ValidationID(ref.childAlias))
		require.NoError(b.t, err)
	}
	applyStatus(b.t, spec, data.status)
	require.NoError(b.t, b.store.Validations().Save(ctx, spec))
	f.Validations[data.alias] = spec
}

type lifecycle interface {
	MarkPublished(by string, at time.Time) error
	MarkArchived(at time.Time) error
}

func applyStatus(t testing.TB, e lifecycle, status domain.Status) {
	t.Helper()
	now := time.Now()
	switch status {
	case domain.StatusPublished:
		require.NoError(t, e.MarkPublished("fixture", now))
	case domain.StatusArchived:
		require.NoError(t, e.MarkPublished("fixture", now))
		require.NoError(t, e.MarkArchived(now))
	}
}
