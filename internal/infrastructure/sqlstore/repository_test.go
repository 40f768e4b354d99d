package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

func saveSchema(t *testing.T, s domain.Store, role domain.SchemaRole, key string, version int) *domain.DataSchema {
	t.Helper()
	schema, err := domain.NewDataSchema("tenant-a", "", role, key, version, "")
	require.NoError(t, err)
	require.NoError(t, s.Schemas().Save(context.Background(), schema))
	return schema
}

func TestSchemaRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()

	model, err := domain.NewDataModel("tenant-a", "crm", "", "")
	require.NoError(t, err)
	require.NoError(t, s.DataModels().Save(ctx, model))

	address := saveSchema(t, s, domain.RoleMaster, "address", 1)

	schema, err := domain.NewDataSchema("tenant-a", model.ID(), domain.RoleMaster, "customer", 1, "customers")
	require.NoError(t, err)
	_, err = schema.AddField("name", domain.ScalarShape{Scalar: domain.ScalarString}, true, "display name")
	require.NoError(t, err)
	_, err = schema.AddField("address", domain.ObjectShape{ElementSchemaID: address.ID()}, false, "")
	require.NoError(t, err)
	_, err = schema.AddField("phones", domain.ScalarArrayShape{Element: domain.ScalarString}, false, "")
	require.NoError(t, err)
	_, err = schema.AddField("orders", domain.ObjectArrayShape{ElementSchemaID: address.ID()}, false, "")
	require.NoError(t, err)
	key, err := schema.AddKeyDefinition("pk", true)
	require.NoError(t, err)
	_, err = schema.AddKeyField(key.ID, "name", 0, "lowercase")
	require.NoError(t, err)
	_, err = schema.AddTag("core")
	require.NoError(t, err)
	require.NoError(t, s.Schemas().Save(ctx, schema))

	got, err := s.Schemas().Get(ctx, schema.ID())
	require.NoError(t, err)
	require.Equal(t, schema.Key(), got.Key())
	require.Equal(t, domain.RoleMaster, got.Role())
	require.Equal(t, model.ID(), got.DataModelID())
	require.Equal(t, domain.StatusDraft, got.Status())
	require.Equal(t, "customers", got.Description())
	require.WithinDuration(t, schema.CreatedAt(), got.CreatedAt(), time.Millisecond)
	require.Equal(t, schema.Fields(), got.Fields())
	require.Equal(t, schema.Keys(), got.Keys())
	require.Equal(t, schema.Tags(), got.Tags())

	ids, err := s.Schemas().ReferencingSchemaIDs(ctx, address.ID())
	require.NoError(t, err)
	require.Equal(t, []string{schema.ID()}, ids)

	attached, err := s.Schemas().ListByDataModel(ctx, model.ID())
	require.NoError(t, err)
	require.Equal(t, []string{schema.ID()}, attached)
}

func TestSchemaRepository_SaveReplacesChildren(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()

	schema := saveSchema(t, s, domain.RoleMaster, "customer", 1)
	f, err := schema.AddField("a", domain.ScalarShape{Scalar: domain.ScalarString}, false, "")
	require.NoError(t, err)
	_, err = schema.AddField("b", domain.ScalarShape{Scalar: domain.ScalarString}, false, "")
	require.NoError(t, err)
	require.NoError(t, s.Schemas().Save(ctx, schema))

	require.NoError(t, schema.RemoveField(f.ID))
	require.NoError(t, s.Schemas().Save(ctx, schema))

	got, err := s.Schemas().Get(ctx, schema.ID())
	require.NoError(t, err)
	require.Len(t, got.Fields(), 1)
	require.Equal(t, "b", got.Fields()[0].Path)
}

func TestSchemaRepository_VersionsAndUniqueness(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()
	group := domain.SchemaGroup{TenantID: "tenant-a", Key: "customer", Role: domain.RoleMaster}

	v, err := s.Schemas().MaxVersion(ctx, group)
	require.NoError(t, err)
	require.Equal(t, 0, v)

	v1 := saveSchema(t, s, domain.RoleMaster, "customer", 1)
	v2 := saveSchema(t, s, domain.RoleMaster, "customer", 2)
	saveSchema(t, s, domain.RoleIncoming, "customer", 1)

	v, err = s.Schemas().MaxVersion(ctx, group)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	versions, err := s.Schemas().ListVersions(ctx, group)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, v1.ID(), versions[0].ID())
	require.Equal(t, v2.ID(), versions[1].ID())

	dup, err := domain.NewDataSchema("tenant-a", "", domain.RoleMaster, "customer", 2, "")
	require.NoError(t, err)
	require.ErrorIs(t, s.Schemas().Save(ctx, dup), domain.ErrDuplicate, "version numbers are unique per group")

	now := time.Now()
	require.NoError(t, v1.MarkPublished("alice", now))
	require.NoError(t, s.Schemas().Save(ctx, v1))
	require.NoError(t, v2.MarkPublished("alice", now))
	require.ErrorIs(t, s.Schemas().Save(ctx, v2), domain.ErrDuplicate, "only one Published version per group")

	got, err := s.Schemas().Get(ctx, v1.ID())
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, got.Status())
	require.Equal(t, "alice", got.PublishedBy())
	require.NotNil(t, got.PublishedAt())
}

func TestSchemaRepository_DeleteReferencedSchemaFails(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()

	element := saveSchema(t, s, domain.RoleMaster, "address", 1)
	parent := saveSchema(t, s, domain.RoleMaster, "customer", 1)
	_, err := parent.AddField("address", domain.ObjectShape{ElementSchemaID: element.ID()}, false, "")
	require.NoError(t, err)
	require.NoError(t, s.Schemas().Save(ctx, parent))

	require.ErrorIs(t, s.Schemas().Delete(ctx, element.ID()), domain.ErrInvalidReference)
	require.NoError(t, s.Schemas().Delete(ctx, parent.ID()))
	require.NoError(t, s.Schemas().Delete(ctx, element.ID()))
	require.ErrorIs(t, s.Schemas().Delete(ctx, element.ID()), domain.ErrNotFound)
}

func TestTransformationRepository_SimpleRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()
	src := saveSchema(t, s, domain.RoleIncoming, "customer", 1)
	tgt := saveSchema(t, s, domain.RoleMaster, "customer", 1)

	child, err := domain.NewTransformationSpec("tenant-a", src.ID(), tgt.ID(), domain.ModeSimple, domain.OneToOne, 1, "")
	require.NoError(t, err)
	require.NoError(t, s.Transformations().Save(ctx, child))

	spec, err := domain.NewTransformationSpec("tenant-a", tgt.ID(), src.ID(), domain.ModeSimple, domain.OneToMany, 1, "map")
	require.NoError(t, err)
	_, err = spec.AddSimpleRule("name", "fullName", "trim", true, nil)
	require.NoError(t, err)
	five := 5
	_, err = spec.AddSimpleRule("age", "age", "", false, &five)
	require.NoError(t, err)
	_, err = spec.AddReference("address", "address", child.ID())
	require.NoError(t, err)
	require.NoError(t, s.Transformations().Save(ctx, spec))

	got, err := s.Transformations().Get(ctx, spec.ID())
	require.NoError(t, err)
	require.Equal(t, domain.ModeSimple, got.Mode())
	require.Equal(t, domain.OneToMany, got.Cardinality())
	require.Equal(t, spec.Body(), got.Body())
	require.Equal(t, spec.References(), got.References())

	refs, err := s.Transformations().ReferencingSpecIDs(ctx, child.ID())
	require.NoError(t, err)
	require.Equal(t, []string{spec.ID()}, refs)

	bySchema, err := s.Transformations().IDsBySchema(ctx, src.ID())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{child.ID(), spec.ID()}, bySchema)

	require.ErrorIs(t, s.Transformations().Delete(ctx, child.ID()), domain.ErrInvalidReference,
		"referenced child cannot be deleted")
}

func TestTransformationRepository_AdvancedRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()
	src := saveSchema(t, s, domain.RoleIncoming, "order", 1)
	tgt := saveSchema(t, s, domain.RoleMaster, "order", 1)

	spec, err := domain.NewTransformationSpec("tenant-a", src.ID(), tgt.ID(), domain.ModeAdvanced, domain.ManyToOne, 1, "")
	require.NoError(t, err)
	read, err := spec.AddGraphNode("read", domain.NodeSource, "Order", `{"path":"order"}`)
	require.NoError(t, err)
	agg, err := spec.AddGraphNode("sum", domain.NodeAggregate, "Decimal", `{"fn":"sum"}`)
	require.NoError(t, err)
	_, err = spec.AddGraphEdge(read.ID, agg.ID, "values", 0)
	require.NoError(t, err)
	_, err = spec.AddOutputBinding("total", agg.ID)
	require.NoError(t, err)
	require.NoError(t, s.Transformations().Save(ctx, spec))

	got, err := s.Transformations().Get(ctx, spec.ID())
	require.NoError(t, err)
	require.Equal(t, spec.Body(), got.Body())

	require.NoError(t, spec.RemoveGraphNode(read.ID))
	require.NoError(t, s.Transformations().Save(ctx, spec))
	got, err = s.Transformations().Get(ctx, spec.ID())
	require.NoError(t, err)
	body := got.Body().(*domain.AdvancedBody)
	require.Len(t, body.Nodes, 1)
	require.Empty(t, body.Edges)
	require.Len(t, body.Bindings, 1)

	v, err := s.Transformations().MaxVersion(ctx, spec.Group())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestValidationRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()
	schema := saveSchema(t, s, domain.RoleMaster, "customer", 1)
	element := saveSchema(t, s, domain.RoleMaster, "address", 1)

	child, err := domain.NewValidationSpec("tenant-a", element.ID(), 1, "")
	require.NoError(t, err)
	require.NoError(t, s.Validations().Save(ctx, child))

	spec, err := domain.NewValidationSpec("tenant-a", schema.ID(), 1, "rules")
	require.NoError(t, err)
	_, err = spec.AddRule(domain.RuleField, domain.SeverityError, `{"path":"name"}`)
	require.NoError(t, err)
	_, err = spec.AddRule(domain.RuleCrossField, domain.SeverityWarning, "")
	require.NoError(t, err)
	_, err = spec.AddReference("address", child.ID())
	require.NoError(t, err)
	require.NoError(t, s.Validations().Save(ctx, spec))

	got, err := s.Validations().Get(ctx, spec.ID())
	require.NoError(t, err)
	require.Equal(t, spec.Rules(), got.Rules())
	require.Equal(t, spec.References(), got.References())
	require.Equal(t, schema.ID(), got.DataSchemaID())

	refs, err := s.Validations().ReferencingSpecIDs(ctx, child.ID())
	require.NoError(t, err)
	require.Equal(t, []string{spec.ID()}, refs)

	versions, err := s.Validations().ListVersions(ctx, schema.ID())
	require.NoError(t, err)
	require.Len(t, versions, 1)

	_, err = s.Validations().Get(ctx, "missing")
	require.True(t, domain.IsNotFound(err))
}

// Property: any schema built from random scalar fields and a key survives a
// save/load cycle unchanged.
func TestSchemaRepository_RoundTripProperty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := db.Store()
	scalars := []domain.ScalarType{
		domain.ScalarString, domain.ScalarInteger, domain.ScalarLong, domain.ScalarDecimal,
		domain.ScalarDouble, domain.ScalarBoolean, domain.ScalarDate, domain.ScalarDateTime, domain.ScalarGUID,
	}

	rapid.Check(t, func(rt *rapid.T) {
		schema, err := domain.NewDataSchema("tenant-"+domain.NewID(), "", domain.RoleMaster, "k", 1, "")
		if err != nil {
			rt.Fatal(err)
		}
		paths := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}(\.[a-z]{1,8})?`), 1, 8,
			func(p string) string { return p }).Draw(rt, "paths")
		for i, p := range paths {
			st := rapid.SampledFrom(scalars).Draw(rt, "scalar")
			if _, err := schema.AddField(p, domain.ScalarShape{Scalar: st}, rapid.Bool().Draw(rt, "required"), ""); err != nil {
				rt.Fatal(err)
			}
			if i == 0 {
				key, err := schema.AddKeyDefinition("pk", true)
				if err != nil {
					rt.Fatal(err)
				}
				if _, err := schema.AddKeyField(key.ID, p, 0, ""); err != nil {
					rt.Fatal(err)
				}
			}
		}
		if err := s.Schemas().Save(ctx, schema); err != nil {
			rt.Fatal(err)
		}
		got, err := s.Schemas().Get(ctx, schema.ID())
		if err != nil {
			rt.Fatal(err)
		}
		require.Equal(rt, schema.Fields(), got.Fields())
		require.Equal(rt, schema.Keys(), got.Keys())
	})
}
