package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

func TestBuilder_SchemaVersionsAdvance(t *testing.T) {
	db := NewTestDB(t)
	store := db.Store()

	f := NewBuilder(t, store).
		WithSchema("v1", domain.RoleIncoming, "feed", Status(domain.StatusArchived)).
		WithSchema("v2", domain.RoleIncoming, "feed", Status(domain.StatusPublished)).
		WithSchema("v3", domain.RoleIncoming, "feed").
		Build()

	require.Equal(t, 1, f.Schemas["v1"].Version())
	require.Equal(t, 2, f.Schemas["v2"].Version())
	require.Equal(t, 3, f.Schemas["v3"].Version())

	versions, err := store.Schemas().ListVersions(context.Background(),
		domain.SchemaGroup{TenantID: Tenant, Key: "feed", Role: domain.RoleIncoming})
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, domain.StatusArchived, versions[0].Status())
	require.Equal(t, domain.StatusPublished, versions[1].Status())
	require.Equal(t, domain.StatusDraft, versions[2].Status())
}

func TestBuilder_SelfNestingSchema(t *testing.T) {
	db := NewTestDB(t)

	f := NewBuilder(t, db.Store()).
		WithSchema("node", domain.RoleMaster, "tree_node",
			Required("id", domain.ScalarString),
			ObjectArray("children", "node"),
			PrimaryKey("pk", "id")).
		Build()

	got, err := db.Store().Schemas().Get(context.Background(), f.SchemaID("node"))
	require.NoError(t, err)
	children, ok := got.FieldByPath("children")
	require.True(t, ok)
	require.Equal(t, f.SchemaID("node"), children.ElementSchemaID())
}

func TestBuilder_PinnedVersion(t *testing.T) {
	db := NewTestDB(t)

	f := NewBuilder(t, db.Store()).
		WithSchema("s", domain.RoleOutgoing, "export", Version(7)).
		Build()

	require.Equal(t, 7, f.Schemas["s"].Version())
}

func TestPreset_CustomerCatalog(t *testing.T) {
	db := NewTestDB(t)
	store := db.Store()
	ctx := context.Background()

	f := NewBuilder(t, store).WithCustomerCatalog().Build()

	require.Len(t, f.Schemas, 4)
	require.Len(t, f.Transformations, 2)
	require.Len(t, f.Validations, 2)

	customer, err := store.Schemas().Get(ctx, f.SchemaID("customer"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, customer.Status())
	pk, ok := customer.PrimaryKey()
	require.True(t, ok)
	require.Equal(t, "customer_pk", pk.Name)
	require.Len(t, customer.Tags(), 2)

	spec, err := store.Transformations().Get(ctx, f.TransformationID("customer_map"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, spec.Status())
	require.Len(t, spec.References(), 1)
	require.Equal(t, f.TransformationID("address_map"), spec.References()[0].ChildTransformationSpecID)
	body, ok := spec.Body().(*domain.SimpleBody)
	require.True(t, ok)
	require.Len(t, body.Rules, 2)

	rules, err := store.Validations().Get(ctx, f.ValidationID("customer_rules"))
	require.NoError(t, err)
	require.Len(t, rules.Rules(), 2)
	require.Equal(t, f.ValidationID("address_rules"), rules.References()[0].ChildValidationSpecID)
}

func TestPreset_OrderGraph(t *testing.T) {
	db := NewTestDB(t)

	f := NewBuilder(t, db.Store()).WithOrderGraph().Build()

	spec, err := db.Store().Transformations().Get(context.Background(), f.TransformationID("order_graph"))
	require.NoError(t, err)
	body, ok := spec.Body().(*domain.AdvancedBody)
	require.True(t, ok)
	require.Len(t, body.Nodes, 3)
	require.Len(t, body.Edges, 2)
	require.Len(t, body.Bindings, 2)

	order, ok := body.ExecutionOrder()
	require.True(t, ok)
	require.Equal(t, "total", order[2].Key)
}
