package compiler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/specforge/internal/cachemanager"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/mocks"
	"github.com/zjrosen/specforge/internal/testutil"
	"github.com/zjrosen/specforge/internal/tracing"
)

func publishedOrderGraph(t *testing.T) (domain.Store, *testutil.Fixture) {
	t.Helper()
	db := testutil.NewTestDB(t)
	published := testutil.Status(domain.StatusPublished)
	f := testutil.NewBuilder(t, db.Store()).
		WithSchema("order_in", domain.RoleIncoming, "order_in", published,
			testutil.Scalar("order_no", domain.ScalarString),
			testutil.Scalar("net", domain.ScalarDecimal)).
		WithSchema("order", domain.RoleMaster, "order", published,
			testutil.Required("order_id", domain.ScalarString),
			testutil.Scalar("gross_total", domain.ScalarDecimal)).
		WithTransformation("order_graph", "order_in", "order", domain.ModeAdvanced,
			testutil.SpecStatus(domain.StatusPublished),
			testutil.Node("src", domain.NodeSource, `{"path":"$"}`),
			testutil.Node("vat", domain.NodeConstant, `{"value":1.2}`),
			testutil.Node("total", domain.NodeExpression, `{"expr":"amount * rate"}`),
			testutil.Edge("vat", "total", "rate", 1),
			testutil.Edge("src", "total", "amount", 0),
			testutil.Binding("gross_total", "total"),
			testutil.Binding("order_id", "src")).
		Build()
	return db.Store(), f
}

func TestCompile_AdvancedGraph(t *testing.T) {
	store, f := publishedOrderGraph(t)
	c := New(Config{})

	plan, err := c.Compile(context.Background(), store, f.TransformationID("order_graph"))
	require.NoError(t, err)

	require.Equal(t, f.TransformationID("order_graph"), plan.ID)
	require.Equal(t, 1, plan.Version)
	require.Equal(t, testutil.Tenant, plan.TenantID)
	require.Equal(t, f.SchemaID("order_in"), plan.SourceSchemaID)
	require.Equal(t, f.SchemaID("order"), plan.TargetSchemaID)
	require.Equal(t, domain.ModeAdvanced, plan.Mode)
	require.Equal(t, domain.OneToOne, plan.Cardinality)
	require.Empty(t, plan.SimpleRules)

	require.Len(t, plan.GraphNodes, 3)
	require.Equal(t, CompiledGraphNode{NodeType: domain.NodeConstant, Config: `{"value":1.2}`}, plan.GraphNodes["vat"])

	require.Equal(t, []CompiledGraphEdge{
		{FromNodeKey: "src", ToNodeKey: "total", InputName: "amount", Order: 0},
		{FromNodeKey: "vat", ToNodeKey: "total", InputName: "rate", Order: 1},
	}, plan.GraphEdges)

	require.Equal(t, []CompiledOutputBinding{
		{TargetPath: "gross_total", FromNodeKey: "total"},
		{TargetPath: "order_id", FromNodeKey: "src"},
	}, plan.OutputBindings)

	require.Equal(t, []string{"src", "vat", "total"}, plan.ExecutionOrder)
}

func TestCompile_SimpleRulesAndReferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.NewBuilder(t, db.Store()).WithCustomerCatalog().Build()
	ctx := context.Background()

	spec := f.Transformations["customer_map"]
	require.NoError(t, spec.MarkPublished("alice", time.Now()))
	require.NoError(t, db.Store().Transformations().Save(ctx, spec))

	plan, err := New(Config{}).Compile(ctx, db.Store(), spec.ID())
	require.NoError(t, err)

	require.Equal(t, domain.ModeSimple, plan.Mode)
	require.Nil(t, plan.GraphNodes)
	require.Empty(t, plan.ExecutionOrder)
	require.Equal(t, []CompiledSimpleRule{
		{SourcePath: "customer_id", TargetPath: "id", Order: 0},
		{SourcePath: "full_name", TargetPath: "name", Order: 1},
	}, plan.SimpleRules)
	require.Equal(t, []CompiledReference{{
		SourceFieldPath:           "addr",
		TargetFieldPath:           "address",
		ChildTransformationSpecID: f.TransformationID("address_map"),
		ElementScoped:             true,
	}}, plan.References)
}

func TestCompileRules_SortsByOrderStably(t *testing.T) {
	rules := compileRules([]domain.SimpleTransformRule{
		{ID: "r1", SourcePath: "c", TargetPath: "c", Order: 2},
		{ID: "r2", SourcePath: "a", TargetPath: "a", Order: 0},
		{ID: "r3", SourcePath: "b", TargetPath: "b", Order: 2},
	})
	require.Equal(t, []string{"a", "c", "b"}, []string{rules[0].SourcePath, rules[1].SourcePath, rules[2].SourcePath})
}

func TestCompile_RequiresPublished(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := testutil.NewBuilder(t, db.Store()).WithOrderGraph().Build()

	_, err := New(Config{}).Compile(context.Background(), db.Store(), f.TransformationID("order_graph"))
	require.ErrorIs(t, err, domain.ErrNotPublished)

	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, domain.StatusDraft, statusErr.Status)
}

func TestCompile_UnknownSpec(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := New(Config{}).Compile(context.Background(), db.Store(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompile_CycleIsRejected(t *testing.T) {
	spec, err := domain.NewTransformationSpec(testutil.Tenant, "s", "t", domain.ModeAdvanced, domain.OneToOne, 1, "")
	require.NoError(t, err)
	a, err := spec.AddGraphNode("a", domain.NodeMap, "", "")
	require.NoError(t, err)
	b, err := spec.AddGraphNode("b", domain.NodeMap, "", "")
	require.NoError(t, err)
	_, err = spec.AddGraphEdge(a.ID, b.ID, "in", 0)
	require.NoError(t, err)
	_, err = spec.AddGraphEdge(b.ID, a.ID, "in", 0)
	require.NoError(t, err)

	_, err = compileSpec(context.Background(), spec)
	require.ErrorIs(t, err, domain.ErrInvalidReference)
	require.ErrorContains(t, err, "cycle")
}

func TestCompile_CachesPerVersion(t *testing.T) {
	store, f := publishedOrderGraph(t)
	cache := cachemanager.NewInMemoryCacheManager[string, *CompiledTransformationSpec]("test", time.Minute, time.Minute)
	c := New(Config{}, WithCache(cache))
	ctx := context.Background()
	id := f.TransformationID("order_graph")

	first, err := c.Compile(ctx, store, id)
	require.NoError(t, err)
	second, err := c.Compile(ctx, store, id)
	require.NoError(t, err)
	require.Same(t, first, second, "second call served from cache")
	require.Equal(t, cachemanager.Stats{Hits: 1, Misses: 1, Items: 1}, cache.Stats())
	stats, ok := c.CacheStats()
	require.True(t, ok)
	require.Equal(t, cache.Stats(), stats)

	require.NoError(t, c.Evict(ctx, id, 1))
	third, err := c.Compile(ctx, store, id)
	require.NoError(t, err)
	require.NotSame(t, first, third)
	require.Equal(t, first, third)
}

func TestCompile_DisableCacheSkipsCache(t *testing.T) {
	store, f := publishedOrderGraph(t)
	cache := mocks.NewMockCacheManager[string, *CompiledTransformationSpec](t)
	c := New(Config{DisableCache: true}, WithCache(cache))

	_, err := c.Compile(context.Background(), store, f.TransformationID("order_graph"))
	require.NoError(t, err)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "GetWithRefresh", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompile_RecordsSpan(t *testing.T) {
	store, f := publishedOrderGraph(t)
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	c := New(Config{}, WithTracer(provider.Tracer("test")))
	ctx := context.Background()

	_, err := c.Compile(ctx, store, f.TransformationID("order_graph"))
	require.NoError(t, err)
	_, err = c.Compile(ctx, store, f.TransformationID("order_graph"))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, tracing.SpanPrefixCompile+"transformation", spans[0].Name)
	require.Contains(t, spans[0].Attributes, attribute.Bool(tracing.AttrCacheHit, false))
	require.Equal(t, tracing.EventCacheMiss, spans[0].Events[0].Name)
	require.Contains(t, spans[1].Attributes, attribute.Bool(tracing.AttrCacheHit, true))
	require.Empty(t, spans[1].Events)
}

func TestCompiledSpec_Serialization(t *testing.T) {
	store, f := publishedOrderGraph(t)
	plan, err := New(Config{}).Compile(context.Background(), store, f.TransformationID("order_graph"))
	require.NoError(t, err)

	raw, err := json.Marshal(plan)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"executionOrder":["src","vat","total"]`)
	require.Contains(t, string(raw), `"fromNodeKey":"total"`)
	require.NotContains(t, string(raw), "simpleRules")

	out, err := yaml.Marshal(plan)
	require.NoError(t, err)
	require.Contains(t, string(out), "sourceSchemaId: "+f.SchemaID("order_in"))
}
