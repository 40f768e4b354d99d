// Package compiler projects a Published transformation spec into a
// key-addressed plan: graph nodes are addressed by their spec-unique keys
// instead of row ids, rules and edges are ordered, and the node execution
// order is precomputed. Plans are cached per (spec id, version); Published
// versions never change, so a cached plan stays valid until evicted.
package compiler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/specforge/internal/cachemanager"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/log"
	"github.com/zjrosen/specforge/internal/tracing"
)

// DefaultCacheTTL is how long a compiled plan stays cached when no TTL is configured.
const DefaultCacheTTL = 10 * time.Minute

// CompiledTransformationSpec is the executable form of a Published spec.
// Values returned by Compile are shared with the cache and must not be modified.
type CompiledTransformationSpec struct {
	ID             string                       `json:"id" yaml:"id"`
	Version        int                          `json:"version" yaml:"version"`
	TenantID       string                       `json:"tenantId" yaml:"tenantId"`
	SourceSchemaID string                       `json:"sourceSchemaId" yaml:"sourceSchemaId"`
	TargetSchemaID string                       `json:"targetSchemaId" yaml:"targetSchemaId"`
	Mode           domain.TransformMode         `json:"mode" yaml:"mode"`
	Cardinality    domain.Cardinality           `json:"cardinality" yaml:"cardinality"`
	SimpleRules    []CompiledSimpleRule         `json:"simpleRules,omitempty" yaml:"simpleRules,omitempty"`
	GraphNodes     map[string]CompiledGraphNode `json:"graphNodes,omitempty" yaml:"graphNodes,omitempty"`
	GraphEdges     []CompiledGraphEdge          `json:"graphEdges,omitempty" yaml:"graphEdges,omitempty"`
	OutputBindings []CompiledOutputBinding      `json:"outputBindings,omitempty" yaml:"outputBindings,omitempty"`
	References     []CompiledReference          `json:"references,omitempty" yaml:"references,omitempty"`
	ExecutionOrder []string                     `json:"executionOrder,omitempty" yaml:"executionOrder,omitempty"`
}

// CompiledSimpleRule is one flat copy rule.
type CompiledSimpleRule struct {
	SourcePath  string `json:"sourcePath" yaml:"sourcePath"`
	TargetPath  string `json:"targetPath" yaml:"targetPath"`
	ConverterID string `json:"converterId,omitempty" yaml:"converterId,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
	Order       int    `json:"order" yaml:"order"`
}

// CompiledGraphNode is a node addressed by its key in GraphNodes.
type CompiledGraphNode struct {
	NodeType   domain.NodeType `json:"nodeType" yaml:"nodeType"`
	OutputType string          `json:"outputType,omitempty" yaml:"outputType,omitempty"`
	Config     string          `json:"config,omitempty" yaml:"config,omitempty"`
}

// CompiledGraphEdge connects two node keys.
type CompiledGraphEdge struct {
	FromNodeKey string `json:"fromNodeKey" yaml:"fromNodeKey"`
	ToNodeKey   string `json:"toNodeKey" yaml:"toNodeKey"`
	InputName   string `json:"inputName" yaml:"inputName"`
	Order       int    `json:"order" yaml:"order"`
}

// CompiledOutputBinding writes a node's output to a target path.
type CompiledOutputBinding struct {
	TargetPath  string `json:"targetPath" yaml:"targetPath"`
	FromNodeKey string `json:"fromNodeKey" yaml:"fromNodeKey"`
}

// CompiledReference delegates a structured field pair to a child spec.
// ElementScoped is always true: the child runs once per element.
type CompiledReference struct {
	SourceFieldPath           string `json:"sourceFieldPath" yaml:"sourceFieldPath"`
	TargetFieldPath           string `json:"targetFieldPath" yaml:"targetFieldPath"`
	ChildTransformationSpecID string `json:"childTransformationSpecId" yaml:"childTransformationSpecId"`
	ElementScoped             bool   `json:"elementScoped" yaml:"elementScoped"`
}

// Config configures a Compiler.
type Config struct {
	CacheTTL        time.Duration
	CleanupInterval time.Duration
	DisableCache    bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithTracer records one span per compilation.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Compiler) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithCache replaces the in-memory plan cache.
func WithCache(cache cachemanager.CacheManager[string, *CompiledTransformationSpec]) Option {
	return func(c *Compiler) {
		c.cache = cache
	}
}

// Compiler turns Published transformation specs into plans.
type Compiler struct {
	cfg    Config
	cache  cachemanager.CacheManager[string, *CompiledTransformationSpec]
	plans  *cachemanager.ReadThroughCache[string, *CompiledTransformationSpec, *compileRequest]
	tracer trace.Tracer
}

// New creates a Compiler backed by an in-memory cache unless WithCache is given.
func New(cfg Config, opts ...Option) *Compiler {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * cfg.CacheTTL
	}
	c := &Compiler{
		cfg:    cfg,
		tracer: noop.NewTracerProvider().Tracer("compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cachemanager.NewInMemoryCacheManager[string, *CompiledTransformationSpec]("compiled_plans",
			cfg.CacheTTL, cfg.CleanupInterval)
	}
	c.plans = cachemanager.NewReadThroughCache(c.cache, compileRequested, cfg.DisableCache)
	return c
}

// Compile loads specID from store and returns its plan. The spec must be
// Published; other statuses fail with a StatusError wrapping ErrNotPublished.
func (c *Compiler) Compile(ctx context.Context, store domain.Store, specID string) (*CompiledTransformationSpec, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixCompile+"transformation",
		trace.WithAttributes(attribute.String(tracing.AttrSpecID, specID)))
	defer span.End()

	plan, err := c.compile(ctx, store, specID, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return plan, nil
}

func (c *Compiler) compile(ctx context.Context, store domain.Store, specID string, span trace.Span) (*CompiledTransformationSpec, error) {
	spec, err := store.Transformations().Get(ctx, specID)
	if err != nil {
		return nil, err
	}
	if spec.Status() != domain.StatusPublished {
		return nil, &domain.StatusError{
			Kind:   domain.KindTransformation,
			ID:     specID,
			Op:     "compile",
			Status: spec.Status(),
			Want:   domain.StatusPublished,
		}
	}
	span.SetAttributes(
		attribute.Int(tracing.AttrSpecVersion, spec.Version()),
		attribute.String(tracing.AttrSpecMode, string(spec.Mode())),
	)

	req := &compileRequest{spec: spec}
	plan, err := c.plans.GetWithRefresh(ctx, CacheKey(spec.ID(), spec.Version()), req, c.cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, !req.compiled))
	if req.compiled {
		span.AddEvent(tracing.EventCacheMiss)
		log.Debug(log.CatCompile, "Compiled transformation", "id", spec.ID(), "version", spec.Version(),
			"mode", string(spec.Mode()))
	}
	return plan, nil
}

// compileRequest is the read-through input; compiled is set when the
// cache missed and the plan was built.
type compileRequest struct {
	spec     *domain.TransformationSpec
	compiled bool
}

func compileRequested(ctx context.Context, req *compileRequest) (*CompiledTransformationSpec, error) {
	req.compiled = true
	return compileSpec(ctx, req.spec)
}

// CacheStats reports the plan cache counters when the cache keeps them.
func (c *Compiler) CacheStats() (cachemanager.Stats, bool) {
	s, ok := c.cache.(interface{ Stats() cachemanager.Stats })
	if !ok {
		return cachemanager.Stats{}, false
	}
	return s.Stats(), true
}

// Evict drops the cached plans of the given spec versions.
func (c *Compiler) Evict(ctx context.Context, specID string, versions ...int) error {
	keys := make([]string, len(versions))
	for i, v := range versions {
		keys[i] = CacheKey(specID, v)
	}
	return c.plans.Invalidate(ctx, keys...)
}

// CacheKey is the cache key of one spec version.
func CacheKey(specID string, version int) string {
	return fmt.Sprintf("%s@%d", specID, version)
}

// compileSpec builds the plan for a loaded spec.
func compileSpec(_ context.Context, spec *domain.TransformationSpec) (*CompiledTransformationSpec, error) {
	plan := &CompiledTransformationSpec{
		ID:             spec.ID(),
		Version:        spec.Version(),
		TenantID:       spec.TenantID(),
		SourceSchemaID: spec.SourceSchemaID(),
		TargetSchemaID: spec.TargetSchemaID(),
		Mode:           spec.Mode(),
		Cardinality:    spec.Cardinality(),
	}

	switch body := spec.Body().(type) {
	case *domain.SimpleBody:
		plan.SimpleRules = compileRules(body.Rules)
	case *domain.AdvancedBody:
		if err := compileGraph(spec.ID(), body, plan); err != nil {
			return nil, err
		}
	default:
		return nil, domain.InvalidArgument("transformation spec %s has no body", spec.ID())
	}

	for _, ref := range spec.References() {
		plan.References = append(plan.References, CompiledReference{
			SourceFieldPath:           ref.SourceFieldPath,
			TargetFieldPath:           ref.TargetFieldPath,
			ChildTransformationSpecID: ref.ChildTransformationSpecID,
			ElementScoped:             true,
		})
	}
	return plan, nil
}

func compileRules(rules []domain.SimpleTransformRule) []CompiledSimpleRule {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b domain.SimpleTransformRule) int {
		return a.Order - b.Order
	})
	out := make([]CompiledSimpleRule, len(sorted))
	for i, r := range sorted {
		out[i] = CompiledSimpleRule{
			SourcePath:  r.SourcePath,
			TargetPath:  r.TargetPath,
			ConverterID: r.ConverterID,
			Required:    r.Required,
			Order:       r.Order,
		}
	}
	return out
}

func compileGraph(specID string, body *domain.AdvancedBody, plan *CompiledTransformationSpec) error {
	keyOf := make(map[string]string, len(body.Nodes))
	plan.GraphNodes = make(map[string]CompiledGraphNode, len(body.Nodes))
	for _, n := range body.Nodes {
		keyOf[n.ID] = n.Key
		plan.GraphNodes[n.Key] = CompiledGraphNode{
			NodeType:   n.NodeType,
			OutputType: n.OutputType,
			Config:     n.Config,
		}
	}
	resolve := func(nodeID, role string) (string, error) {
		key, ok := keyOf[nodeID]
		if !ok {
			return "", domain.InvalidReference("spec %s: %s node %s is not part of the graph", specID, role, nodeID)
		}
		return key, nil
	}

	for _, e := range body.Edges {
		from, err := resolve(e.FromNodeID, "edge source")
		if err != nil {
			return err
		}
		to, err := resolve(e.ToNodeID, "edge target")
		if err != nil {
			return err
		}
		plan.GraphEdges = append(plan.GraphEdges, CompiledGraphEdge{
			FromNodeKey: from,
			ToNodeKey:   to,
			InputName:   e.InputName,
			Order:       e.Order,
		})
	}
	slices.SortStableFunc(plan.GraphEdges, func(a, b CompiledGraphEdge) int {
		return a.Order - b.Order
	})

	for _, b := range body.Bindings {
		from, err := resolve(b.FromNodeID, "binding source")
		if err != nil {
			return err
		}
		plan.OutputBindings = append(plan.OutputBindings, CompiledOutputBinding{
			TargetPath:  b.TargetPath,
			FromNodeKey: from,
		})
	}

	order, ok := body.ExecutionOrder()
	if !ok {
		return domain.InvalidReference("spec %s: graph has a cycle through %v", specID, body.FindCycle())
	}
	plan.ExecutionOrder = make([]string, len(order))
	for i, n := range order {
		plan.ExecutionOrder[i] = n.Key
	}
	return nil
}
