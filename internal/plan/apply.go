package plan

import (
	"context"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/log"
	"github.com/zjrosen/specforge/internal/tracing"
)

// Executor runs one catalog command. *dispatcher.Dispatcher satisfies it.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (*command.CommandResult, error)
}

// Entity is one entity an apply created or reused.
type Entity struct {
	Kind      domain.EntityKind
	Ref       string
	ID        string
	Published bool
}

// Result summarises an apply.
type Result struct {
	// TraceID correlates every command of the apply.
	TraceID  string
	Entities []Entity
	// Commands counts the commands executed, including failed ones.
	Commands int
}

// ID returns the id bound to a ref name (without the leading "$").
func (r *Result) ID(ref string) string {
	for _, e := range r.Entities {
		if e.Ref == ref {
			return e.ID
		}
	}
	return ""
}

// Applier turns plans into commands and executes them in order.
type Applier struct {
	executor Executor
	source   command.CommandSource
}

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithSource sets the source recorded on every command.
func WithSource(source command.CommandSource) ApplierOption {
	return func(a *Applier) {
		a.source = source
	}
}

// NewApplier creates an Applier over exec.
func NewApplier(exec Executor, opts ...ApplierOption) *Applier {
	a := &Applier{executor: exec, source: command.SourcePlan}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply executes p. Every schema, transformation and validation in the plan
// becomes a new Draft version, published when the plan says so; data models
// are matched by key. The first failing command stops the apply; entities
// created before it remain, and the partial Result is returned with the error.
func (a *Applier) Apply(ctx context.Context, p *Plan) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	run := &applyRun{
		Applier: a,
		plan:    p,
		refs:    make(map[string]string),
		result:  &Result{TraceID: tracing.TraceIDFromContext(ctx)},
	}
	if run.result.TraceID == "" {
		run.result.TraceID = tracing.GenerateTraceID()
		ctx = tracing.ContextWithTraceID(ctx, run.result.TraceID)
	}
	log.Info(log.CatPlan, "Applying plan", "tenant", p.Tenant, "trace_id", run.result.TraceID,
		"schemas", len(p.Schemas), "transformations", len(p.Transformations), "validations", len(p.Validations))

	for i := range p.DataModels {
		if err := run.dataModel(ctx, &p.DataModels[i]); err != nil {
			return run.result, fmt.Errorf("data_models[%d]: %w", i, err)
		}
	}
	for i := range p.Schemas {
		if err := run.schema(ctx, &p.Schemas[i]); err != nil {
			return run.result, fmt.Errorf("schemas[%d] %s: %w", i, p.Schemas[i].Key, err)
		}
	}
	for i := range p.Transformations {
		if err := run.transformation(ctx, &p.Transformations[i]); err != nil {
			return run.result, fmt.Errorf("transformations[%d]: %w", i, err)
		}
	}
	for i := range p.Validations {
		if err := run.validation(ctx, &p.Validations[i]); err != nil {
			return run.result, fmt.Errorf("validations[%d]: %w", i, err)
		}
	}

	log.Info(log.CatPlan, "Applied plan", "trace_id", run.result.TraceID,
		"entities", len(run.result.Entities), "commands", run.result.Commands)
	return run.result, nil
}

type applyRun struct {
	*Applier
	plan   *Plan
	refs   map[string]string // "$name" -> id
	result *Result
}

type traceable interface {
	SetTraceID(string)
}

func (r *applyRun) exec(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	if t, ok := cmd.(traceable); ok {
		t.SetTraceID(r.result.TraceID)
	}
	r.result.Commands++
	res, err := r.executor.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error != nil {
			return nil, res.Error
		}
		return nil, fmt.Errorf("%s failed", cmd.Type())
	}
	return res, nil
}

// create runs a create command and returns the new id.
func (r *applyRun) create(ctx context.Context, cmd command.Command) (string, error) {
	res, err := r.exec(ctx, cmd)
	if err != nil {
		return "", err
	}
	id, ok := res.Data.(string)
	if !ok {
		return "", fmt.Errorf("%s returned %T, want an id", cmd.Type(), res.Data)
	}
	return id, nil
}

// resolve maps "$ref" to its id; other values are literal ids.
func (r *applyRun) resolve(value string) string {
	if IsRef(value) {
		return r.refs[value]
	}
	return value
}

func (r *applyRun) bind(kind domain.EntityKind, ref, id string, published bool) {
	if ref != "" {
		r.refs["$"+ref] = id
	}
	r.result.Entities = append(r.result.Entities, Entity{Kind: kind, Ref: ref, ID: id, Published: published})
}

func (r *applyRun) dataModel(ctx context.Context, dm *DataModel) error {
	res, err := r.exec(ctx, command.NewFindDataModelCommand(r.source, r.plan.Tenant, dm.Key))
	switch {
	case err == nil:
		existing := res.Data.(*domain.DataModel)
		if existing.Name() != dm.Name || existing.Description() != dm.Description {
			name, desc := dm.Name, dm.Description
			if _, err := r.exec(ctx, command.NewUpdateDataModelCommand(r.source, existing.ID(), &name, &desc)); err != nil {
				return err
			}
		}
		r.bind(domain.KindDataModel, dm.Ref, existing.ID(), false)
		return nil
	case domain.IsNotFound(err):
		id, err := r.create(ctx, command.NewCreateDataModelCommand(r.source, r.plan.Tenant, dm.Key, dm.Name, dm.Description))
		if err != nil {
			return err
		}
		r.bind(domain.KindDataModel, dm.Ref, id, false)
		return nil
	default:
		return err
	}
}

func (r *applyRun) schema(ctx context.Context, s *Schema) error {
	create := command.NewCreateSchemaCommand(r.source, r.plan.Tenant, s.Role, s.Key)
	create.DataModelID = r.resolve(s.DataModel)
	create.Description = s.Description
	id, err := r.create(ctx, create)
	if err != nil {
		return err
	}

	for _, f := range s.Fields {
		add := command.NewAddFieldCommand(r.source, id, f.Path, f.Type)
		add.ScalarType = f.Scalar
		add.Required = f.Required
		add.Description = f.Description
		if f.Element == SelfRef {
			add.ElementSchemaID = id
		} else {
			add.ElementSchemaID = r.resolve(f.Element)
		}
		if _, err := r.create(ctx, add); err != nil {
			return fmt.Errorf("field %s: %w", f.Path, err)
		}
	}

	for _, k := range s.Keys {
		keyID, err := r.create(ctx, command.NewAddKeyDefinitionCommand(r.source, id, k.Name, k.Primary))
		if err != nil {
			return fmt.Errorf("key %s: %w", k.Name, err)
		}
		for order, path := range k.Fields {
			if _, err := r.create(ctx, command.NewAddKeyFieldCommand(r.source, keyID, path, order)); err != nil {
				return fmt.Errorf("key %s field %s: %w", k.Name, path, err)
			}
		}
	}

	for _, tag := range s.Tags {
		if _, err := r.exec(ctx, command.NewAddSchemaTagCommand(r.source, id, tag)); err != nil {
			return fmt.Errorf("tag %s: %w", tag, err)
		}
	}

	if s.Publish {
		if _, err := r.exec(ctx, command.NewPublishSchemaCommand(r.source, id, r.plan.Publisher())); err != nil {
			return err
		}
	}
	r.bind(domain.KindSchema, s.Ref, id, s.Publish)
	return nil
}

func (r *applyRun) transformation(ctx context.Context, t *Transformation) error {
	cardinality := t.Cardinality
	if cardinality == "" {
		cardinality = domain.OneToOne
	}
	create := command.NewCreateTransformationCommand(r.source, r.plan.Tenant,
		r.resolve(t.Source), r.resolve(t.Target), t.Mode, cardinality)
	create.Description = t.Description
	id, err := r.create(ctx, create)
	if err != nil {
		return err
	}

	for _, rule := range t.Rules {
		add := command.NewAddSimpleRuleCommand(r.source, id, rule.Source, rule.Target)
		add.ConverterID = rule.Converter
		add.Required = rule.Required
		add.Order = rule.Order
		if _, err := r.create(ctx, add); err != nil {
			return fmt.Errorf("rule %s -> %s: %w", rule.Source, rule.Target, err)
		}
	}

	nodeIDs := make(map[string]string, len(t.Nodes))
	for _, n := range t.Nodes {
		add := command.NewAddGraphNodeCommand(r.source, id, n.Key, n.Type)
		add.OutputType = n.OutputType
		add.Config = n.Config
		nodeID, err := r.create(ctx, add)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.Key, err)
		}
		nodeIDs[n.Key] = nodeID
	}
	for _, e := range t.Edges {
		if _, err := r.create(ctx, command.NewAddGraphEdgeCommand(r.source, id, nodeIDs[e.From], nodeIDs[e.To], e.Input, e.Order)); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	for _, b := range t.Bindings {
		if _, err := r.create(ctx, command.NewAddOutputBindingCommand(r.source, id, b.Target, nodeIDs[b.From])); err != nil {
			return fmt.Errorf("binding %s: %w", b.Target, err)
		}
	}

	for _, ref := range t.References {
		add := command.NewAddTransformReferenceCommand(r.source, id, ref.Source, ref.Target, r.resolve(ref.Child))
		if _, err := r.create(ctx, add); err != nil {
			return fmt.Errorf("reference %s -> %s: %w", ref.Source, ref.Target, err)
		}
	}

	if t.Publish {
		if _, err := r.exec(ctx, command.NewPublishTransformationCommand(r.source, id, r.plan.Publisher())); err != nil {
			return err
		}
	}
	r.bind(domain.KindTransformation, t.Ref, id, t.Publish)
	return nil
}

func (r *applyRun) validation(ctx context.Context, v *Validation) error {
	id, err := r.create(ctx, command.NewCreateValidationCommand(r.source, r.plan.Tenant, r.resolve(v.Schema), v.Description))
	if err != nil {
		return err
	}

	for _, rule := range v.Rules {
		if _, err := r.create(ctx, command.NewAddValidationRuleCommand(r.source, id, rule.Type, rule.Severity, rule.Parameters)); err != nil {
			return fmt.Errorf("rule %s: %w", rule.Type, err)
		}
	}
	for _, ref := range v.References {
		if _, err := r.create(ctx, command.NewAddValidationReferenceCommand(r.source, id, ref.Field, r.resolve(ref.Child))); err != nil {
			return fmt.Errorf("reference %s: %w", ref.Field, err)
		}
	}

	if v.Publish {
		if _, err := r.exec(ctx, command.NewPublishValidationCommand(r.source, id, r.plan.Publisher())); err != nil {
			return err
		}
	}
	r.bind(domain.KindValidation, v.Ref, id, v.Publish)
	return nil
}
