// Package validator checks catalog entities against the rules that span
// more than one aggregate: referenced schemas and specs, path resolution
// through element schemas, and graph shape.
//
// Structural checks always run. With forPublish set, every referenced
// schema or child spec must additionally be Published. Findings accumulate
// into a Result; only infrastructure failures are returned as errors.
package validator

import (
	"context"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/log"
)

// Validator is consulted before every Draft -> Published transition and by
// the validate command.
type Validator interface {
	ValidateSchema(ctx context.Context, store domain.Store, id string, forPublish bool) (Result, error)
	ValidateTransformation(ctx context.Context, store domain.Store, id string, forPublish bool) (Result, error)
	ValidateValidationSpec(ctx context.Context, store domain.Store, id string, forPublish bool) (Result, error)
}

// Result is the outcome of one validation run.
type Result struct {
	Valid  bool           `json:"valid" yaml:"valid"`
	Errors []domain.Issue `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Err returns nil for a valid result and a *domain.ValidationError otherwise.
func (r Result) Err(kind domain.EntityKind, id string) error {
	if r.Valid {
		return nil
	}
	return &domain.ValidationError{Kind: kind, ID: id, Issues: r.Errors}
}

// Engine is the store-backed Validator.
type Engine struct{}

// New returns a validation engine.
func New() *Engine {
	return &Engine{}
}

var _ Validator = (*Engine)(nil)

// run collects issues for a single validation and caches schema loads.
type run struct {
	ctx        context.Context
	store      domain.Store
	forPublish bool
	issues     []domain.Issue
	schemas    map[string]*domain.DataSchema
}

func newRun(ctx context.Context, store domain.Store, forPublish bool) *run {
	return &run{ctx: ctx, store: store, forPublish: forPublish, schemas: make(map[string]*domain.DataSchema)}
}

func (r *run) addf(field, format string, args ...any) {
	r.issues = append(r.issues, domain.Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *run) result(kind domain.EntityKind, id string) Result {
	res := Result{Valid: len(r.issues) == 0, Errors: r.issues}
	if !res.Valid {
		log.Debug(log.CatValidate, "Validation found issues", "kind", string(kind), "id", id,
			"issues", len(r.issues), "for_publish", r.forPublish)
	}
	return res
}

// schema loads a schema once per run. Missing schemas yield (nil, nil).
func (r *run) schema(id string) (*domain.DataSchema, error) {
	if s, ok := r.schemas[id]; ok {
		return s, nil
	}
	s, err := r.store.Schemas().Get(r.ctx, id)
	if domain.IsNotFound(err) {
		r.schemas[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.schemas[id] = s
	return s, nil
}

// checkStatus records an issue when a referenced entity is Archived, or
// not Published in publish-strict mode.
func (r *run) checkStatus(field string, kind domain.EntityKind, id string, status domain.Status) {
	switch {
	case status == domain.StatusArchived:
		r.addf(field, "%s %s is Archived", kind, id)
	case r.forPublish && status != domain.StatusPublished:
		r.addf(field, "%s %s must be Published, is %s", kind, id, status)
	}
}

// referencedSchema loads a schema named by field and checks its status.
func (r *run) referencedSchema(field, id string) (*domain.DataSchema, error) {
	s, err := r.schema(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		r.addf(field, "schema %s does not exist", id)
		return nil, nil
	}
	r.checkStatus(field, domain.KindSchema, id, s.Status())
	return s, nil
}
