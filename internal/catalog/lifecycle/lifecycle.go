// Package lifecycle moves versioned catalog entities through
// Draft -> Published -> Archived.
//
// A publish validates the target in publish-strict mode, archives every
// Published sibling in its version group and then publishes the target,
// all against the one Store the caller's transaction is bound to. Siblings
// are saved before the target so the single-Published unique index never
// sees two Published rows.
package lifecycle

import (
	"context"
	"time"

	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/validator"
	"github.com/zjrosen/specforge/internal/log"
)

// Transition describes one committed-or-pending publish.
type Transition struct {
	Kind        domain.EntityKind
	ID          string
	Version     int
	PublishedBy string
	PublishedAt time.Time
	ArchivedIDs []string
}

// Events returns the domain events announcing the transition.
func (t Transition) Events() []any {
	events := make([]any, 0, len(t.ArchivedIDs)+1)
	for _, id := range t.ArchivedIDs {
		events = append(events, domain.VersionArchived{Kind: t.Kind, ID: id, SupersededBy: t.ID})
	}
	return append(events, domain.VersionPublished{
		Kind:        t.Kind,
		ID:          t.ID,
		Version:     t.Version,
		PublishedBy: t.PublishedBy,
		ArchivedIDs: t.ArchivedIDs,
	})
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the publish timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager applies lifecycle transitions.
type Manager struct {
	validator validator.Validator
	now       func() time.Time
}

// New creates a Manager consulting v before every publish.
func New(v validator.Validator, opts ...Option) *Manager {
	m := &Manager{validator: v, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// versionedEntity is the lifecycle surface shared by the three aggregates.
type versionedEntity interface {
	ID() string
	Version() int
	Status() domain.Status
	MarkPublished(by string, at time.Time) error
	MarkArchived(at time.Time) error
}

// NextSchemaVersion returns the version a new schema in g receives.
func NextSchemaVersion(ctx context.Context, store domain.Store, g domain.SchemaGroup) (int, error) {
	maxVersion, err := store.Schemas().MaxVersion(ctx, g)
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// NextTransformationVersion returns the version a new spec in g receives.
func NextTransformationVersion(ctx context.Context, store domain.Store, g domain.TransformationGroup) (int, error) {
	maxVersion, err := store.Transformations().MaxVersion(ctx, g)
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// NextValidationVersion returns the version a new validation spec over
// dataSchemaID receives.
func NextValidationVersion(ctx context.Context, store domain.Store, dataSchemaID string) (int, error) {
	maxVersion, err := store.Validations().MaxVersion(ctx, dataSchemaID)
	if err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// PublishSchema publishes a Draft schema and archives its Published siblings.
func (m *Manager) PublishSchema(ctx context.Context, store domain.Store, id, publishedBy string) (Transition, error) {
	repo := store.Schemas()
	s, err := repo.Get(ctx, id)
	if err != nil {
		return Transition{}, err
	}
	if err := requireDraft(domain.KindSchema, s); err != nil {
		return Transition{}, err
	}
	res, err := m.validator.ValidateSchema(ctx, store, id, true)
	if err != nil {
		return Transition{}, err
	}
	if err := res.Err(domain.KindSchema, id); err != nil {
		return Transition{}, err
	}
	siblings, err := repo.ListVersions(ctx, s.Group())
	if err != nil {
		return Transition{}, err
	}
	return supersede(ctx, m.now(), domain.KindSchema, s, siblings, publishedBy, repo.Save)
}

// PublishTransformation publishes a Draft transformation spec.
func (m *Manager) PublishTransformation(ctx context.Context, store domain.Store, id, publishedBy string) (Transition, error) {
	repo := store.Transformations()
	spec, err := repo.Get(ctx, id)
	if err != nil {
		return Transition{}, err
	}
	if err := requireDraft(domain.KindTransformation, spec); err != nil {
		return Transition{}, err
	}
	res, err := m.validator.ValidateTransformation(ctx, store, id, true)
	if err != nil {
		return Transition{}, err
	}
	if err := res.Err(domain.KindTransformation, id); err != nil {
		return Transition{}, err
	}
	siblings, err := repo.ListVersions(ctx, spec.Group())
	if err != nil {
		return Transition{}, err
	}
	return supersede(ctx, m.now(), domain.KindTransformation, spec, siblings, publishedBy, repo.Save)
}

// PublishValidation publishes a Draft validation spec.
func (m *Manager) PublishValidation(ctx context.Context, store domain.Store, id, publishedBy string) (Transition, error) {
	repo := store.Validations()
	spec, err := repo.Get(ctx, id)
	if err != nil {
		return Transition{}, err
	}
	if err := requireDraft(domain.KindValidation, spec); err != nil {
		return Transition{}, err
	}
	res, err := m.validator.ValidateValidationSpec(ctx, store, id, true)
	if err != nil {
		return Transition{}, err
	}
	if err := res.Err(domain.KindValidation, id); err != nil {
		return Transition{}, err
	}
	siblings, err := repo.ListVersions(ctx, spec.DataSchemaID())
	if err != nil {
		return Transition{}, err
	}
	return supersede(ctx, m.now(), domain.KindValidation, spec, siblings, publishedBy, repo.Save)
}

// PublishRelatedSchemas publishes ids in order, one transaction each. Ids
// that are no longer Draft are skipped. The first failure stops the run;
// the transitions committed before it are returned alongside the error.
// rootID must exist and is published only if it is listed.
func (m *Manager) PublishRelatedSchemas(ctx context.Context, uow domain.UnitOfWork, store domain.Store,
	rootID, publishedBy string, ids []string) ([]Transition, error) {
	if _, err := store.Schemas().Get(ctx, rootID); err != nil {
		return nil, err
	}

	var done []Transition
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		var (
			t       Transition
			skipped bool
		)
		err := uow.Do(ctx, func(ctx context.Context, tx domain.Store) error {
			s, err := tx.Schemas().Get(ctx, id)
			if err != nil {
				return err
			}
			if !s.IsDraft() {
				skipped = true
				return nil
			}
			t, err = m.PublishSchema(ctx, tx, id, publishedBy)
			return err
		})
		if err != nil {
			log.Warn(log.CatPublish, "Related publish stopped", "root", rootID, "id", id,
				"published", len(done), "error", err.Error())
			return done, err
		}
		if skipped {
			log.Debug(log.CatPublish, "Related publish skipped non-draft schema", "root", rootID, "id", id)
			continue
		}
		done = append(done, t)
	}
	return done, nil
}

func requireDraft(kind domain.EntityKind, e versionedEntity) error {
	if e.Status() != domain.StatusDraft {
		return &domain.StatusError{Kind: kind, ID: e.ID(), Op: "publish", Status: e.Status(), Want: domain.StatusDraft}
	}
	return nil
}

// supersede archives the Published siblings of target, then publishes it.
func supersede[E versionedEntity](ctx context.Context, at time.Time, kind domain.EntityKind, target E, siblings []E,
	publishedBy string, save func(context.Context, E) error) (Transition, error) {
	var archived []string
	for _, sib := range siblings {
		if sib.ID() == target.ID() || sib.Status() != domain.StatusPublished {
			continue
		}
		if err := sib.MarkArchived(at); err != nil {
			return Transition{}, err
		}
		if err := save(ctx, sib); err != nil {
			return Transition{}, err
		}
		archived = append(archived, sib.ID())
	}

	if err := target.MarkPublished(publishedBy, at); err != nil {
		return Transition{}, err
	}
	if err := save(ctx, target); err != nil {
		return Transition{}, err
	}

	log.Info(log.CatPublish, "Published version", "kind", string(kind), "id", target.ID(),
		"version", target.Version(), "published_by", publishedBy, "archived", len(archived))
	return Transition{
		Kind:        kind,
		ID:          target.ID(),
		Version:     target.Version(),
		PublishedBy: publishedBy,
		PublishedAt: at,
		ArchivedIDs: archived,
	}, nil
}
