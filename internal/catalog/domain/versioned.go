// Package domain holds the catalog's entities: data models, versioned data
// schemas, transformation specs and validation specs, plus the repository
// ports the storage layer implements.
//
// Aggregates keep their fields unexported. Child collections may only change
// while the owning aggregate is Draft; every mutator enforces that before
// touching state, so a rejected call leaves the aggregate unchanged.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh opaque entity identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidTransitions is the version lifecycle state machine. Published ->
// Archived only happens as a side effect of a sibling publish.
var ValidTransitions = map[Status][]Status{
	StatusDraft:     {StatusPublished},
	StatusPublished: {StatusArchived},
	StatusArchived:  {},
}

// IsValidTransition reports whether from -> to is allowed.
func IsValidTransition(from, to Status) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// VersionInfo is the persisted header shared by all versioned entities.
type VersionInfo struct {
	ID          string
	TenantID    string
	Version     int
	Status      Status
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	PublishedBy string
}

// versioned is embedded by DataSchema, TransformationSpec and ValidationSpec.
type versioned struct {
	kind EntityKind
	info VersionInfo
}

func newVersioned(kind EntityKind, tenantID string, version int, description string) versioned {
	now := time.Now()
	return versioned{
		kind: kind,
		info: VersionInfo{
			ID:          NewID(),
			TenantID:    tenantID,
			Version:     version,
			Status:      StatusDraft,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// ID returns the entity identifier.
func (v *versioned) ID() string { return v.info.ID }

// TenantID returns the owning tenant.
func (v *versioned) TenantID() string { return v.info.TenantID }

// Version returns the version number within the version group.
func (v *versioned) Version() int { return v.info.Version }

// Status returns the lifecycle state.
func (v *versioned) Status() Status { return v.info.Status }

// Description returns the free-text description.
func (v *versioned) Description() string { return v.info.Description }

// CreatedAt returns the creation time.
func (v *versioned) CreatedAt() time.Time { return v.info.CreatedAt }

// UpdatedAt returns the last modification time.
func (v *versioned) UpdatedAt() time.Time { return v.info.UpdatedAt }

// PublishedAt returns when the entity was published, or nil.
func (v *versioned) PublishedAt() *time.Time { return v.info.PublishedAt }

// PublishedBy returns who published the entity.
func (v *versioned) PublishedBy() string { return v.info.PublishedBy }

// Kind returns the entity kind used in errors.
func (v *versioned) Kind() EntityKind { return v.kind }

// Info returns a copy of the version header.
func (v *versioned) Info() VersionInfo {
	info := v.info
	if v.info.PublishedAt != nil {
		t := *v.info.PublishedAt
		info.PublishedAt = &t
	}
	return info
}

// IsDraft reports whether the entity can still be edited.
func (v *versioned) IsDraft() bool { return v.info.Status == StatusDraft }

// SetDescription replaces the description. Draft only.
func (v *versioned) SetDescription(description string) error {
	if err := v.requireDraft("update"); err != nil {
		return err
	}
	v.info.Description = description
	v.touch()
	return nil
}

// MarkPublished moves the entity Draft -> Published and stamps publication.
func (v *versioned) MarkPublished(by string, at time.Time) error {
	if !IsValidTransition(v.info.Status, StatusPublished) {
		return &StatusError{Kind: v.kind, ID: v.info.ID, Op: "publish", Status: v.info.Status, Want: StatusDraft}
	}
	v.info.Status = StatusPublished
	v.info.PublishedAt = &at
	v.info.PublishedBy = by
	v.info.UpdatedAt = at
	return nil
}

// MarkArchived moves the entity Published -> Archived.
func (v *versioned) MarkArchived(at time.Time) error {
	if !IsValidTransition(v.info.Status, StatusArchived) {
		return &StatusError{Kind: v.kind, ID: v.info.ID, Op: "archive", Status: v.info.Status, Want: StatusPublished}
	}
	v.info.Status = StatusArchived
	v.info.UpdatedAt = at
	return nil
}

func (v *versioned) requireDraft(op string) error {
	if v.info.Status != StatusDraft {
		return &StatusError{Kind: v.kind, ID: v.info.ID, Op: op, Status: v.info.Status, Want: StatusDraft}
	}
	return nil
}

func (v *versioned) touch() {
	v.info.UpdatedAt = time.Now()
}

// ValidatePath checks that a dotted field path is well formed: non-empty
// segments, no whitespace. A trailing "[]" on a segment marks array
// element traversal and is accepted.
func ValidatePath(path string) error {
	if path == "" {
		return InvalidArgument("path is required")
	}
	if strings.ContainsAny(path, " \t\r\n") {
		return InvalidArgument("path %q must not contain whitespace", path)
	}
	for _, seg := range strings.Split(path, ".") {
		name := strings.TrimSuffix(seg, "[]")
		if name == "" || strings.ContainsAny(name, "[]") {
			return InvalidArgument("path %q has an empty or malformed segment", path)
		}
	}
	return nil
}

// NormalizePath strips array element markers so "items[].sku" and
// "items.sku" address the same field.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "[]", "")
}

func requireID(kind EntityKind, id string) error {
	if strings.TrimSpace(id) == "" {
		return InvalidArgument("%s id is required", kind)
	}
	return nil
}
