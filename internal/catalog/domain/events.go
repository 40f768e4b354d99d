package domain

// ChangeType classifies an EntityChanged event.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// EntityChanged is emitted after a committed create, update or delete.
// ParentID is the owning aggregate for child entities.
type EntityChanged struct {
	Kind     EntityKind
	ID       string
	ParentID string
	Change   ChangeType
}

// VersionPublished is emitted after a committed Draft -> Published transition.
type VersionPublished struct {
	Kind        EntityKind
	ID          string
	Version     int
	PublishedBy string
	ArchivedIDs []string
}

// VersionArchived is emitted for every sibling a publish superseded.
type VersionArchived struct {
	Kind         EntityKind
	ID           string
	SupersededBy string
}
