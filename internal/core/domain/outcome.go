package domain

// OutcomeKind classifies the result of a write.
type OutcomeKind int

const (
	// OutcomeCreated indicates no live revision existed before the write.
	OutcomeCreated OutcomeKind = iota

	// OutcomeUpdated indicates an existing revision was superseded.
	OutcomeUpdated
)

// String returns the outcome name.
func (k OutcomeKind) String() string {
	if k == OutcomeUpdated {
		return "updated"
	}
	return "created"
}

// UpsertOutcome is what a storage backend returns from a conditional write.
// Document carries the backend-assigned concurrency token.
type UpsertOutcome struct {
	Document *VersionedDocument
	Kind     OutcomeKind
}

// SaveOutcome is the committed resource returned to callers.
type SaveOutcome struct {
	Resource *Resource
	Kind     OutcomeKind
}
