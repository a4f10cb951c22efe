package domain

import "github.com/google/uuid"

// OwnerRef identifies who an ingestion run works for. TrackedItemID is nil
// for ad-hoc documents that are not linked to a tracked item; such runs
// persist chapters but schedule no reminders.
type OwnerRef struct {
	LearnerID     uuid.UUID
	TrackedItemID *uuid.UUID
}

// NewOwnerRef returns an OwnerRef linked to trackedItemID.
func NewOwnerRef(learnerID, trackedItemID uuid.UUID) OwnerRef {
	id := trackedItemID
	return OwnerRef{LearnerID: learnerID, TrackedItemID: &id}
}

// HasTrackedItem reports whether the owner is linked to a tracked item.
func (o OwnerRef) HasTrackedItem() bool {
	return o.TrackedItemID != nil && *o.TrackedItemID != uuid.Nil
}
