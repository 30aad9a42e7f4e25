package partogram

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the per-patient summary the bulk timer query works from:
// the time of the latest measurement and the dilation reading of the
// latest dilation-bearing measurement. Both come from one batch query
// pass so the list view never issues per-patient lookups.
type Snapshot struct {
	LastEntryTime *time.Time
	LastDilation  *int
}

// Repository is the persistence interface for partogram measurements.
type Repository interface {
	Create(ctx context.Context, e *Entry) error

	// ListByPatient returns the patient's full measurement history,
	// newest first. Ties on time break by insertion order, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error)

	// ListPage returns one page of the history plus the total count.
	ListPage(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)

	// Delete removes one measurement scoped to its patient.
	Delete(ctx context.Context, patientID, entryID uuid.UUID) error

	// LatestSnapshots batch-loads timer snapshots for many patients.
	// Patients with no measurements are absent from the result map.
	LatestSnapshots(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]Snapshot, error)
}
