package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a patient does not exist.
var ErrNotFound = errors.New("patient not found")

// SearchFilter narrows a patient search. Zero-valued fields are ignored.
type SearchFilter struct {
	Name          string
	Status        Status
	AdmissionDate *time.Time
}

// Repository is the persistence interface for patients.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Patient, int, error)

	// StartLabor flips status to in_progress and stamps labor_start, but only
	// if the current status is not_started. Returns true when the row changed.
	StartLabor(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// Complete flips status to completed and stamps labor_end, but only if
	// the current status is in_progress. Returns true when the row changed.
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
