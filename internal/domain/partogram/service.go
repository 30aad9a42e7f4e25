package partogram

import (
	"context"

	"github.com/google/uuid"

	"github.com/iMprov00/PartogramDARV2/internal/domain/patient"
	"github.com/iMprov00/PartogramDARV2/internal/platform/db"
)

type Service struct {
	entries  Repository
	patients patient.Repository
	clock    Clock
	inTx     db.TxRunner

	// allowBackdated controls whether a measurement may carry a time
	// earlier than the latest one already recorded for the patient.
	allowBackdated bool
}

func NewService(entries Repository, patients patient.Repository, clock Clock, inTx db.TxRunner, allowBackdated bool) *Service {
	return &Service{
		entries:        entries,
		patients:       patients,
		clock:          clock,
		inTx:           inTx,
		allowBackdated: allowBackdated,
	}
}

// RecordEntry persists a measurement and drives the labor state machine:
// the first measurement for a not-started patient flips her to in_progress
// and stamps labor_start, atomically with the insert. It returns the
// freshly derived timer state.
func (s *Service) RecordEntry(ctx context.Context, patientID uuid.UUID, e *Entry) (*TimerState, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p.Status == patient.StatusCompleted {
		return nil, ErrLaborCompleted
	}

	if e.Time.IsZero() {
		e.Time = s.clock.Now()
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if !s.allowBackdated {
		history, err := s.entries.ListByPatient(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 && e.Time.Before(history[0].Time) {
			return nil, &ValidationError{Field: "time", Reason: "earlier than the latest recorded measurement"}
		}
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if p.Status == patient.StatusNotStarted {
			start := s.clock.Now()
			started, err := s.patients.StartLabor(ctx, patientID, start)
			if err != nil {
				return err
			}
			if started {
				p.Status = patient.StatusInProgress
				p.LaborStart = &start
			} else {
				// Another request won the promotion; re-read the
				// current status before accepting the measurement.
				p, err = s.patients.GetByID(ctx, patientID)
				if err != nil {
					return err
				}
				if p.Status == patient.StatusCompleted {
					return ErrLaborCompleted
				}
			}
		}
		e.PatientID = patientID
		return s.entries.Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	history, err := s.entries.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	state := ComputeTimerState(p, history, s.clock.Now())
	return &state, nil
}

// CompleteLabor moves an in-progress patient to completed. Completing an
// already-completed patient is a no-op success; completing a patient whose
// labor never started is rejected.
func (s *Service) CompleteLabor(ctx context.Context, patientID uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case patient.StatusCompleted:
		return p, nil
	case patient.StatusNotStarted:
		return nil, ErrLaborNotStarted
	}

	end := s.clock.Now()
	completed, err := s.patients.Complete(ctx, patientID, end)
	if err != nil {
		return nil, err
	}
	if !completed {
		// Lost a race; the re-read tells us whether someone else completed.
		p, err = s.patients.GetByID(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if p.Status != patient.StatusCompleted {
			return nil, ErrLaborNotStarted
		}
		return p, nil
	}

	p.Status = patient.StatusCompleted
	p.LaborEnd = &end
	return p, nil
}

// DeleteEntry removes one measurement. Timer state self-heals on the next
// query because it is always derived from the surviving measurements.
func (s *Service) DeleteEntry(ctx context.Context, patientID, entryID uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return err
	}
	return s.entries.Delete(ctx, patientID, entryID)
}

// ListEntries returns one page of a patient's measurement history.
func (s *Service) ListEntries(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.entries.ListPage(ctx, patientID, limit, offset)
}

// TimerState derives the current timer state for one patient from a single
// read of its measurement history.
func (s *Service) TimerState(ctx context.Context, patientID uuid.UUID) (*TimerState, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	history, err := s.entries.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	state := ComputeTimerState(p, history, s.clock.Now())
	return &state, nil
}

// TimerStates derives timer states for a page of patients using one batch
// snapshot query instead of per-patient lookups.
func (s *Service) TimerStates(ctx context.Context, filter patient.SearchFilter, limit, offset int) ([]TimerState, int, error) {
	patients, total, err := s.patients.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		ids = append(ids, p.ID)
	}
	snapshots, err := s.entries.LatestSnapshots(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	states := make([]TimerState, 0, len(patients))
	for _, p := range patients {
		states = append(states, ComputeTimerStateFromSnapshot(p, snapshots[p.ID], now))
	}
	return states, total, nil
}
