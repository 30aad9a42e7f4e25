package partogram

import (
	"time"

	"github.com/google/uuid"

	"github.com/iMprov00/PartogramDARV2/internal/domain/patient"
)

// Clock abstracts the time source so timer math is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock { return systemClock{} }

// TimerState is the derived measurement-countdown state for one patient.
// It is recomputed on every query and never persisted.
type TimerState struct {
	PatientID           uuid.UUID      `json:"patient_id"`
	Status              patient.Status `json:"status"`
	StatusColor         string         `json:"status_color"`
	Period              int            `json:"period"`
	IntervalMinutes     int            `json:"interval_minutes"`
	RemainingSeconds    int64          `json:"remaining_seconds"`
	LastMeasurementTime *time.Time     `json:"last_measurement_time,omitempty"`
	NextMeasurementTime *time.Time     `json:"next_measurement_time,omitempty"`
}

// ComputeTimerState derives the timer state for a patient from a single
// consistent snapshot of its measurement history (ordered by time
// descending) at the given instant.
func ComputeTimerState(p *patient.Patient, entries []*Entry, now time.Time) TimerState {
	var lastEntryTime *time.Time
	if len(entries) > 0 {
		t := entries[0].Time
		lastEntryTime = &t
	}
	return deriveTimerState(p, lastEntryTime, ClassifyPeriod(entries), now)
}

// ComputeTimerStateFromSnapshot is the bulk-path variant of
// ComputeTimerState, working from a batch-loaded Snapshot instead of the
// full history.
func ComputeTimerStateFromSnapshot(p *patient.Patient, snap Snapshot, now time.Time) TimerState {
	period := 1
	if snap.LastDilation != nil && *snap.LastDilation >= FullDilationCM {
		period = 2
	}
	return deriveTimerState(p, snap.LastEntryTime, period, now)
}

func deriveTimerState(p *patient.Patient, lastEntryTime *time.Time, period int, now time.Time) TimerState {
	state := TimerState{
		PatientID:           p.ID,
		Status:              p.Status,
		StatusColor:         p.Status.Color(),
		Period:              1,
		IntervalMinutes:     Period1IntervalMinutes,
		LastMeasurementTime: lastEntryTime,
	}

	// Countdown only runs during labor; other statuses get the inert state.
	if p.Status != patient.StatusInProgress {
		return state
	}

	state.Period = period
	state.IntervalMinutes = IntervalMinutes(period)

	anchor := lastEntryTime
	if anchor == nil {
		anchor = p.LaborStart
	}
	if anchor == nil {
		return state
	}

	interval := time.Duration(state.IntervalMinutes) * time.Minute
	elapsed := int64(now.Sub(*anchor).Seconds())
	remaining := int64(interval.Seconds()) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	state.RemainingSeconds = remaining

	next := anchor.Add(interval)
	state.NextMeasurementTime = &next
	return state
}
