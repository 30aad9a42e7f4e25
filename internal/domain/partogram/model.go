package partogram

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a single timestamped partogram measurement. Only Time and
// CervicalDilation drive the timer logic; the remaining clinical fields
// are stored and returned as-is.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Time      time.Time `json:"time"`

	FetalHeartRate       *int     `json:"fetal_heart_rate,omitempty"`
	Decelerations        *string  `json:"decelerations,omitempty"`
	AmnioticFluid        *string  `json:"amniotic_fluid,omitempty"`
	Presentation         *string  `json:"presentation,omitempty"`
	Caput                *string  `json:"caput,omitempty"`
	Molding              *string  `json:"molding,omitempty"`
	MaternalPulse        *int     `json:"maternal_pulse,omitempty"`
	BloodPressure        *string  `json:"blood_pressure,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	Urination            *string  `json:"urination,omitempty"`
	ContractionFrequency *int     `json:"contraction_frequency,omitempty"`
	ContractionDuration  *int     `json:"contraction_duration,omitempty"`
	Pushing              *string  `json:"pushing,omitempty"`
	CervicalDilation     *int     `json:"cervical_dilation,omitempty"`
	HeadDescent          *string  `json:"head_descent,omitempty"`
	Oxytocin             *string  `json:"oxytocin,omitempty"`
	Medications          *string  `json:"medications,omitempty"`
	IVFluids             *string  `json:"iv_fluids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the numeric clinical fields against their allowed ranges.
func (e *Entry) Validate() error {
	if e.FetalHeartRate != nil && (*e.FetalHeartRate < 1 || *e.FetalHeartRate > 299) {
		return &ValidationError{Field: "fetal_heart_rate", Reason: "must be between 1 and 299"}
	}
	if e.MaternalPulse != nil && (*e.MaternalPulse < 1 || *e.MaternalPulse > 199) {
		return &ValidationError{Field: "maternal_pulse", Reason: "must be between 1 and 199"}
	}
	// Temperature bounds are exclusive: exactly 35.0 and 42.0 are rejected.
	if e.Temperature != nil && (*e.Temperature <= 35 || *e.Temperature >= 42) {
		return &ValidationError{Field: "temperature", Reason: "must be greater than 35 and less than 42"}
	}
	if e.CervicalDilation != nil && (*e.CervicalDilation < 0 || *e.CervicalDilation > 10) {
		return &ValidationError{Field: "cervical_dilation", Reason: "must be between 0 and 10"}
	}
	if e.ContractionFrequency != nil && *e.ContractionFrequency < 0 {
		return &ValidationError{Field: "contraction_frequency", Reason: "must not be negative"}
	}
	if e.ContractionDuration != nil && *e.ContractionDuration < 0 {
		return &ValidationError{Field: "contraction_duration", Reason: "must not be negative"}
	}
	return nil
}
