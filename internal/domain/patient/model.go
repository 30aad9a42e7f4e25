package patient

import (
	"time"

	"github.com/google/uuid"
)

// Status is the labor status of a patient. The three values form a one-way
// progression: not_started -> in_progress -> completed.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Color returns the UI badge color associated with the status.
func (s Status) Color() string {
	switch s {
	case StatusNotStarted:
		return "secondary"
	case StatusInProgress:
		return "danger"
	case StatusCompleted:
		return "success"
	}
	return "light"
}

// Label returns the human-readable status label shown in the ward UI.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "роды не начались"
	case StatusInProgress:
		return "в родах"
	case StatusCompleted:
		return "роды завершены"
	}
	return string(s)
}

// Patient is a maternity-ward patient record.
type Patient struct {
	ID                  uuid.UUID  `json:"id"`
	FullName            string     `json:"full_name"`
	Age                 *int       `json:"age,omitempty"`
	HistoryNumber       *string    `json:"history_number,omitempty"`
	AdmissionDate       *time.Time `json:"admission_date,omitempty"`
	GestationalAgeWeeks *int       `json:"gestational_age_weeks,omitempty"`
	Parity              *int       `json:"parity,omitempty"`
	RiskFactors         *string    `json:"risk_factors,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	MembraneRupture     *time.Time `json:"membrane_rupture,omitempty"`
	Status              Status     `json:"status"`
	LaborStart          *time.Time `json:"labor_start,omitempty"`
	LaborEnd            *time.Time `json:"labor_end,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
