package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
)

// Task is a unit of allied-health work for one patient in one department,
// either converted from an accepted referral or created standalone. Its
// status is never stored; Status is derived on every read from the window
// and the interventions' outcomes.
type Task struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ReferralID   *uuid.UUID      `db:"referral_id" json:"referral_id,omitempty"`
	PatientID    uuid.UUID       `db:"patient_id" json:"patient_id"`
	DepartmentID uuid.UUID       `db:"department_id" json:"department_id"`
	Title        string          `db:"title" json:"title"`
	Priority     status.Priority `db:"priority" json:"priority"`
	Diagnosis    string          `db:"diagnosis" json:"diagnosis"`
	Goals        string          `db:"goals" json:"goals"`
	Description  string          `db:"description" json:"description"`
	StartDate    time.Time       `db:"start_date" json:"start_date"`
	EndDate      time.Time       `db:"end_date" json:"end_date"`
	Hidden       bool            `db:"hidden" json:"hidden"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`

	Status        status.TaskStatus   `db:"-" json:"status"`
	Interventions []*TaskIntervention `db:"-" json:"interventions,omitempty"`
}

// Derive fills Status from the task's window and outcomes as of today.
func (t *Task) Derive(today time.Time) {
	outcomes := make([]status.OutcomeStatus, 0, len(t.Interventions))
	for _, iv := range t.Interventions {
		outcomes = append(outcomes, iv.OutcomeStatus)
	}
	t.Status = status.DeriveTask(today, t.StartDate, t.EndDate, outcomes)
}

// TaskIntervention assigns one catalog intervention on one ward to one
// staff member within the task window.
type TaskIntervention struct {
	ID             uuid.UUID            `db:"id" json:"id"`
	TaskID         uuid.UUID            `db:"task_id" json:"task_id"`
	InterventionID uuid.UUID            `db:"intervention_id" json:"intervention_id"`
	AssignedUserID uuid.UUID            `db:"assigned_user_id" json:"assigned_user_id"`
	WardID         uuid.UUID            `db:"ward_id" json:"ward_id"`
	StartDate      time.Time            `db:"start_date" json:"start_date"`
	EndDate        time.Time            `db:"end_date" json:"end_date"`
	OutcomeStatus  status.OutcomeStatus `db:"outcome_status" json:"outcome_status"`
	OutcomeText    *string              `db:"outcome_text" json:"outcome_text,omitempty"`
	OutcomeDate    *time.Time           `db:"outcome_date" json:"outcome_date,omitempty"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}
