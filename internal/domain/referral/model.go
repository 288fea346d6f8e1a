package referral

import (
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
)

// Referral routes a patient from one department to another for allied
// health input. The stored status never shows the triage sub-state; the
// presented status is resolved on the way out.
type Referral struct {
	ID                       uuid.UUID             `db:"id" json:"id"`
	PatientID                uuid.UUID             `db:"patient_id" json:"patient_id"`
	OriginDepartmentID       uuid.UUID             `db:"origin_department_id" json:"origin_department_id"`
	DestinationDepartmentID  uuid.UUID             `db:"destination_department_id" json:"destination_department_id"`
	ReferringTherapistID     uuid.UUID             `db:"referring_therapist_id" json:"referring_therapist_id"`
	Priority                 status.Priority       `db:"priority" json:"priority"`
	Diagnosis                string                `db:"diagnosis" json:"diagnosis"`
	Goals                    string                `db:"goals" json:"goals"`
	Description              string                `db:"description" json:"description"`
	RequestedInterventionIDs []uuid.UUID           `db:"-" json:"requested_intervention_ids"`
	Status                   status.ReferralStatus `db:"status" json:"status"`
	TriageDecision           status.TriageDecision `db:"triage_decision" json:"triage_decision"`
	TriageNote               *string               `db:"triage_note" json:"triage_note,omitempty"`
	OutcomeNotes             *string               `db:"outcome_notes" json:"outcome_notes,omitempty"`
	CompletedAt              *time.Time            `db:"completed_at" json:"completed_at,omitempty"`
	Hidden                   bool                  `db:"hidden" json:"hidden"`
	CreatedAt                time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time             `db:"updated_at" json:"updated_at"`

	// PresentedStatus masks the stored status while triage is pending.
	// Populated by the service on every read.
	PresentedStatus string `db:"-" json:"presented_status"`
}

func (r *Referral) present() {
	r.PresentedStatus = status.PresentedReferral(r.Status, r.TriageDecision)
}

// Actionable reports whether the referral is active and accepted, the
// precondition for completing it or converting it into a task.
func (r *Referral) Actionable() bool {
	return r.Status == status.ReferralActive && r.TriageDecision == status.TriageAccepted
}

// TriageAction is a destination department's decision on a referral.
type TriageAction string

const (
	ActionAccept   TriageAction = "accept"
	ActionReject   TriageAction = "reject"
	ActionRedirect TriageAction = "redirect"
)
