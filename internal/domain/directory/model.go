package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
)

// Specialty groups departments and the intervention catalog. Referral
// validation checks requested intervention types against the destination
// department's specialty.
type Specialty struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Department is an allied-health department. Exactly one head user.
type Department struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Code            string          `db:"code" json:"code"`
	SpecialtyID     uuid.UUID       `db:"specialty_id" json:"specialty_id"`
	HeadUserID      uuid.UUID       `db:"head_user_id" json:"head_user_id"`
	DefaultPriority status.Priority `db:"default_priority" json:"default_priority"`
	OpensAt         string          `db:"opens_at" json:"opens_at"`
	ClosesAt        string          `db:"closes_at" json:"closes_at"`
	Hidden          bool            `db:"hidden" json:"hidden"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Ward is a physical ward. DefaultDepartmentID, when set, preselects the
// department on intervention assignment forms.
type Ward struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	BedCount            int        `db:"bed_count" json:"bed_count"`
	DefaultDepartmentID *uuid.UUID `db:"default_department_id" json:"default_department_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// WardCoverage records that a department covers a ward. One row per pair;
// CreatedAt tells when coverage started.
type WardCoverage struct {
	WardID       uuid.UUID `db:"ward_id" json:"ward_id"`
	DepartmentID uuid.UUID `db:"department_id" json:"department_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StaffUser is a staff account in the directory. Auth identity comes from
// the JWT; this record carries role and home department for assignment
// checks.
type StaffUser struct {
	ID               uuid.UUID `db:"id" json:"id"`
	FullName         string    `db:"full_name" json:"full_name"`
	Email            string    `db:"email" json:"email"`
	Role             string    `db:"role" json:"role"`
	HomeDepartmentID uuid.UUID `db:"home_department_id" json:"home_department_id"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Intervention is a catalog entry, static per specialty.
type Intervention struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SpecialtyID uuid.UUID `db:"specialty_id" json:"specialty_id"`
	Name        string    `db:"name" json:"name"`
}
