package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the directory store. Department reads answer only visible
// records except GetAnyDepartment, which bypasses the hidden scope for
// restore.
type Repository interface {
	CreateSpecialty(ctx context.Context, s *Specialty) error
	GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error)
	ListSpecialties(ctx context.Context) ([]*Specialty, error)

	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	GetAnyDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	UpdateDepartment(ctx context.Context, d *Department) error
	SetDepartmentHidden(ctx context.Context, id uuid.UUID, hidden bool) error
	ListDepartments(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Department, int, error)

	CreateWard(ctx context.Context, w *Ward) error
	GetWard(ctx context.Context, id uuid.UUID) (*Ward, error)
	UpdateWard(ctx context.Context, w *Ward) error
	ListWards(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Ward, int, error)

	AddCoverage(ctx context.Context, wardID, departmentID uuid.UUID) (*WardCoverage, error)
	RemoveCoverage(ctx context.Context, wardID, departmentID uuid.UUID) error
	ListCoverage(ctx context.Context, wardID uuid.UUID) ([]*WardCoverage, error)
	CoversWard(ctx context.Context, wardID, departmentID uuid.UUID) (bool, error)

	CreateStaff(ctx context.Context, u *StaffUser) error
	GetStaff(ctx context.Context, id uuid.UUID) (*StaffUser, error)
	SetStaffActive(ctx context.Context, id uuid.UUID, active bool) error
	ListStaff(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*StaffUser, int, error)

	CreateIntervention(ctx context.Context, iv *Intervention) error
	GetInterventions(ctx context.Context, ids []uuid.UUID) ([]*Intervention, error)
	ListInterventions(ctx context.Context, specialtyID *uuid.UUID) ([]*Intervention, error)
}
