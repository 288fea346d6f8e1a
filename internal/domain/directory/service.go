package directory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// -- Specialty --

func (s *Service) CreateSpecialty(ctx context.Context, sp *Specialty) error {
	if strings.TrimSpace(sp.Name) == "" {
		return apperror.Validation("name", "is required")
	}
	return s.repo.CreateSpecialty(ctx, sp)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	return s.repo.ListSpecialties(ctx)
}

// -- Department --

func hoursValid(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

func (s *Service) validateDepartment(ctx context.Context, d *Department) error {
	if strings.TrimSpace(d.Name) == "" {
		return apperror.Validation("name", "is required")
	}
	if strings.TrimSpace(d.Code) == "" {
		return apperror.Validation("code", "is required")
	}
	if !d.DefaultPriority.Valid() {
		return apperror.Validation("default_priority", "must be between 1 and 3")
	}
	if !hoursValid(d.OpensAt) || !hoursValid(d.ClosesAt) {
		return apperror.Validation("opens_at", "hours must be HH:MM")
	}
	if d.OpensAt >= d.ClosesAt {
		return apperror.Validation("closes_at", "must be after opening time")
	}
	if _, err := s.repo.GetSpecialty(ctx, d.SpecialtyID); err != nil {
		return apperror.Validation("specialty_id", "unknown specialty")
	}
	if d.HeadUserID == uuid.Nil {
		return apperror.Validation("head_user_id", "is required")
	}
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	if err := s.validateDepartment(ctx, d); err != nil {
		return err
	}
	return s.repo.CreateDepartment(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, d *Department) error {
	if err := s.validateDepartment(ctx, d); err != nil {
		return err
	}
	return s.repo.UpdateDepartment(ctx, d)
}

func (s *Service) ToggleDepartmentActive(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := s.repo.GetAnyDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetDepartmentHidden(ctx, id, !d.Hidden); err != nil {
		return nil, err
	}
	d.Hidden = !d.Hidden
	return d, nil
}

func (s *Service) ListDepartments(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Department, int, error) {
	return s.repo.ListDepartments(ctx, params, sort, limit, offset)
}

// -- Ward --

func (s *Service) validateWard(ctx context.Context, w *Ward) error {
	if strings.TrimSpace(w.Name) == "" {
		return apperror.Validation("name", "is required")
	}
	if w.BedCount < 0 {
		return apperror.Validation("bed_count", "must not be negative")
	}
	if w.DefaultDepartmentID != nil {
		if _, err := s.repo.GetDepartment(ctx, *w.DefaultDepartmentID); err != nil {
			return apperror.Validation("default_department_id", "unknown department")
		}
	}
	return nil
}

func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if err := s.validateWard(ctx, w); err != nil {
		return err
	}
	return s.repo.CreateWard(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.repo.GetWard(ctx, id)
}

func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	if err := s.validateWard(ctx, w); err != nil {
		return err
	}
	return s.repo.UpdateWard(ctx, w)
}

func (s *Service) ListWards(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Ward, int, error) {
	return s.repo.ListWards(ctx, params, sort, limit, offset)
}

// -- Ward coverage --

func (s *Service) AddCoverage(ctx context.Context, wardID, departmentID uuid.UUID) (*WardCoverage, error) {
	if _, err := s.repo.GetWard(ctx, wardID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.repo.AddCoverage(ctx, wardID, departmentID)
}

func (s *Service) RemoveCoverage(ctx context.Context, wardID, departmentID uuid.UUID) error {
	return s.repo.RemoveCoverage(ctx, wardID, departmentID)
}

func (s *Service) ListCoverage(ctx context.Context, wardID uuid.UUID) ([]*WardCoverage, error) {
	if _, err := s.repo.GetWard(ctx, wardID); err != nil {
		return nil, err
	}
	return s.repo.ListCoverage(ctx, wardID)
}

// CoversWard reports whether a department covers a ward. Used by task
// assignment checks.
func (s *Service) CoversWard(ctx context.Context, wardID, departmentID uuid.UUID) (bool, error) {
	return s.repo.CoversWard(ctx, wardID, departmentID)
}

// -- Staff --

var validRoles = map[string]bool{
	auth.RoleAdmin:     true,
	auth.RoleTherapist: true,
	auth.RoleAHA:       true,
}

func (s *Service) CreateStaff(ctx context.Context, u *StaffUser) error {
	if strings.TrimSpace(u.FullName) == "" {
		return apperror.Validation("full_name", "is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return apperror.Validation("email", "is required")
	}
	if !validRoles[u.Role] {
		return apperror.Validation("role", "must be one of admin, therapist, aha")
	}
	if _, err := s.repo.GetDepartment(ctx, u.HomeDepartmentID); err != nil {
		return apperror.Validation("home_department_id", "unknown department")
	}
	u.Active = true
	return s.repo.CreateStaff(ctx, u)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*StaffUser, error) {
	return s.repo.GetStaff(ctx, id)
}

func (s *Service) ToggleStaffActive(ctx context.Context, id uuid.UUID) (*StaffUser, error) {
	u, err := s.repo.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStaffActive(ctx, id, !u.Active); err != nil {
		return nil, err
	}
	u.Active = !u.Active
	return u, nil
}

func (s *Service) ListStaff(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*StaffUser, int, error) {
	return s.repo.ListStaff(ctx, params, sort, limit, offset)
}

// -- Intervention catalog --

func (s *Service) CreateIntervention(ctx context.Context, iv *Intervention) error {
	if strings.TrimSpace(iv.Name) == "" {
		return apperror.Validation("name", "is required")
	}
	if _, err := s.repo.GetSpecialty(ctx, iv.SpecialtyID); err != nil {
		return apperror.Validation("specialty_id", "unknown specialty")
	}
	return s.repo.CreateIntervention(ctx, iv)
}

// InterventionsFor resolves catalog entries by id. Callers diff the result
// against the requested ids to detect unknown entries.
func (s *Service) InterventionsFor(ctx context.Context, ids []uuid.UUID) ([]*Intervention, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.GetInterventions(ctx, ids)
}

func (s *Service) ListInterventions(ctx context.Context, specialtyID *uuid.UUID) ([]*Intervention, error) {
	return s.repo.ListInterventions(ctx, specialtyID)
}
