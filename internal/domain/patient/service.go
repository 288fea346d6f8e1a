package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

var validGenders = map[string]bool{"M": true, "F": true, "O": true, "U": true}

func (s *Service) validate(p *Patient) error {
	if strings.TrimSpace(p.MRN) == "" {
		return apperror.Validation("mrn", "is required")
	}
	if strings.TrimSpace(p.FullName) == "" {
		return apperror.Validation("full_name", "is required")
	}
	if p.DateOfBirth.IsZero() {
		return apperror.Validation("date_of_birth", "is required")
	}
	if !validGenders[p.Gender] {
		return apperror.Validation("gender", "must be one of M, F, O, U")
	}
	return nil
}

func (s *Service) Register(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

// ToggleActive soft-hides or restores a patient. Restore works on hidden
// records, so lookup bypasses the visibility scope.
func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patients.SetHidden(ctx, id, !p.Hidden); err != nil {
		return nil, err
	}
	p.Hidden = !p.Hidden
	return p, nil
}

func (s *Service) List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, params, sort, limit, offset)
}
