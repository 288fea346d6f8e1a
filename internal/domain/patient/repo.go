package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the patient store. GetByID and List answer only visible
// records; GetAny bypasses the hidden scope for restore.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAny(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error
	List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Patient, int, error)
}
