package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
)

// Repository is the task store. List and ListMine derive the task status
// in SQL against the passed today, so filtering and sorting by status see
// the same value Go derivation produces. Reads by id return the bare row;
// the service loads interventions and derives in Go.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	GetAny(ctx context.Context, id uuid.UUID) (*Task, error)
	UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error

	CreateIntervention(ctx context.Context, iv *TaskIntervention) error
	GetIntervention(ctx context.Context, id uuid.UUID) (*TaskIntervention, error)
	ListInterventions(ctx context.Context, taskID uuid.UUID) ([]*TaskIntervention, error)
	UpdateOutcome(ctx context.Context, iv *TaskIntervention) error

	List(ctx context.Context, today time.Time, params map[string]string, sort string, limit, offset int) ([]*Task, int, error)
	ListMine(ctx context.Context, userID uuid.UUID, today time.Time, params map[string]string, sort string, limit, offset int) ([]*Task, int, error)

	// Summary counts over non-hidden rows.
	CountByDerivedStatus(ctx context.Context, today time.Time) (map[status.TaskStatus]int, error)
	CountByPriority(ctx context.Context) (map[status.Priority]int, error)
	CountByDepartment(ctx context.Context) (map[uuid.UUID]int, error)
}
