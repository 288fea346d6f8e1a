package referral

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
)

// Repository is the referral store. The triage and complete mutations are
// compare-and-swap: the UPDATE carries the expected (status, decision)
// pair in its WHERE clause and the bool reports whether a row was won.
// Zero rows means another writer got there first (or the row is gone);
// the service re-reads to tell the two apart.
type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	GetAny(ctx context.Context, id uuid.UUID) (*Referral, error)
	Update(ctx context.Context, r *Referral) error
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error

	CASAccept(ctx context.Context, id uuid.UUID, note *string) (bool, error)
	CASReject(ctx context.Context, id uuid.UUID, note string) (bool, error)
	CASRedirect(ctx context.Context, id, newDestination uuid.UUID, note *string) (bool, error)
	CASComplete(ctx context.Context, id uuid.UUID, outcomeNotes string, completedAt time.Time) (bool, error)

	List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Referral, int, error)

	// Summary counts over non-hidden rows. Status counts use the presented
	// status, so pending triage shows as "pending", not "active".
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountByPriority(ctx context.Context) (map[status.Priority]int, error)
	CountByDestination(ctx context.Context) (map[uuid.UUID]int, error)
	CountPendingOutcomes(ctx context.Context, today time.Time) (int, error)
}
