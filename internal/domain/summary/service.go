// Package summary produces per-request dashboard counts. Nothing here is
// cached or stored: every figure is computed from the live rows, and task
// statuses come from the same SQL derivation the list endpoints use.
package summary

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
)

type taskCounter interface {
	CountByDerivedStatus(ctx context.Context, today time.Time) (map[status.TaskStatus]int, error)
	CountByPriority(ctx context.Context) (map[status.Priority]int, error)
	CountByDepartment(ctx context.Context) (map[uuid.UUID]int, error)
}

type referralCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountByPriority(ctx context.Context) (map[status.Priority]int, error)
	CountByDestination(ctx context.Context) (map[uuid.UUID]int, error)
	CountPendingOutcomes(ctx context.Context, today time.Time) (int, error)
}

// TaskSummary holds task counts over non-hidden rows, statuses derived as
// of AsOf.
type TaskSummary struct {
	AsOf         time.Time                 `json:"as_of"`
	Total        int                       `json:"total"`
	ByStatus     map[status.TaskStatus]int `json:"by_status"`
	ByPriority   map[status.Priority]int   `json:"by_priority"`
	ByDepartment map[uuid.UUID]int         `json:"by_department"`
	Overdue      int                       `json:"overdue"`
}

// ReferralSummary holds referral counts over non-hidden rows, statuses
// presented (pending triage counts as "pending"). PendingOutcomes counts
// active accepted referrals whose task is derived completed but whose
// referral was never closed out.
type ReferralSummary struct {
	AsOf            time.Time               `json:"as_of"`
	Total           int                     `json:"total"`
	ByStatus        map[string]int          `json:"by_status"`
	ByPriority      map[status.Priority]int `json:"by_priority"`
	ByDepartment    map[uuid.UUID]int       `json:"by_department"`
	PendingOutcomes int                     `json:"pending_outcomes"`
}

type Service struct {
	tasks     taskCounter
	referrals referralCounter
	now       func() time.Time
}

func NewService(tasks taskCounter, referrals referralCounter) *Service {
	return &Service{tasks: tasks, referrals: referrals, now: time.Now}
}

func (s *Service) Tasks(ctx context.Context) (*TaskSummary, error) {
	now := s.now()
	byStatus, err := s.tasks.CountByDerivedStatus(ctx, now)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.tasks.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}
	byDepartment, err := s.tasks.CountByDepartment(ctx)
	if err != nil {
		return nil, err
	}

	out := &TaskSummary{
		AsOf:         status.DateOnly(now),
		ByStatus:     byStatus,
		ByPriority:   byPriority,
		ByDepartment: byDepartment,
		Overdue:      byStatus[status.TaskOverdue],
	}
	for _, n := range byStatus {
		out.Total += n
	}
	return out, nil
}

func (s *Service) Referrals(ctx context.Context) (*ReferralSummary, error) {
	now := s.now()
	byStatus, err := s.referrals.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.referrals.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}
	byDepartment, err := s.referrals.CountByDestination(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.referrals.CountPendingOutcomes(ctx, now)
	if err != nil {
		return nil, err
	}

	out := &ReferralSummary{
		AsOf:            status.DateOnly(now),
		ByStatus:        byStatus,
		ByPriority:      byPriority,
		ByDepartment:    byDepartment,
		PendingOutcomes: pending,
	}
	for _, n := range byStatus {
		out.Total += n
	}
	return out, nil
}
