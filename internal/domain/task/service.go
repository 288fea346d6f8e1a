package task

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/directory"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/patient"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/referral"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/auth"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/db"
)

type referralReader interface {
	Get(ctx context.Context, id uuid.UUID) (*referral.Referral, error)
}

type patientReader interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type directoryReader interface {
	GetDepartment(ctx context.Context, id uuid.UUID) (*directory.Department, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*directory.StaffUser, error)
	GetWard(ctx context.Context, id uuid.UUID) (*directory.Ward, error)
	CoversWard(ctx context.Context, wardID, departmentID uuid.UUID) (bool, error)
	InterventionsFor(ctx context.Context, ids []uuid.UUID) ([]*directory.Intervention, error)
}

type Service struct {
	tasks     Repository
	referrals referralReader
	patients  patientReader
	dir       directoryReader
	tx        db.TxRunner
	now       func() time.Time
}

func NewService(tasks Repository, referrals referralReader, patients patientReader, dir directoryReader, tx db.TxRunner) *Service {
	return &Service{tasks: tasks, referrals: referrals, patients: patients, dir: dir, tx: tx, now: time.Now}
}

// CreateFromReferral converts an accepted referral into a task, copying
// its clinical fields. The window starts out as a single day (today);
// staff widen it once the plan is known.
func (s *Service) CreateFromReferral(ctx context.Context, referralID uuid.UUID, title string) (*Task, error) {
	ref, err := s.referrals.Get(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if !ref.Actionable() {
		return nil, apperror.InvalidState("referral must be active and accepted to convert",
			status.PresentedReferral(ref.Status, ref.TriageDecision))
	}

	if strings.TrimSpace(title) == "" {
		title = ref.Diagnosis
	}
	today := status.DateOnly(s.now())
	t := &Task{
		ReferralID:   &ref.ID,
		PatientID:    ref.PatientID,
		DepartmentID: ref.DestinationDepartmentID,
		Title:        title,
		Priority:     ref.Priority,
		Diagnosis:    ref.Diagnosis,
		Goals:        ref.Goals,
		Description:  ref.Description,
		StartDate:    today,
		EndDate:      today,
	}
	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.tasks.Create(ctx, t)
	}); err != nil {
		return nil, err
	}
	t.Derive(s.now())
	return t, nil
}

// CreateStandalone creates a task with no referral behind it.
func (s *Service) CreateStandalone(ctx context.Context, t *Task) error {
	t.ReferralID = nil
	if strings.TrimSpace(t.Title) == "" {
		return apperror.Validation("title", "is required")
	}
	if _, err := s.patients.Get(ctx, t.PatientID); err != nil {
		return apperror.Validation("patient_id", "unknown or hidden patient")
	}
	dept, err := s.dir.GetDepartment(ctx, t.DepartmentID)
	if err != nil {
		return apperror.Validation("department_id", "unknown department")
	}
	if t.Priority == 0 {
		t.Priority = dept.DefaultPriority
	}
	if !t.Priority.Valid() {
		return apperror.Validation("priority", "must be between 1 and 3")
	}

	today := status.DateOnly(s.now())
	if t.StartDate.IsZero() {
		t.StartDate = today
	}
	if t.EndDate.IsZero() {
		t.EndDate = t.StartDate
	}
	t.StartDate = status.DateOnly(t.StartDate)
	t.EndDate = status.DateOnly(t.EndDate)
	if t.EndDate.Before(t.StartDate) {
		return apperror.Validation("end_date", "must not be before start date")
	}

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.tasks.Create(ctx, t)
	}); err != nil {
		return err
	}
	t.Derive(s.now())
	return nil
}

// AssignIntervention adds an intervention assignment to a task. The
// assignee must be active and either belong to the task's department or
// to a department covering the ward. New assignments always start unseen.
func (s *Service) AssignIntervention(ctx context.Context, taskID uuid.UUID, iv *TaskIntervention) error {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	ivs, err := s.dir.InterventionsFor(ctx, []uuid.UUID{iv.InterventionID})
	if err != nil {
		return err
	}
	if len(ivs) != 1 {
		return apperror.Validation("intervention_id", "unknown intervention type")
	}
	if _, err := s.dir.GetWard(ctx, iv.WardID); err != nil {
		return apperror.Validation("ward_id", "unknown ward")
	}

	staff, err := s.dir.GetStaff(ctx, iv.AssignedUserID)
	if err != nil {
		return apperror.Validation("assigned_user_id", "unknown staff user")
	}
	if !staff.Active {
		return apperror.Validation("assigned_user_id", "staff user is inactive")
	}
	if staff.HomeDepartmentID != t.DepartmentID {
		covered, err := s.dir.CoversWard(ctx, iv.WardID, staff.HomeDepartmentID)
		if err != nil {
			return err
		}
		if !covered {
			return apperror.Validation("assigned_user_id", "staff home department neither owns the task nor covers the ward")
		}
	}

	if iv.StartDate.IsZero() {
		iv.StartDate = t.StartDate
	}
	if iv.EndDate.IsZero() {
		iv.EndDate = t.EndDate
	}
	iv.StartDate = status.DateOnly(iv.StartDate)
	iv.EndDate = status.DateOnly(iv.EndDate)
	if iv.EndDate.Before(iv.StartDate) {
		return apperror.Validation("end_date", "must not be before start date")
	}
	if iv.StartDate.Before(status.DateOnly(t.StartDate)) || iv.EndDate.After(status.DateOnly(t.EndDate)) {
		return apperror.Validation("start_date", "assignment window must fall within the task window")
	}

	iv.TaskID = t.ID
	iv.OutcomeStatus = status.OutcomeUnseen
	iv.OutcomeText = nil
	iv.OutcomeDate = nil
	return s.tx(ctx, func(ctx context.Context) error {
		return s.tasks.CreateIntervention(ctx, iv)
	})
}

// UpdateWindow moves the task window. It refuses to strand an existing
// intervention outside the new window; those assignments must be edited
// first.
func (s *Service) UpdateWindow(ctx context.Context, taskID uuid.UUID, start, end time.Time) (*Task, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperror.Validation("start_date", "start and end dates are required")
	}
	start = status.DateOnly(start)
	end = status.DateOnly(end)
	if end.Before(start) {
		return nil, apperror.Validation("end_date", "must not be before start date")
	}

	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ivs, err := s.tasks.ListInterventions(ctx, taskID)
	if err != nil {
		return nil, err
	}
	t.Interventions = ivs
	t.Derive(s.now())
	for _, iv := range ivs {
		if status.DateOnly(iv.StartDate).Before(start) || status.DateOnly(iv.EndDate).After(end) {
			return nil, apperror.InvalidState("an intervention window would fall outside the new task window", string(t.Status))
		}
	}

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.tasks.UpdateWindow(ctx, taskID, start, end)
	}); err != nil {
		return nil, err
	}
	t.StartDate = start
	t.EndDate = end
	t.Derive(s.now())
	return t, nil
}

// RecordOutcome sets an intervention's outcome. Only the assigned staff
// member or an admin may record it. Any status may follow any status;
// outcome text and date survive only on statuses that require an
// explanation.
func (s *Service) RecordOutcome(ctx context.Context, actor auth.Identity, interventionID uuid.UUID, newStatus status.OutcomeStatus, text string) (*TaskIntervention, error) {
	iv, err := s.tasks.GetIntervention(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	if iv.AssignedUserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("only the assigned staff member or an admin may record this outcome")
	}
	if !newStatus.Valid() {
		return nil, apperror.Validation("outcome_status", "unknown outcome status")
	}

	iv.OutcomeStatus = newStatus
	if newStatus.RequiresExplanation() {
		if strings.TrimSpace(text) == "" {
			return nil, apperror.Validation("outcome_text", "is required for this outcome")
		}
		now := s.now()
		iv.OutcomeText = &text
		iv.OutcomeDate = &now
	} else {
		iv.OutcomeText = nil
		iv.OutcomeDate = nil
	}

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.tasks.UpdateOutcome(ctx, iv)
	}); err != nil {
		return nil, err
	}
	return iv, nil
}

// GetDetails returns the task with its interventions and derived status.
func (s *Service) GetDetails(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ivs, err := s.tasks.ListInterventions(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Interventions = ivs
	t.Derive(s.now())
	return t, nil
}

func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := s.tasks.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.SetHidden(ctx, id, !t.Hidden); err != nil {
		return nil, err
	}
	t.Hidden = !t.Hidden
	t.Derive(s.now())
	return t, nil
}

func (s *Service) List(ctx context.Context, params map[string]string, sort string, limit, offset int) ([]*Task, int, error) {
	return s.tasks.List(ctx, s.now(), params, sort, limit, offset)
}

// ListMine lists tasks where the caller holds an intervention assignment.
func (s *Service) ListMine(ctx context.Context, actor auth.Identity, params map[string]string, sort string, limit, offset int) ([]*Task, int, error) {
	return s.tasks.ListMine(ctx, actor.UserID, s.now(), params, sort, limit, offset)
}
