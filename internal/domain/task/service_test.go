package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/directory"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/patient"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/referral"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/auth"
)

// -- Mocks --

type mockRepo struct {
	tasks map[uuid.UUID]*Task
	ivs   map[uuid.UUID]*TaskIntervention
}

func newMockRepo() *mockRepo {
	return &mockRepo{tasks: map[uuid.UUID]*Task{}, ivs: map[uuid.UUID]*TaskIntervention{}}
}

func (m *mockRepo) Create(_ context.Context, t *Task) error {
	t.ID = uuid.New()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.Hidden {
		return nil, apperror.NotFound("task")
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) GetAny(_ context.Context, id uuid.UUID) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task")
	}
	cp := *t
	return &cp, nil
}

func (m *mockRepo) UpdateWindow(_ context.Context, id uuid.UUID, start, end time.Time) error {
	t, ok := m.tasks[id]
	if !ok || t.Hidden {
		return apperror.NotFound("task")
	}
	t.StartDate, t.EndDate = start, end
	return nil
}

func (m *mockRepo) SetHidden(_ context.Context, id uuid.UUID, hidden bool) error {
	t, ok := m.tasks[id]
	if !ok {
		return apperror.NotFound("task")
	}
	t.Hidden = hidden
	return nil
}

func (m *mockRepo) CreateIntervention(_ context.Context, iv *TaskIntervention) error {
	iv.ID = uuid.New()
	cp := *iv
	m.ivs[iv.ID] = &cp
	return nil
}

func (m *mockRepo) GetIntervention(_ context.Context, id uuid.UUID) (*TaskIntervention, error) {
	iv, ok := m.ivs[id]
	if !ok {
		return nil, apperror.NotFound("task intervention")
	}
	cp := *iv
	return &cp, nil
}

func (m *mockRepo) ListInterventions(_ context.Context, taskID uuid.UUID) ([]*TaskIntervention, error) {
	var out []*TaskIntervention
	for _, iv := range m.ivs {
		if iv.TaskID == taskID {
			cp := *iv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) UpdateOutcome(_ context.Context, iv *TaskIntervention) error {
	if _, ok := m.ivs[iv.ID]; !ok {
		return apperror.NotFound("task intervention")
	}
	cp := *iv
	m.ivs[iv.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, today time.Time, _ map[string]string, _ string, _, _ int) ([]*Task, int, error) {
	var out []*Task
	for _, t := range m.tasks {
		if t.Hidden {
			continue
		}
		cp := *t
		ivs, _ := m.ListInterventions(context.Background(), t.ID)
		cp.Interventions = ivs
		cp.Derive(today)
		cp.Interventions = nil
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListMine(_ context.Context, userID uuid.UUID, today time.Time, _ map[string]string, _ string, _, _ int) ([]*Task, int, error) {
	var out []*Task
	for _, t := range m.tasks {
		if t.Hidden {
			continue
		}
		mine := false
		for _, iv := range m.ivs {
			if iv.TaskID == t.ID && iv.AssignedUserID == userID {
				mine = true
				break
			}
		}
		if !mine {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) CountByDerivedStatus(_ context.Context, today time.Time) (map[status.TaskStatus]int, error) {
	out := map[status.TaskStatus]int{}
	items, _, _ := m.List(context.Background(), today, nil, "", 0, 0)
	for _, t := range items {
		out[t.Status]++
	}
	return out, nil
}

func (m *mockRepo) CountByPriority(_ context.Context) (map[status.Priority]int, error) {
	out := map[status.Priority]int{}
	for _, t := range m.tasks {
		if !t.Hidden {
			out[t.Priority]++
		}
	}
	return out, nil
}

func (m *mockRepo) CountByDepartment(_ context.Context) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	for _, t := range m.tasks {
		if !t.Hidden {
			out[t.DepartmentID]++
		}
	}
	return out, nil
}

type mockReferrals struct {
	store map[uuid.UUID]*referral.Referral
}

func (m *mockReferrals) Get(_ context.Context, id uuid.UUID) (*referral.Referral, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, apperror.NotFound("referral")
	}
	return r, nil
}

type mockPatients struct {
	visible map[uuid.UUID]bool
}

func (m *mockPatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if !m.visible[id] {
		return nil, apperror.NotFound("patient")
	}
	return &patient.Patient{ID: id}, nil
}

type mockDirectory struct {
	departments   map[uuid.UUID]*directory.Department
	staff         map[uuid.UUID]*directory.StaffUser
	wards         map[uuid.UUID]*directory.Ward
	coverage      map[[2]uuid.UUID]bool
	interventions map[uuid.UUID]*directory.Intervention
}

func (m *mockDirectory) GetDepartment(_ context.Context, id uuid.UUID) (*directory.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, apperror.NotFound("department")
	}
	return d, nil
}

func (m *mockDirectory) GetStaff(_ context.Context, id uuid.UUID) (*directory.StaffUser, error) {
	u, ok := m.staff[id]
	if !ok {
		return nil, apperror.NotFound("staff user")
	}
	return u, nil
}

func (m *mockDirectory) GetWard(_ context.Context, id uuid.UUID) (*directory.Ward, error) {
	w, ok := m.wards[id]
	if !ok {
		return nil, apperror.NotFound("ward")
	}
	return w, nil
}

func (m *mockDirectory) CoversWard(_ context.Context, wardID, departmentID uuid.UUID) (bool, error) {
	return m.coverage[[2]uuid.UUID{wardID, departmentID}], nil
}

func (m *mockDirectory) InterventionsFor(_ context.Context, ids []uuid.UUID) ([]*directory.Intervention, error) {
	var out []*directory.Intervention
	for _, id := range ids {
		if iv, ok := m.interventions[id]; ok {
			out = append(out, iv)
		}
	}
	return out, nil
}

func passthrough(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Fixtures --

var today = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	repo *mockRepo
	svc  *Service

	patientID   uuid.UUID
	deptID      uuid.UUID
	otherDeptID uuid.UUID
	wardID      uuid.UUID
	ivTypeID    uuid.UUID
	homeStaff   uuid.UUID
	coverStaff  uuid.UUID
	farStaff    uuid.UUID
	idleStaff   uuid.UUID
	referralID  uuid.UUID
	pendingID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:        newMockRepo(),
		patientID:   uuid.New(),
		deptID:      uuid.New(),
		otherDeptID: uuid.New(),
		wardID:      uuid.New(),
		ivTypeID:    uuid.New(),
		homeStaff:   uuid.New(),
		coverStaff:  uuid.New(),
		farStaff:    uuid.New(),
		idleStaff:   uuid.New(),
		referralID:  uuid.New(),
		pendingID:   uuid.New(),
	}
	dir := &mockDirectory{
		departments: map[uuid.UUID]*directory.Department{
			f.deptID:      {ID: f.deptID, DefaultPriority: status.PriorityMedium},
			f.otherDeptID: {ID: f.otherDeptID, DefaultPriority: status.PriorityLow},
		},
		staff: map[uuid.UUID]*directory.StaffUser{
			f.homeStaff:  {ID: f.homeStaff, HomeDepartmentID: f.deptID, Active: true},
			f.coverStaff: {ID: f.coverStaff, HomeDepartmentID: f.otherDeptID, Active: true},
			f.farStaff:   {ID: f.farStaff, HomeDepartmentID: uuid.New(), Active: true},
			f.idleStaff:  {ID: f.idleStaff, HomeDepartmentID: f.deptID, Active: false},
		},
		wards:         map[uuid.UUID]*directory.Ward{f.wardID: {ID: f.wardID, BedCount: 12}},
		coverage:      map[[2]uuid.UUID]bool{{f.wardID, f.otherDeptID}: true},
		interventions: map[uuid.UUID]*directory.Intervention{f.ivTypeID: {ID: f.ivTypeID}},
	}
	refs := &mockReferrals{store: map[uuid.UUID]*referral.Referral{
		f.referralID: {
			ID:                      f.referralID,
			PatientID:               f.patientID,
			DestinationDepartmentID: f.deptID,
			Priority:                status.PriorityHigh,
			Diagnosis:               "Left CVA",
			Goals:                   "Safe swallow",
			Description:             "Daily review",
			Status:                  status.ReferralActive,
			TriageDecision:          status.TriageAccepted,
		},
		f.pendingID: {
			ID:             f.pendingID,
			Status:         status.ReferralActive,
			TriageDecision: status.TriagePending,
		},
	}}
	patients := &mockPatients{visible: map[uuid.UUID]bool{f.patientID: true}}

	f.svc = NewService(f.repo, refs, patients, dir, passthrough)
	f.svc.now = func() time.Time { return today }
	return f
}

func (f *fixture) standaloneTask(t *testing.T, start, end time.Time) *Task {
	t.Helper()
	task := &Task{
		PatientID:    f.patientID,
		DepartmentID: f.deptID,
		Title:        "Mobility plan",
		StartDate:    start,
		EndDate:      end,
	}
	if err := f.svc.CreateStandalone(context.Background(), task); err != nil {
		t.Fatalf("create standalone: %v", err)
	}
	return task
}

func (f *fixture) assigned(t *testing.T, task *Task, staffID uuid.UUID) *TaskIntervention {
	t.Helper()
	iv := &TaskIntervention{
		InterventionID: f.ivTypeID,
		AssignedUserID: staffID,
		WardID:         f.wardID,
	}
	if err := f.svc.AssignIntervention(context.Background(), task.ID, iv); err != nil {
		t.Fatalf("assign: %v", err)
	}
	return iv
}

// -- Tests --

func TestCreateFromReferral_CopiesFields(t *testing.T) {
	f := newFixture(t)

	task, err := f.svc.CreateFromReferral(context.Background(), f.referralID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ReferralID == nil || *task.ReferralID != f.referralID {
		t.Error("referral back-reference not set")
	}
	if task.PatientID != f.patientID || task.DepartmentID != f.deptID {
		t.Error("patient/department not copied")
	}
	if task.Priority != status.PriorityHigh || task.Diagnosis != "Left CVA" || task.Goals != "Safe swallow" {
		t.Error("clinical fields not copied")
	}
	if task.Title != "Left CVA" {
		t.Errorf("title = %q, want diagnosis fallback", task.Title)
	}
	day := status.DateOnly(today)
	if !task.StartDate.Equal(day) || !task.EndDate.Equal(day) {
		t.Error("window must start out as a single day (today)")
	}
	// Zero interventions and today >= start: fail-open to completed.
	if task.Status != status.TaskCompleted {
		t.Errorf("status = %s, want completed", task.Status)
	}
}

func TestCreateFromReferral_RequiresAccepted(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateFromReferral(context.Background(), f.pendingID, ""); !apperror.IsInvalidState(err) {
		t.Errorf("pending referral: expected invalid state, got %v", err)
	}
	if _, err := f.svc.CreateFromReferral(context.Background(), uuid.New(), ""); !apperror.IsNotFound(err) {
		t.Errorf("unknown referral: expected not found, got %v", err)
	}
}

func TestCreateStandalone_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*Task)
	}{
		{"missing title", func(t *Task) { t.Title = " " }},
		{"unknown patient", func(t *Task) { t.PatientID = uuid.New() }},
		{"unknown department", func(t *Task) { t.DepartmentID = uuid.New() }},
		{"end before start", func(t *Task) {
			t.StartDate = today.AddDate(0, 0, 3)
			t.EndDate = today
		}},
		{"priority out of range", func(t *Task) { t.Priority = 9 }},
	}
	for _, tc := range cases {
		task := &Task{PatientID: f.patientID, DepartmentID: f.deptID, Title: "Plan"}
		tc.mutate(task)
		if err := f.svc.CreateStandalone(context.Background(), task); !apperror.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCreateStandalone_Defaults(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, time.Time{}, time.Time{})

	day := status.DateOnly(today)
	if !task.StartDate.Equal(day) || !task.EndDate.Equal(day) {
		t.Error("empty window should default to today")
	}
	if task.Priority != status.PriorityMedium {
		t.Errorf("priority = %d, want department default 2", task.Priority)
	}
}

func TestAssignIntervention(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 7))

	iv := f.assigned(t, task, f.homeStaff)
	if iv.OutcomeStatus != status.OutcomeUnseen {
		t.Errorf("outcome = %s, want unseen", iv.OutcomeStatus)
	}
	if !iv.StartDate.Equal(status.DateOnly(task.StartDate)) || !iv.EndDate.Equal(status.DateOnly(task.EndDate)) {
		t.Error("empty assignment window should default to the task window")
	}
}

func TestAssignIntervention_StaffChecks(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 7))

	cases := []struct {
		name  string
		staff uuid.UUID
		ok    bool
	}{
		{"home department", f.homeStaff, true},
		{"covering department", f.coverStaff, true},
		{"unrelated department", f.farStaff, false},
		{"inactive", f.idleStaff, false},
	}
	for _, tc := range cases {
		iv := &TaskIntervention{InterventionID: f.ivTypeID, AssignedUserID: tc.staff, WardID: f.wardID}
		err := f.svc.AssignIntervention(context.Background(), task.ID, iv)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && !apperror.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestAssignIntervention_WindowBounds(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 7))

	iv := &TaskIntervention{
		InterventionID: f.ivTypeID,
		AssignedUserID: f.homeStaff,
		WardID:         f.wardID,
		StartDate:      today,
		EndDate:        today.AddDate(0, 0, 10),
	}
	if err := f.svc.AssignIntervention(context.Background(), task.ID, iv); !apperror.IsValidation(err) {
		t.Errorf("window past task end: expected validation error, got %v", err)
	}

	iv.EndDate = today.AddDate(0, 0, 7)
	if err := f.svc.AssignIntervention(context.Background(), task.ID, iv); err != nil {
		t.Errorf("window on task bounds: unexpected error: %v", err)
	}
}

func TestUpdateWindow_StrandedIntervention(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 7))
	f.assigned(t, task, f.homeStaff) // spans the full task window

	_, err := f.svc.UpdateWindow(context.Background(), task.ID, today, today.AddDate(0, 0, 3))
	if !apperror.IsInvalidState(err) {
		t.Fatalf("shrinking past an assignment: expected invalid state, got %v", err)
	}

	got, err := f.svc.UpdateWindow(context.Background(), task.ID, today, today.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("widening: %v", err)
	}
	if !got.EndDate.Equal(status.DateOnly(today.AddDate(0, 0, 14))) {
		t.Error("window not updated")
	}
}

func TestRecordOutcome_Authorization(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 7))
	iv := f.assigned(t, task, f.homeStaff)

	stranger := auth.Identity{UserID: uuid.New(), Roles: []string{auth.RoleAHA}}
	if _, err := f.svc.RecordOutcome(context.Background(), stranger, iv.ID, status.OutcomeSeen, ""); !apperror.IsForbidden(err) {
		t.Errorf("stranger: expected forbidden, got %v", err)
	}

	assignee := auth.Identity{UserID: f.homeStaff, Roles: []string{auth.RoleAHA}}
	if _, err := f.svc.RecordOutcome(context.Background(), assignee, iv.ID, status.OutcomeSeen, ""); err != nil {
		t.Errorf("assignee: unexpected error: %v", err)
	}

	admin := auth.Identity{UserID: uuid.New(), Roles: []string{auth.RoleAdmin}}
	if _, err := f.svc.RecordOutcome(context.Background(), admin, iv.ID, status.OutcomeDeclined, ""); err != nil {
		t.Errorf("admin: unexpected error: %v", err)
	}
}

func TestRecordOutcome_ExplanationLifecycle(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 7))
	iv := f.assigned(t, task, f.homeStaff)
	assignee := auth.Identity{UserID: f.homeStaff, Roles: []string{auth.RoleAHA}}

	if _, err := f.svc.RecordOutcome(context.Background(), assignee, iv.ID, status.OutcomeHandover, ""); !apperror.IsValidation(err) {
		t.Fatalf("handover without text: expected validation error, got %v", err)
	}

	got, err := f.svc.RecordOutcome(context.Background(), assignee, iv.ID, status.OutcomeHandover, "escalated to senior")
	if err != nil {
		t.Fatalf("handover: %v", err)
	}
	if got.OutcomeText == nil || *got.OutcomeText != "escalated to senior" {
		t.Error("handover text not kept")
	}
	if got.OutcomeDate == nil || !got.OutcomeDate.Equal(today) {
		t.Error("outcome date not stamped")
	}

	// Moving off handover clears the explanation, even if text is sent.
	got, err = f.svc.RecordOutcome(context.Background(), assignee, iv.ID, status.OutcomeSeen, "stale text")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if got.OutcomeText != nil || got.OutcomeDate != nil {
		t.Error("outcome text and date must be cleared")
	}

	if _, err := f.svc.RecordOutcome(context.Background(), assignee, iv.ID, "vanished", ""); !apperror.IsValidation(err) {
		t.Errorf("unknown status: expected validation error, got %v", err)
	}
}

func TestGetDetails_DerivesStatus(t *testing.T) {
	f := newFixture(t)
	task := f.standaloneTask(t, today, today.AddDate(0, 0, 2))
	iv := f.assigned(t, task, f.homeStaff)
	assignee := auth.Identity{UserID: f.homeStaff, Roles: []string{auth.RoleAHA}}

	got, err := f.svc.GetDetails(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if got.Status != status.TaskInProgress {
		t.Errorf("status = %s, want in_progress (unseen inside window)", got.Status)
	}
	if len(got.Interventions) != 1 {
		t.Fatalf("interventions = %d, want 1", len(got.Interventions))
	}

	// Past the end date with an unseen intervention: overdue.
	f.svc.now = func() time.Time { return today.AddDate(0, 0, 5) }
	got, _ = f.svc.GetDetails(context.Background(), task.ID)
	if got.Status != status.TaskOverdue {
		t.Errorf("status = %s, want overdue", got.Status)
	}

	// Resolving the last unseen outcome completes the task.
	if _, err := f.svc.RecordOutcome(context.Background(), assignee, iv.ID, status.OutcomeSeen, ""); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	got, _ = f.svc.GetDetails(context.Background(), task.ID)
	if got.Status != status.TaskCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	mine := f.standaloneTask(t, today, today.AddDate(0, 0, 7))
	f.assigned(t, mine, f.homeStaff)
	f.standaloneTask(t, today, today.AddDate(0, 0, 7)) // unassigned

	actor := auth.Identity{UserID: f.homeStaff, Roles: []string{auth.RoleAHA}}
	items, total, err := f.svc.ListMine(context.Background(), actor, nil, "", 20, 0)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != mine.ID {
		t.Errorf("expected only the assigned task, got %d", total)
	}
}
