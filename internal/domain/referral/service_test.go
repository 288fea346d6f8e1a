package referral

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/directory"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/patient"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
)

// -- Mocks --

type mockRepo struct {
	store map[uuid.UUID]*Referral

	// loseCAS forces every compare-and-swap to report zero rows, as if a
	// concurrent writer won between the read and the update.
	loseCAS bool

	lastListParams map[string]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: map[uuid.UUID]*Referral{}}
}

func clone(r *Referral) *Referral {
	cp := *r
	cp.RequestedInterventionIDs = append([]uuid.UUID(nil), r.RequestedInterventionIDs...)
	return &cp
}

func (m *mockRepo) Create(_ context.Context, r *Referral) error {
	r.ID = uuid.New()
	m.store[r.ID] = clone(r)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Referral, error) {
	r, ok := m.store[id]
	if !ok || r.Hidden {
		return nil, apperror.NotFound("referral")
	}
	return clone(r), nil
}

func (m *mockRepo) GetAny(_ context.Context, id uuid.UUID) (*Referral, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, apperror.NotFound("referral")
	}
	return clone(r), nil
}

func (m *mockRepo) Update(_ context.Context, r *Referral) error {
	existing, ok := m.store[r.ID]
	if !ok || existing.Hidden {
		return apperror.NotFound("referral")
	}
	m.store[r.ID] = clone(r)
	return nil
}

func (m *mockRepo) SetHidden(_ context.Context, id uuid.UUID, hidden bool) error {
	r, ok := m.store[id]
	if !ok {
		return apperror.NotFound("referral")
	}
	r.Hidden = hidden
	return nil
}

func (m *mockRepo) casTarget(id uuid.UUID, decision status.TriageDecision) *Referral {
	if m.loseCAS {
		return nil
	}
	r, ok := m.store[id]
	if !ok || r.Hidden || r.Status != status.ReferralActive || r.TriageDecision != decision {
		return nil
	}
	return r
}

func (m *mockRepo) CASAccept(_ context.Context, id uuid.UUID, note *string) (bool, error) {
	r := m.casTarget(id, status.TriagePending)
	if r == nil {
		return false, nil
	}
	r.TriageDecision = status.TriageAccepted
	r.TriageNote = note
	return true, nil
}

func (m *mockRepo) CASReject(_ context.Context, id uuid.UUID, note string) (bool, error) {
	r := m.casTarget(id, status.TriagePending)
	if r == nil {
		return false, nil
	}
	r.Status = status.ReferralCancelled
	r.TriageDecision = status.TriageRejected
	r.TriageNote = &note
	return true, nil
}

func (m *mockRepo) CASRedirect(_ context.Context, id, newDestination uuid.UUID, note *string) (bool, error) {
	r := m.casTarget(id, status.TriagePending)
	if r == nil {
		return false, nil
	}
	r.DestinationDepartmentID = newDestination
	r.TriageNote = note
	return true, nil
}

func (m *mockRepo) CASComplete(_ context.Context, id uuid.UUID, outcomeNotes string, completedAt time.Time) (bool, error) {
	r := m.casTarget(id, status.TriageAccepted)
	if r == nil {
		return false, nil
	}
	r.Status = status.ReferralSuccess
	r.OutcomeNotes = &outcomeNotes
	r.CompletedAt = &completedAt
	return true, nil
}

func (m *mockRepo) List(_ context.Context, params map[string]string, _ string, _, _ int) ([]*Referral, int, error) {
	m.lastListParams = params
	var out []*Referral
	for _, r := range m.store {
		if !r.Hidden {
			out = append(out, clone(r))
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, r := range m.store {
		if !r.Hidden {
			out[status.PresentedReferral(r.Status, r.TriageDecision)]++
		}
	}
	return out, nil
}

func (m *mockRepo) CountByPriority(_ context.Context) (map[status.Priority]int, error) {
	out := map[status.Priority]int{}
	for _, r := range m.store {
		if !r.Hidden {
			out[r.Priority]++
		}
	}
	return out, nil
}

func (m *mockRepo) CountByDestination(_ context.Context) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	for _, r := range m.store {
		if !r.Hidden {
			out[r.DestinationDepartmentID]++
		}
	}
	return out, nil
}

func (m *mockRepo) CountPendingOutcomes(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
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
	interventions map[uuid.UUID]*directory.Intervention
}

func (m *mockDirectory) GetDepartment(_ context.Context, id uuid.UUID) (*directory.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, apperror.NotFound("department")
	}
	return d, nil
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

type fixture struct {
	repo      *mockRepo
	svc       *Service
	patientID uuid.UUID
	origin    uuid.UUID
	dest      uuid.UUID
	other     uuid.UUID
	far       uuid.UUID
	ivID      uuid.UUID
	otherIvID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()
	destSpecialty := uuid.New()
	otherSpecialty := uuid.New()

	f := &fixture{
		repo:      repo,
		patientID: uuid.New(),
		origin:    uuid.New(),
		dest:      uuid.New(),
		other:     uuid.New(),
		far:       uuid.New(),
		ivID:      uuid.New(),
		otherIvID: uuid.New(),
	}
	dir := &mockDirectory{
		departments: map[uuid.UUID]*directory.Department{
			f.origin: {ID: f.origin, SpecialtyID: otherSpecialty, DefaultPriority: status.PriorityLow},
			f.dest:   {ID: f.dest, SpecialtyID: destSpecialty, DefaultPriority: status.PriorityMedium},
			f.other:  {ID: f.other, SpecialtyID: destSpecialty, DefaultPriority: status.PriorityLow},
			f.far:    {ID: f.far, SpecialtyID: otherSpecialty, DefaultPriority: status.PriorityLow},
		},
		interventions: map[uuid.UUID]*directory.Intervention{
			f.ivID:      {ID: f.ivID, SpecialtyID: destSpecialty},
			f.otherIvID: {ID: f.otherIvID, SpecialtyID: otherSpecialty},
		},
	}
	patients := &mockPatients{visible: map[uuid.UUID]bool{f.patientID: true}}
	f.svc = NewService(repo, patients, dir, passthrough)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) newReferral() *Referral {
	return &Referral{
		PatientID:                f.patientID,
		OriginDepartmentID:       f.origin,
		DestinationDepartmentID:  f.dest,
		ReferringTherapistID:     uuid.New(),
		Diagnosis:                "Post-op mobility decline",
		Goals:                    "Independent transfers",
		RequestedInterventionIDs: []uuid.UUID{f.ivID},
	}
}

func (f *fixture) created(t *testing.T) *Referral {
	t.Helper()
	ref := f.newReferral()
	if err := f.svc.Create(context.Background(), ref); err != nil {
		t.Fatalf("create: %v", err)
	}
	return ref
}

func (f *fixture) accepted(t *testing.T) *Referral {
	t.Helper()
	ref := f.created(t)
	got, err := f.svc.Triage(context.Background(), ref.ID, ActionAccept, "", nil)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return got
}

// -- Tests --

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)
	ref := f.created(t)

	if ref.Status != status.ReferralActive {
		t.Errorf("stored status = %s, want active", ref.Status)
	}
	if ref.TriageDecision != status.TriagePending {
		t.Errorf("decision = %s, want pending", ref.TriageDecision)
	}
	if ref.PresentedStatus != "pending" {
		t.Errorf("presented status = %s, want pending", ref.PresentedStatus)
	}
	if ref.Priority != status.PriorityMedium {
		t.Errorf("priority = %d, want destination default 2", ref.Priority)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*Referral)
	}{
		{"origin equals destination", func(r *Referral) { r.DestinationDepartmentID = r.OriginDepartmentID }},
		{"unknown patient", func(r *Referral) { r.PatientID = uuid.New() }},
		{"unknown destination", func(r *Referral) { r.DestinationDepartmentID = uuid.New() }},
		{"missing therapist", func(r *Referral) { r.ReferringTherapistID = uuid.Nil }},
		{"unknown intervention", func(r *Referral) { r.RequestedInterventionIDs = []uuid.UUID{uuid.New()} }},
		{"intervention outside specialty", func(r *Referral) { r.RequestedInterventionIDs = []uuid.UUID{f.otherIvID} }},
	}
	for _, tc := range cases {
		ref := f.newReferral()
		tc.mutate(ref)
		if err := f.svc.Create(context.Background(), ref); !apperror.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestTriage_Accept(t *testing.T) {
	f := newFixture(t)
	got := f.accepted(t)

	if got.TriageDecision != status.TriageAccepted {
		t.Errorf("decision = %s, want accepted", got.TriageDecision)
	}
	if got.Status != status.ReferralActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if got.PresentedStatus != "active" {
		t.Errorf("presented status = %s, want active", got.PresentedStatus)
	}
}

func TestTriage_RejectRequiresNote(t *testing.T) {
	f := newFixture(t)
	ref := f.created(t)

	if _, err := f.svc.Triage(context.Background(), ref.ID, ActionReject, "", nil); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for empty note, got %v", err)
	}

	got, err := f.svc.Triage(context.Background(), ref.ID, ActionReject, "wrong service", nil)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != status.ReferralCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if got.TriageNote == nil || *got.TriageNote != "wrong service" {
		t.Error("rejection reason not stamped")
	}
}

func TestTriage_Redirect(t *testing.T) {
	f := newFixture(t)
	ref := f.created(t)

	if _, err := f.svc.Triage(context.Background(), ref.ID, ActionRedirect, "", &f.origin); !apperror.IsValidation(err) {
		t.Errorf("redirect to origin: expected validation error, got %v", err)
	}
	if _, err := f.svc.Triage(context.Background(), ref.ID, ActionRedirect, "", &f.dest); !apperror.IsValidation(err) {
		t.Errorf("redirect to current destination: expected validation error, got %v", err)
	}

	got, err := f.svc.Triage(context.Background(), ref.ID, ActionRedirect, "better fit", &f.other)
	if err != nil {
		t.Fatalf("redirect: %v", err)
	}
	if got.DestinationDepartmentID != f.other {
		t.Error("destination not swapped")
	}
	if got.TriageDecision != status.TriagePending {
		t.Errorf("decision = %s, want pending after redirect", got.TriageDecision)
	}
	if got.PresentedStatus != "pending" {
		t.Errorf("presented status = %s, want pending", got.PresentedStatus)
	}
}

func TestTriage_RedirectChecksCatalog(t *testing.T) {
	f := newFixture(t)
	ref := f.created(t)

	// The requested types belong to the current destination's specialty,
	// so a department from another specialty cannot take the referral.
	if _, err := f.svc.Triage(context.Background(), ref.ID, ActionRedirect, "", &f.far); !apperror.IsValidation(err) {
		t.Errorf("redirect outside the catalog: expected validation error, got %v", err)
	}
	got, err := f.svc.Get(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DestinationDepartmentID != f.dest {
		t.Error("failed redirect must not swap the destination")
	}
}

func TestTriage_AlreadyDecided(t *testing.T) {
	f := newFixture(t)
	ref := f.accepted(t)

	if _, err := f.svc.Triage(context.Background(), ref.ID, ActionAccept, "", nil); !apperror.IsInvalidState(err) {
		t.Errorf("expected invalid state, got %v", err)
	}
}

func TestTriage_ConcurrentLoss(t *testing.T) {
	f := newFixture(t)
	ref := f.created(t)

	f.repo.loseCAS = true
	if _, err := f.svc.Triage(context.Background(), ref.ID, ActionAccept, "", nil); !apperror.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ref := f.accepted(t)

	if _, err := f.svc.Complete(context.Background(), ref.ID, "  "); !apperror.IsValidation(err) {
		t.Fatalf("empty notes: expected validation error, got %v", err)
	}

	got, err := f.svc.Complete(context.Background(), ref.ID, "goals met, discharged home")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != status.ReferralSuccess {
		t.Errorf("status = %s, want success", got.Status)
	}
	if got.OutcomeNotes == nil || got.CompletedAt == nil {
		t.Error("outcome notes and completed date must be set")
	}
}

func TestComplete_WrongState(t *testing.T) {
	f := newFixture(t)
	ref := f.created(t)

	if _, err := f.svc.Complete(context.Background(), ref.ID, "notes"); !apperror.IsInvalidState(err) {
		t.Errorf("pending referral: expected invalid state, got %v", err)
	}
}

func TestComplete_ConcurrentLoss(t *testing.T) {
	f := newFixture(t)
	ref := f.accepted(t)

	f.repo.loseCAS = true
	if _, err := f.svc.Complete(context.Background(), ref.ID, "notes"); !apperror.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdate_TerminalFrozen(t *testing.T) {
	f := newFixture(t)
	ref := f.accepted(t)
	if _, err := f.svc.Complete(context.Background(), ref.ID, "done"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	upd := f.newReferral()
	upd.ID = ref.ID
	if err := f.svc.Update(context.Background(), upd); !apperror.IsInvalidState(err) {
		t.Errorf("expected invalid state, got %v", err)
	}
}

func TestUpdate_CloseOutStates(t *testing.T) {
	f := newFixture(t)
	ref := f.accepted(t)

	upd := f.newReferral()
	upd.ID = ref.ID
	upd.Status = status.ReferralDischarged
	if err := f.svc.Update(context.Background(), upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Status != status.ReferralDischarged {
		t.Errorf("status = %s, want discharged", upd.Status)
	}

	// Discharged referrals stay editable.
	upd.Status = status.ReferralActive
	if err := f.svc.Update(context.Background(), upd); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	// Terminal states are not reachable through update.
	upd.Status = status.ReferralSuccess
	if err := f.svc.Update(context.Background(), upd); !apperror.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestList_DirectionRequiresDepartment(t *testing.T) {
	f := newFixture(t)
	f.created(t)

	cases := []struct {
		name   string
		params map[string]string
		field  string
	}{
		{"missing department", map[string]string{"direction": "incoming"}, "department_id"},
		{"malformed department", map[string]string{"direction": "outgoing", "department_id": "not-a-uuid"}, "department_id"},
		{"unknown direction", map[string]string{"direction": "sideways", "department_id": uuid.NewString()}, "direction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.List(context.Background(), tc.params, "", 20, 0)
			if !apperror.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error should name %s: %v", tc.field, err)
			}
		})
	}
}

func TestList_DirectionPassedThrough(t *testing.T) {
	f := newFixture(t)
	f.created(t)

	params := map[string]string{"direction": "incoming", "department_id": f.dest.String()}
	items, total, err := f.svc.List(context.Background(), params, "", 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one referral, got %d", total)
	}
	if got := f.repo.lastListParams["direction"]; got != "incoming" {
		t.Errorf("direction not forwarded, got %q", got)
	}
	if got := f.repo.lastListParams["department_id"]; got != f.dest.String() {
		t.Errorf("department_id not forwarded, got %q", got)
	}
}

func TestToggleActive_PreservesStatus(t *testing.T) {
	f := newFixture(t)
	ref := f.accepted(t)

	hidden, err := f.svc.ToggleActive(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("hide: %v", err)
	}
	if !hidden.Hidden {
		t.Fatal("expected hidden")
	}
	if _, err := f.svc.Get(context.Background(), ref.ID); !apperror.IsNotFound(err) {
		t.Error("hidden referral should answer not found")
	}

	restored, err := f.svc.ToggleActive(context.Background(), ref.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Hidden {
		t.Fatal("expected visible")
	}
	if restored.Status != status.ReferralActive || restored.TriageDecision != status.TriageAccepted {
		t.Error("restore must bring back the pre-hide status")
	}
}
