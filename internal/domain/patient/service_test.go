package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
)

// -- Mock Repository --

type mockRepo struct {
	store map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.store[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok || p.Hidden {
		return nil, apperror.NotFound("patient")
	}
	return p, nil
}

func (m *mockRepo) GetAny(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperror.NotFound("patient")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	existing, ok := m.store[p.ID]
	if !ok || existing.Hidden {
		return apperror.NotFound("patient")
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockRepo) SetHidden(_ context.Context, id uuid.UUID, hidden bool) error {
	p, ok := m.store[id]
	if !ok {
		return apperror.NotFound("patient")
	}
	p.Hidden = hidden
	return nil
}

func (m *mockRepo) List(_ context.Context, _ map[string]string, _ string, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.store {
		if !p.Hidden {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func validPatient() *Patient {
	return &Patient{
		MRN:         "MRN-1001",
		FullName:    "Jordan Riley",
		DateOfBirth: time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:      "F",
	}
}

// -- Service Tests --

func TestRegister_Success(t *testing.T) {
	svc := NewService(newMockRepo())
	p := validPatient()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name   string
		mutate func(*Patient)
		field  string
	}{
		{"missing mrn", func(p *Patient) { p.MRN = " " }, "mrn"},
		{"missing name", func(p *Patient) { p.FullName = "" }, "full_name"},
		{"missing dob", func(p *Patient) { p.DateOfBirth = time.Time{} }, "date_of_birth"},
		{"bad gender", func(p *Patient) { p.Gender = "X" }, "gender"},
	}
	for _, tc := range cases {
		p := validPatient()
		tc.mutate(p)
		err := svc.Register(context.Background(), p)
		if !apperror.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestToggleActive_HideAndRestore(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := validPatient()
	svc.Register(context.Background(), p)

	hidden, err := svc.ToggleActive(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hidden.Hidden {
		t.Error("expected patient hidden after first toggle")
	}
	if _, err := svc.Get(context.Background(), p.ID); !apperror.IsNotFound(err) {
		t.Error("hidden patient should answer not found")
	}

	restored, err := svc.ToggleActive(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.Hidden {
		t.Error("expected patient visible after second toggle")
	}
	if _, err := svc.Get(context.Background(), p.ID); err != nil {
		t.Errorf("restored patient should be readable: %v", err)
	}
}

func TestToggleActive_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.ToggleActive(context.Background(), uuid.New()); !apperror.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAge(t *testing.T) {
	p := &Patient{DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)}
	at := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	if got := p.Age(at); got != 35 {
		t.Errorf("day before birthday: expected 35, got %d", got)
	}
	at = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := p.Age(at); got != 36 {
		t.Errorf("on birthday: expected 36, got %d", got)
	}
}
