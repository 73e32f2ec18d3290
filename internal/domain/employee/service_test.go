package employee

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeStore struct {
	byID   map[string]Employee
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]Employee{}}
}

func (f *fakeStore) Create(_ context.Context, emp Employee) (Employee, error) {
	for _, existing := range f.byID {
		if existing.Matricule == emp.Matricule {
			return Employee{}, ErrDuplicate
		}
	}
	f.nextID++
	emp.ID = fmt.Sprintf("e%d", f.nextID)
	f.byID[emp.ID] = emp
	return emp, nil
}

func (f *fakeStore) Update(_ context.Context, emp Employee) (Employee, error) {
	if _, ok := f.byID[emp.ID]; !ok {
		return Employee{}, ErrNotFound
	}
	f.byID[emp.ID] = emp
	return emp, nil
}

func (f *fakeStore) UpsertByMatricule(ctx context.Context, emp Employee) (Employee, bool, error) {
	for id, existing := range f.byID {
		if existing.Matricule == emp.Matricule {
			emp.ID = id
			f.byID[id] = emp
			return emp, false, nil
		}
	}
	created, err := f.Create(ctx, emp)
	return created, true, err
}

func (f *fakeStore) Get(_ context.Context, id string) (Employee, error) {
	emp, ok := f.byID[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return emp, nil
}

func (f *fakeStore) Count(ctx context.Context, filter Filter) (int, error) {
	items, _ := f.List(ctx, filter, 0, 0)
	return len(items), nil
}

func (f *fakeStore) List(_ context.Context, filter Filter, _, _ int) ([]Employee, error) {
	var out []Employee
	for _, emp := range f.byID {
		if filter.Status != "" && emp.Status != filter.Status {
			continue
		}
		out = append(out, emp)
	}
	return out, nil
}

func (f *fakeStore) ListActive(ctx context.Context) ([]Employee, error) {
	return f.List(ctx, Filter{Status: StatusActive}, 0, 0)
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func TestServiceCreateValidates(t *testing.T) {
	svc := NewService(newFakeStore())
	if _, err := svc.Create(context.Background(), Employee{Matricule: "M1"}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	emp, err := svc.Create(context.Background(), sampleEmployee())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if emp.ID == "" || emp.Matricule != "M001" {
		t.Fatalf("unexpected employee %+v", emp)
	}
	if _, err := svc.Create(context.Background(), sampleEmployee()); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate matricule, got %v", err)
	}
}

func TestServiceUpsertAndProfiles(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	first, created, err := svc.Upsert(ctx, sampleEmployee())
	if err != nil || !created {
		t.Fatalf("expected insert, got created=%v err=%v", created, err)
	}
	update := sampleEmployee()
	update.BaseSalary = 3_000_000
	second, created, err := svc.Upsert(ctx, update)
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("expected update of %s, got %+v created=%v err=%v", first.ID, second, created, err)
	}

	other := sampleEmployee()
	other.Matricule = "M002"
	other.Status = StatusInactive
	if _, _, err := svc.Upsert(ctx, other); err != nil {
		t.Fatalf("upsert inactive: %v", err)
	}

	profiles, err := svc.ActivePayProfiles(ctx)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].BaseSalary != 3_000_000 {
		t.Fatalf("unexpected active profiles %+v", profiles)
	}
	count, err := svc.ActiveCount(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 active employee, got %d (%v)", count, err)
	}

	p, err := svc.PayProfile(ctx, first.ID)
	if err != nil || p.Matricule != "M001" {
		t.Fatalf("unexpected profile %+v (%v)", p, err)
	}
	if _, err := svc.PayProfile(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
