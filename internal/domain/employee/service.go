package employee

import (
	"context"

	"paie/internal/domain/payroll"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, emp Employee) (Employee, error) {
	Normalize(&emp)
	if err := Validate(emp); err != nil {
		return Employee{}, err
	}
	return s.store.Create(ctx, emp)
}

func (s *Service) Update(ctx context.Context, id string, emp Employee) (Employee, error) {
	emp.ID = id
	Normalize(&emp)
	if err := Validate(emp); err != nil {
		return Employee{}, err
	}
	return s.store.Update(ctx, emp)
}

// Upsert validates and stores emp keyed by matricule, as batch imports do.
func (s *Service) Upsert(ctx context.Context, emp Employee) (Employee, bool, error) {
	Normalize(&emp)
	if err := Validate(emp); err != nil {
		return Employee{}, false, err
	}
	return s.store.UpsertByMatricule(ctx, emp)
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx, Filter{Status: StatusActive})
}

func (s *Service) PayProfile(ctx context.Context, employeeID string) (payroll.PayProfile, error) {
	emp, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return payroll.PayProfile{}, err
	}
	return emp.PayProfile(), nil
}

func (s *Service) ActivePayProfiles(ctx context.Context) ([]payroll.PayProfile, error) {
	employees, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]payroll.PayProfile, 0, len(employees))
	for _, emp := range employees {
		out = append(out, emp.PayProfile())
	}
	return out, nil
}
