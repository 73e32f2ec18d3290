package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ActiveCounter counts active employees.
type ActiveCounter interface {
	ActiveCount(ctx context.Context) (int, error)
}

type Service struct {
	store  StoreAPI
	active ActiveCounter
}

func NewService(store StoreAPI, active ActiveCounter) *Service {
	return &Service{store: store, active: active}
}

func (s *Service) Get(ctx context.Context) (Company, error) {
	return s.store.Get(ctx)
}

func (s *Service) Update(ctx context.Context, c Company) (Company, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.CNSSNumber = strings.TrimSpace(c.CNSSNumber)
	if c.HeadcountMode == "" {
		c.HeadcountMode = HeadcountDeclared
	}
	switch {
	case c.Name == "":
		return Company{}, fmt.Errorf("%w: name is required", ErrInvalid)
	case c.EmployeeCount < 0:
		return Company{}, fmt.Errorf("%w: employeeCount must not be negative", ErrInvalid)
	case c.HeadcountMode != HeadcountDeclared && c.HeadcountMode != HeadcountActive:
		return Company{}, fmt.Errorf("%w: headcountMode must be declared or active", ErrInvalid)
	}
	return s.store.Save(ctx, c)
}

// EnsureDefaults creates the settings row on first start.
func (s *Service) EnsureDefaults(ctx context.Context, name string) error {
	_, err := s.store.Get(ctx)
	if !errors.Is(err, ErrNotInitialized) {
		return err
	}
	_, err = s.store.Save(ctx, Company{Name: name, HeadcountMode: HeadcountDeclared})
	return err
}

// Headcount is the company size used to pick the employer levy.
func (s *Service) Headcount(ctx context.Context) (int, error) {
	c, err := s.store.Get(ctx)
	if err != nil {
		return 0, err
	}
	if c.HeadcountMode == HeadcountActive {
		return s.active.ActiveCount(ctx)
	}
	return c.EmployeeCount, nil
}
