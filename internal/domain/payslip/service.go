package payslip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paie/internal/domain/employee"
	"paie/internal/domain/payroll"
	"paie/internal/domain/settings"
	"paie/internal/platform/storage"
)

const contentType = "application/pdf"

type RecordSource interface {
	Get(ctx context.Context, id string) (payroll.Record, error)
	AttachPayslip(ctx context.Context, id, key string) error
}

type EmployeeSource interface {
	Get(ctx context.Context, id string) (employee.Employee, error)
}

type CompanySource interface {
	Get(ctx context.Context) (settings.Company, error)
}

type Service struct {
	records   RecordSource
	employees EmployeeSource
	company   CompanySource
	rates     payroll.Rates
	blobs     storage.Blobs
	now       func() time.Time
}

func NewService(records RecordSource, employees EmployeeSource, company CompanySource, rates payroll.Rates, blobs storage.Blobs) *Service {
	return &Service{records: records, employees: employees, company: company, rates: rates, blobs: blobs, now: time.Now}
}

func Key(record payroll.Record) string {
	return fmt.Sprintf("payslips/%s/%s-%s.pdf", record.Period, record.Matricule, record.ID)
}

// Generate renders the payslip of a record, stores it and links it to the
// record.
func (s *Service) Generate(ctx context.Context, recordID string) (string, []byte, error) {
	record, err := s.records.Get(ctx, recordID)
	if err != nil {
		return "", nil, err
	}
	emp, err := s.employees.Get(ctx, record.EmployeeID)
	if err != nil {
		return "", nil, err
	}
	company, err := s.company.Get(ctx)
	if err != nil && !errors.Is(err, settings.ErrNotInitialized) {
		return "", nil, err
	}

	pdf, err := Render(Data{
		CompanyName:    company.Name,
		CompanyAddress: company.Address,
		CNSSNumber:     company.CNSSNumber,
		Matricule:      record.Matricule,
		EmployeeName:   record.EmployeeName,
		Position:       emp.Position,
		Department:     emp.Department,
		BankAccount:    employee.MaskAccount(emp.BankAccount),
		Period:         record.Period,
		Record:         record,
		Rates:          AppliedRates(record, s.rates),
		GeneratedAt:    s.now(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("render payslip: %w", err)
	}

	key := Key(record)
	if err := s.blobs.Put(ctx, key, contentType, pdf); err != nil {
		return "", nil, err
	}
	if err := s.records.AttachPayslip(ctx, record.ID, key); err != nil {
		return "", nil, err
	}
	return key, pdf, nil
}

// Fetch returns the stored payslip, generating it on first access or after
// the record was recomputed.
func (s *Service) Fetch(ctx context.Context, recordID string) (payroll.Record, []byte, error) {
	record, err := s.records.Get(ctx, recordID)
	if err != nil {
		return payroll.Record{}, nil, err
	}
	if record.PayslipKey != "" {
		data, err := s.blobs.Get(ctx, record.PayslipKey)
		if err == nil {
			return record, data, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return payroll.Record{}, nil, err
		}
	}
	_, data, err := s.Generate(ctx, recordID)
	if err != nil {
		return payroll.Record{}, nil, err
	}
	return record, data, nil
}

// Filename suggests a download name for a record.
func Filename(record payroll.Record) string {
	return fmt.Sprintf("bulletin-%s-%s.pdf", record.Matricule, record.Period)
}
