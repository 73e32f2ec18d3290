package payroll

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// netVarianceRatio flags a net salary that moved by more than half against
// the previous recorded period.
const netVarianceRatio = 0.5

type Service struct {
	store     StoreAPI
	calc      *Calculator
	profiles  ProfileSource
	headcount HeadcountSource
	jobs      JobRunner
	listeners []PeriodListener
}

func NewService(store StoreAPI, calc *Calculator, profiles ProfileSource, headcount HeadcountSource, jobs JobRunner) *Service {
	return &Service{store: store, calc: calc, profiles: profiles, headcount: headcount, jobs: jobs}
}

func (s *Service) AddListener(l PeriodListener) {
	s.listeners = append(s.listeners, l)
}

func (s *Service) Calculator() *Calculator {
	return s.calc
}

// Simulate runs the engine without touching storage.
func (s *Service) Simulate(in Input) (Result, error) {
	return s.calc.Compute(in)
}

// Compute merges the employee's fixed pay with the variable inputs of one
// period and stores the result, replacing any earlier record for that period.
func (s *Service) Compute(ctx context.Context, actorID, employeeID, period string, variable VariablePay) (Record, error) {
	month, err := ParsePeriod(period)
	if err != nil {
		return Record{}, err
	}
	period = FormatPeriod(month)

	profile, err := s.profiles.PayProfile(ctx, employeeID)
	if err != nil {
		return Record{}, err
	}
	if !profile.Active {
		return Record{}, ErrInactive
	}
	count, err := s.headcount.Headcount(ctx)
	if err != nil {
		return Record{}, err
	}

	record, err := s.computeRecord(ctx, actorID, profile, period, variable, count)
	if err != nil {
		return Record{}, err
	}
	s.notify(ctx, period)
	return record, nil
}

// RunPeriod computes every active employee synchronously through the job
// runner so the run is tracked. variables is keyed by matricule.
func (s *Service) RunPeriod(ctx context.Context, actorID, period string, variables map[string]VariablePay) (RunSummary, error) {
	month, err := ParsePeriod(period)
	if err != nil {
		return RunSummary{}, err
	}
	period = FormatPeriod(month)

	out, err := s.jobs.RunNow(ctx, JobPayrollRun, func(ctx context.Context) (any, error) {
		return s.runPeriod(ctx, actorID, period, variables)
	})
	summary, _ := out.(RunSummary)
	return summary, err
}

// StartPeriodRun queues a period run and returns immediately.
func (s *Service) StartPeriodRun(actorID, period string, variables map[string]VariablePay) error {
	month, err := ParsePeriod(period)
	if err != nil {
		return err
	}
	period = FormatPeriod(month)

	queued := s.jobs.Enqueue(JobPayrollRun, func(ctx context.Context) (any, error) {
		return s.runPeriod(ctx, actorID, period, variables)
	})
	if !queued {
		return ErrQueueFull
	}
	return nil
}

func (s *Service) runPeriod(ctx context.Context, actorID, period string, variables map[string]VariablePay) (RunSummary, error) {
	summary := RunSummary{Period: period}
	profiles, err := s.profiles.ActivePayProfiles(ctx)
	if err != nil {
		return summary, err
	}
	count, err := s.headcount.Headcount(ctx)
	if err != nil {
		return summary, err
	}

	for _, profile := range profiles {
		if _, err := s.computeRecord(ctx, actorID, profile, period, variables[profile.Matricule], count); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			slog.Warn("payroll run employee failed", "period", period, "employeeId", profile.EmployeeID, "err", err)
			summary.Failed++
			summary.Failures = append(summary.Failures, RunFailure{
				EmployeeID: profile.EmployeeID,
				Matricule:  profile.Matricule,
				Reason:     err.Error(),
			})
			continue
		}
		summary.Processed++
	}
	summary.Unmatched = unmatchedMatricules(profiles, variables)
	if len(summary.Unmatched) > 0 {
		slog.Warn("payroll run variables without active employee", "period", period, "matricules", summary.Unmatched)
	}
	s.notify(ctx, period)
	return summary, nil
}

func unmatchedMatricules(profiles []PayProfile, variables map[string]VariablePay) []string {
	known := make(map[string]struct{}, len(profiles))
	for _, profile := range profiles {
		known[profile.Matricule] = struct{}{}
	}
	var unmatched []string
	for matricule := range variables {
		if _, ok := known[matricule]; !ok {
			unmatched = append(unmatched, matricule)
		}
	}
	slices.Sort(unmatched)
	return unmatched
}

func (s *Service) computeRecord(ctx context.Context, actorID string, profile PayProfile, period string, variable VariablePay, count int) (Record, error) {
	in := InputFromProfile(profile, variable, count)
	result, err := s.calc.Compute(in)
	if err != nil {
		return Record{}, err
	}

	previous, hasPrevious, err := s.store.PreviousNet(ctx, profile.EmployeeID, period)
	if err != nil {
		return Record{}, err
	}

	record, err := s.store.UpsertRecord(ctx, Record{
		EmployeeID: profile.EmployeeID,
		Period:     period,
		Input:      in,
		Result:     result,
		Warnings:   Warnings(profile, result, previous, hasPrevious),
		CreatedBy:  actorID,
	})
	if err != nil {
		return Record{}, err
	}
	record.Matricule = profile.Matricule
	record.EmployeeName = profile.FullName
	return record, nil
}

// Warnings lists review flags for a computed result. They never block a
// computation.
func Warnings(profile PayProfile, result Result, previousNet int64, hasPrevious bool) []string {
	warnings := []string{}
	if !profile.HasBankAccount {
		warnings = append(warnings, WarningMissingBank)
	}
	if result.NetSalary < 0 {
		warnings = append(warnings, WarningNegativeNet)
	}
	if result.TaxableClamped {
		warnings = append(warnings, WarningTaxableClamped)
	}
	if hasPrevious && previousNet > 0 {
		diff := result.NetSalary - previousNet
		if diff < 0 {
			diff = -diff
		}
		if float64(diff)/float64(previousNet) > netVarianceRatio {
			warnings = append(warnings, WarningNetVariance)
		}
	}
	return warnings
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.GetRecord(ctx, id)
}

func (s *Service) List(ctx context.Context, filter RecordFilter, limit, offset int) ([]Record, int, error) {
	if filter.Period != "" {
		month, err := ParsePeriod(filter.Period)
		if err != nil {
			return nil, 0, err
		}
		filter.Period = FormatPeriod(month)
	}
	total, err := s.store.CountRecords(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.store.ListRecords(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *Service) PeriodRecords(ctx context.Context, period string) ([]Record, error) {
	month, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	return s.store.PeriodRecords(ctx, FormatPeriod(month))
}

func (s *Service) Delete(ctx context.Context, id string) (Record, error) {
	record, err := s.store.DeleteRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	s.notify(ctx, record.Period)
	return record, nil
}

func (s *Service) AttachPayslip(ctx context.Context, id, key string) error {
	return s.store.SetPayslipKey(ctx, id, key)
}

// IsClientError reports whether err stems from caller input rather than
// infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidPeriod) || errors.Is(err, ErrInactive)
}

func (s *Service) notify(ctx context.Context, period string) {
	for _, l := range s.listeners {
		l.PeriodChanged(ctx, period)
	}
}
