package payroll

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

type fakeRecordStore struct {
	records map[string]Record
	nextID  int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]Record{}}
}

func (f *fakeRecordStore) UpsertRecord(_ context.Context, record Record) (Record, error) {
	for id, existing := range f.records {
		if existing.EmployeeID == record.EmployeeID && existing.Period == record.Period {
			record.ID = id
			record.CreatedAt = existing.CreatedAt
			record.UpdatedAt = time.Now()
			f.records[id] = record
			return record, nil
		}
	}
	f.nextID++
	record.ID = fmt.Sprintf("rec-%d", f.nextID)
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeRecordStore) GetRecord(_ context.Context, id string) (Record, error) {
	record, ok := f.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return record, nil
}

func (f *fakeRecordStore) CountRecords(ctx context.Context, filter RecordFilter) (int, error) {
	records, _ := f.ListRecords(ctx, filter, 1000, 0)
	return len(records), nil
}

func (f *fakeRecordStore) ListRecords(_ context.Context, filter RecordFilter, limit, offset int) ([]Record, error) {
	var out []Record
	for _, r := range f.records {
		if filter.Period != "" && r.Period != filter.Period {
			continue
		}
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRecordStore) PeriodRecords(ctx context.Context, period string) ([]Record, error) {
	return f.ListRecords(ctx, RecordFilter{Period: period}, 1000, 0)
}

func (f *fakeRecordStore) DeleteRecord(_ context.Context, id string) (Record, error) {
	record, ok := f.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	delete(f.records, id)
	return record, nil
}

func (f *fakeRecordStore) PreviousNet(_ context.Context, employeeID, period string) (int64, bool, error) {
	var best Record
	found := false
	for _, r := range f.records {
		if r.EmployeeID == employeeID && r.Period < period && (!found || r.Period > best.Period) {
			best = r
			found = true
		}
	}
	return best.Result.NetSalary, found, nil
}

func (f *fakeRecordStore) SetPayslipKey(_ context.Context, id, key string) error {
	record, ok := f.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	record.PayslipKey = key
	f.records[id] = record
	return nil
}

type fakeProfiles map[string]PayProfile

func (f fakeProfiles) PayProfile(_ context.Context, id string) (PayProfile, error) {
	p, ok := f[id]
	if !ok {
		return PayProfile{}, errors.New("employee not found")
	}
	return p, nil
}

func (f fakeProfiles) ActivePayProfiles(context.Context) ([]PayProfile, error) {
	var out []PayProfile
	for _, p := range f {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

type fixedHeadcount int

func (h fixedHeadcount) Headcount(context.Context) (int, error) {
	return int(h), nil
}

type inlineJobs struct {
	ran    []string
	queued []func(context.Context) (any, error)
}

func (j *inlineJobs) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	j.queued = append(j.queued, run)
	return true
}

func (j *inlineJobs) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	j.ran = append(j.ran, jobType)
	return run(ctx)
}

type periodRecorder struct {
	periods []string
}

func (p *periodRecorder) PeriodChanged(_ context.Context, period string) {
	p.periods = append(p.periods, period)
}

func newTestService(t *testing.T, profiles fakeProfiles, headcount int) (*Service, *fakeRecordStore, *inlineJobs, *periodRecorder) {
	t.Helper()
	calc, err := NewCalculator(DefaultRates())
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	store := newFakeRecordStore()
	jobs := &inlineJobs{}
	listener := &periodRecorder{}
	svc := NewService(store, calc, profiles, fixedHeadcount(headcount), jobs)
	svc.AddListener(listener)
	return svc, store, jobs, listener
}

func TestServiceComputeMergesVariablePay(t *testing.T) {
	profiles := fakeProfiles{
		"e1": {EmployeeID: "e1", Matricule: "M001", FullName: "Aissatou Diallo", Active: true, HasBankAccount: true, BaseSalary: 5_000_000},
	}
	svc, store, _, listener := newTestService(t, profiles, 10)

	record, err := svc.Compute(context.Background(), "u1", "e1", "2025-03", VariablePay{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if record.Result.NetSalary != 4_625_000 {
		t.Fatalf("expected net 4,625,000, got %d", record.Result.NetSalary)
	}
	if record.Result.Employer.Levy.Kind != LevyApprenticeship {
		t.Fatalf("expected apprenticeship levy with 10 employees, got %s", record.Result.Employer.Levy.Kind)
	}
	if len(record.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", record.Warnings)
	}
	if record.Matricule != "M001" || record.CreatedBy != "u1" {
		t.Fatalf("unexpected record metadata: %+v", record)
	}

	again, err := svc.Compute(context.Background(), "u1", "e1", "2025-03", VariablePay{Bonus: 500_000})
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if again.ID != record.ID || len(store.records) != 1 {
		t.Fatalf("expected recompute to replace the record, have %d records", len(store.records))
	}
	if again.Input.Bonus != 500_000 || again.Result.GrossSalary != 5_500_000 {
		t.Fatalf("expected bonus merged into gross, got %+v", again.Input)
	}
	if !reflect.DeepEqual(listener.periods, []string{"2025-03", "2025-03"}) {
		t.Fatalf("unexpected period notifications %v", listener.periods)
	}
}

func TestServiceComputeRejectsInactiveAndBadPeriod(t *testing.T) {
	profiles := fakeProfiles{
		"e1": {EmployeeID: "e1", Matricule: "M001", Active: false, BaseSalary: 1_000_000},
	}
	svc, _, _, _ := newTestService(t, profiles, 10)

	if _, err := svc.Compute(context.Background(), "u1", "e1", "2025-03", VariablePay{}); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
	if _, err := svc.Compute(context.Background(), "u1", "e1", "03/2025", VariablePay{}); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected period error, got %v", err)
	}
	if !IsClientError(ErrInactive) || IsClientError(errors.New("db down")) {
		t.Fatal("unexpected client error classification")
	}
}

func TestServiceRunPeriodReportsFailures(t *testing.T) {
	profiles := fakeProfiles{
		"e1": {EmployeeID: "e1", Matricule: "M001", Active: true, HasBankAccount: true, BaseSalary: 2_000_000},
		"e2": {EmployeeID: "e2", Matricule: "M002", Active: true, BaseSalary: 0},
		"e3": {EmployeeID: "e3", Matricule: "M003", Active: false, BaseSalary: 900_000},
	}
	svc, store, jobs, listener := newTestService(t, profiles, 40)

	variables := map[string]VariablePay{"M001": {OvertimeHours: OvertimeHours{NormalFirst: 4}}}
	summary, err := svc.RunPeriod(context.Background(), "u1", "2025-04", variables)
	if err != nil {
		t.Fatalf("run period: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Failures[0].Matricule != "M002" {
		t.Fatalf("expected M002 to fail, got %+v", summary.Failures)
	}
	if !reflect.DeepEqual(jobs.ran, []string{JobPayrollRun}) {
		t.Fatalf("expected run through job runner, got %v", jobs.ran)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.records))
	}
	for _, r := range store.records {
		if r.Result.Overtime.TotalHours != 4 {
			t.Fatalf("expected overtime variables applied, got %+v", r.Result.Overtime)
		}
		if r.Result.Employer.Levy.Kind != LevyVocationalFund {
			t.Fatalf("expected vocational fund levy with 40 employees, got %s", r.Result.Employer.Levy.Kind)
		}
	}
	if len(listener.periods) != 1 || listener.periods[0] != "2025-04" {
		t.Fatalf("unexpected notifications %v", listener.periods)
	}
}

func TestServiceRunPeriodListsUnmatchedVariables(t *testing.T) {
	profiles := fakeProfiles{
		"e1": {EmployeeID: "e1", Matricule: "M001", Active: true, HasBankAccount: true, BaseSalary: 2_000_000},
		"e3": {EmployeeID: "e3", Matricule: "M003", Active: false, BaseSalary: 900_000},
	}
	svc, store, _, _ := newTestService(t, profiles, 40)

	variables := map[string]VariablePay{
		"M001":  {Bonus: 100_000},
		"M01":   {Bonus: 250_000},
		"M003":  {Bonus: 50_000},
		"M0001": {ExtraAllowances: 10_000},
	}
	summary, err := svc.RunPeriod(context.Background(), "u1", "2025-05", variables)
	if err != nil {
		t.Fatalf("run period: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !reflect.DeepEqual(summary.Unmatched, []string{"M0001", "M003", "M01"}) {
		t.Fatalf("unexpected unmatched matricules %v", summary.Unmatched)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.records))
	}

	clean, err := svc.RunPeriod(context.Background(), "u1", "2025-05", map[string]VariablePay{"M001": {}})
	if err != nil {
		t.Fatalf("run period: %v", err)
	}
	if clean.Unmatched != nil {
		t.Fatalf("expected no unmatched matricules, got %v", clean.Unmatched)
	}
}

func TestServiceStartPeriodRunQueues(t *testing.T) {
	profiles := fakeProfiles{
		"e1": {EmployeeID: "e1", Matricule: "M001", Active: true, BaseSalary: 2_000_000},
	}
	svc, store, jobs, _ := newTestService(t, profiles, 5)

	if err := svc.StartPeriodRun("u1", "2025-05", nil); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if len(jobs.queued) != 1 || len(store.records) != 0 {
		t.Fatalf("expected one queued job and no records yet")
	}
	out, err := jobs.queued[0](context.Background())
	if err != nil {
		t.Fatalf("queued run: %v", err)
	}
	if summary := out.(RunSummary); summary.Processed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestWarnings(t *testing.T) {
	profile := PayProfile{HasBankAccount: false}
	result := Result{NetSalary: -17_500, TaxableClamped: true}
	got := Warnings(profile, result, 0, false)
	want := []string{WarningMissingBank, WarningNegativeNet, WarningTaxableClamped}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	profile.HasBankAccount = true
	if got := Warnings(profile, Result{NetSalary: 1_600_000}, 1_000_000, true); !reflect.DeepEqual(got, []string{WarningNetVariance}) {
		t.Fatalf("expected variance warning, got %v", got)
	}
	if got := Warnings(profile, Result{NetSalary: 1_400_000}, 1_000_000, true); len(got) != 0 {
		t.Fatalf("expected no warning within tolerance, got %v", got)
	}
}

func TestServiceDeleteNotifies(t *testing.T) {
	profiles := fakeProfiles{
		"e1": {EmployeeID: "e1", Matricule: "M001", Active: true, HasBankAccount: true, BaseSalary: 1_500_000},
	}
	svc, _, _, listener := newTestService(t, profiles, 5)
	record, err := svc.Compute(context.Background(), "", "e1", "2025-06", VariablePay{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if _, err := svc.Delete(context.Background(), record.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if len(listener.periods) != 2 {
		t.Fatalf("expected compute and delete notifications, got %v", listener.periods)
	}
}
