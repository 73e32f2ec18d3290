package payroll

import "context"

type StoreAPI interface {
	UpsertRecord(ctx context.Context, record Record) (Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	CountRecords(ctx context.Context, filter RecordFilter) (int, error)
	ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]Record, error)
	PeriodRecords(ctx context.Context, period string) ([]Record, error)
	DeleteRecord(ctx context.Context, id string) (Record, error)
	PreviousNet(ctx context.Context, employeeID, period string) (int64, bool, error)
	SetPayslipKey(ctx context.Context, id, key string) error
}

// ProfileSource yields the fixed pay components of employees.
type ProfileSource interface {
	PayProfile(ctx context.Context, employeeID string) (PayProfile, error)
	ActivePayProfiles(ctx context.Context) ([]PayProfile, error)
}

type HeadcountSource interface {
	Headcount(ctx context.Context) (int, error)
}

// JobRunner executes work through the tracked job queue.
type JobRunner interface {
	Enqueue(jobType string, run func(context.Context) (any, error)) bool
	RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error)
}

// PeriodListener is told whenever the records of a period change.
type PeriodListener interface {
	PeriodChanged(ctx context.Context, period string)
}
