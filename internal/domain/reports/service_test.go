package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"paie/internal/platform/cache"
	"paie/internal/platform/jobs"
)

type fakeStore struct {
	totals      Totals
	totalsCalls int
	periods     []PeriodTotals
	lastLimit   int
}

func (f *fakeStore) PeriodTotals(_ context.Context, period string) (Totals, error) {
	f.totalsCalls++
	return f.totals, nil
}

func (f *fakeStore) RecentPeriods(_ context.Context, limit int) ([]PeriodTotals, error) {
	f.lastLimit = limit
	return f.periods, nil
}

func (f *fakeStore) EmployeeCoverage(_ context.Context, period string) (int, int, error) {
	return 12, 2, nil
}

type fakeRuns struct{}

func (fakeRuns) Count(context.Context, string) (int, error) { return 1, nil }

func (fakeRuns) List(context.Context, string, int, int) ([]jobs.Run, error) {
	return []jobs.Run{{ID: "run-1", JobType: "payroll_period"}}, nil
}

type hitCounter struct {
	hits, misses int
}

func (h *hitCounter) RecordCache(hit bool) {
	if hit {
		h.hits++
		return
	}
	h.misses++
}

func TestDashboardUsesCacheUntilPeriodChanges(t *testing.T) {
	store := &fakeStore{totals: Totals{Headcount: 10, GrossSalary: 25_000_000}}
	counter := &hitCounter{}
	svc := NewService(store, fakeRuns{}, cache.NewMemory(), time.Minute, counter)
	ctx := context.Background()

	first, err := svc.Dashboard(ctx, "2026-03")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if first.Totals.GrossSalary != 25_000_000 || first.ActiveEmployee != 12 || first.Pending != 2 {
		t.Fatalf("unexpected dashboard %+v", first)
	}
	if _, err := svc.Dashboard(ctx, "2026-03"); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if store.totalsCalls != 1 {
		t.Fatalf("expected cached second read, store hit %d times", store.totalsCalls)
	}
	if counter.hits != 1 || counter.misses != 1 {
		t.Fatalf("unexpected cache counters %+v", counter)
	}

	svc.PeriodChanged(ctx, "2026-03")
	store.totals.GrossSalary = 26_000_000
	again, err := svc.Dashboard(ctx, "2026-03")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if again.Totals.GrossSalary != 26_000_000 || store.totalsCalls != 2 {
		t.Fatalf("expected fresh totals after invalidation, got %+v", again.Totals)
	}
}

func TestDashboardWithoutCache(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, fakeRuns{}, nil, time.Minute, nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.Dashboard(context.Background(), "2026-03"); err != nil {
			t.Fatalf("dashboard: %v", err)
		}
	}
	if store.totalsCalls != 2 {
		t.Fatalf("expected every call to reach the store, got %d", store.totalsCalls)
	}
	svc.PeriodChanged(context.Background(), "2026-03")
}

func TestDashboardRejectsBadPeriod(t *testing.T) {
	svc := NewService(&fakeStore{}, fakeRuns{}, nil, time.Minute, nil)
	if _, err := svc.Dashboard(context.Background(), "2026-13"); err == nil {
		t.Fatalf("expected invalid period error")
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (brokenCache) Delete(context.Context, ...string) error { return errors.New("down") }

func TestDashboardSurvivesCacheOutage(t *testing.T) {
	store := &fakeStore{totals: Totals{Headcount: 3}}
	svc := NewService(store, fakeRuns{}, brokenCache{}, time.Minute, nil)
	d, err := svc.Dashboard(context.Background(), "2026-03")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Totals.Headcount != 3 {
		t.Fatalf("unexpected totals %+v", d.Totals)
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, fakeRuns{}, nil, time.Minute, nil)
	items, err := svc.History(context.Background(), 500)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if store.lastLimit != historyLimit {
		t.Fatalf("expected limit %d, got %d", historyLimit, store.lastLimit)
	}
	if items == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestJobRunsPage(t *testing.T) {
	svc := NewService(&fakeStore{}, fakeRuns{}, nil, time.Minute, nil)
	page, err := svc.JobRuns(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("job runs: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != "run-1" {
		t.Fatalf("unexpected page %+v", page)
	}
}
