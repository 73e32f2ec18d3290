package reports

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"paie/internal/domain/payroll"
	"paie/internal/platform/cache"
	"paie/internal/platform/jobs"
)

const historyLimit = 12

type StoreAPI interface {
	PeriodTotals(ctx context.Context, period string) (Totals, error)
	RecentPeriods(ctx context.Context, limit int) ([]PeriodTotals, error)
	EmployeeCoverage(ctx context.Context, period string) (int, int, error)
}

type JobRunStore interface {
	Count(ctx context.Context, jobType string) (int, error)
	List(ctx context.Context, jobType string, limit, offset int) ([]jobs.Run, error)
}

type CacheRecorder interface {
	RecordCache(hit bool)
}

type Service struct {
	store   StoreAPI
	runs    JobRunStore
	cache   cache.Cache
	ttl     time.Duration
	metrics CacheRecorder
	now     func() time.Time
}

// NewService builds the reporting service. A nil cache disables caching.
func NewService(store StoreAPI, runs JobRunStore, c cache.Cache, ttl time.Duration, metrics CacheRecorder) *Service {
	return &Service{store: store, runs: runs, cache: c, ttl: ttl, metrics: metrics, now: time.Now}
}

func dashboardKey(period string) string {
	return "dashboard:" + period
}

func (s *Service) Dashboard(ctx context.Context, period string) (Dashboard, error) {
	month, err := payroll.ParsePeriod(period)
	if err != nil {
		return Dashboard{}, err
	}
	period = payroll.FormatPeriod(month)

	if d, ok := s.cached(ctx, period); ok {
		return d, nil
	}

	totals, err := s.store.PeriodTotals(ctx, period)
	if err != nil {
		return Dashboard{}, err
	}
	active, pending, err := s.store.EmployeeCoverage(ctx, period)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{
		Period:         period,
		Totals:         totals,
		ActiveEmployee: active,
		Pending:        pending,
		GeneratedAt:    s.now().UTC(),
	}
	s.remember(ctx, d)
	return d, nil
}

func (s *Service) cached(ctx context.Context, period string) (Dashboard, bool) {
	if s.cache == nil {
		return Dashboard{}, false
	}
	raw, err := s.cache.Get(ctx, dashboardKey(period))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("dashboard cache read failed", "period", period, "err", err)
		}
		s.record(false)
		return Dashboard{}, false
	}
	var d Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		slog.Warn("dashboard cache entry unreadable", "period", period, "err", err)
		s.record(false)
		return Dashboard{}, false
	}
	s.record(true)
	return d, true
}

func (s *Service) remember(ctx context.Context, d Dashboard) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardKey(d.Period), raw, s.ttl); err != nil {
		slog.Warn("dashboard cache write failed", "period", d.Period, "err", err)
	}
}

func (s *Service) record(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCache(hit)
	}
}

// PeriodChanged drops the cached dashboard of a recomputed period.
func (s *Service) PeriodChanged(ctx context.Context, period string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardKey(period)); err != nil {
		slog.Warn("dashboard cache invalidation failed", "period", period, "err", err)
	}
}

// History returns the totals of the most recent periods, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]PeriodTotals, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	items, err := s.store.RecentPeriods(ctx, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []PeriodTotals{}
	}
	return items, nil
}

func (s *Service) JobRuns(ctx context.Context, jobType string, limit, offset int) (JobRunPage, error) {
	total, err := s.runs.Count(ctx, jobType)
	if err != nil {
		return JobRunPage{}, err
	}
	items, err := s.runs.List(ctx, jobType, limit, offset)
	if err != nil {
		return JobRunPage{}, err
	}
	if items == nil {
		items = []jobs.Run{}
	}
	return JobRunPage{Items: items, Total: total}, nil
}
