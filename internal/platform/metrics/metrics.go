package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	clientErrors    atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64
	payrollComputed atomic.Uint64
	payrollFailed   atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	switch {
	case status >= 500:
		c.errorRequests.Add(1)
	case status == 429:
		c.rateLimited.Add(1)
		c.clientErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

// RecordPayroll counts computed and rejected payroll records.
func (c *Collector) RecordPayroll(computed, failed int) {
	if computed > 0 {
		c.payrollComputed.Add(uint64(computed))
	}
	if failed > 0 {
		c.payrollFailed.Add(uint64(failed))
	}
}

func (c *Collector) RecordCache(hit bool) {
	if hit {
		c.cacheHits.Add(1)
		return
	}
	c.cacheMisses.Add(1)
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          c.errorRequests.Load(),
		"clientErrorsTotal":    c.clientErrors.Load(),
		"rateLimitedTotal":     c.rateLimited.Load(),
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"payrollComputedTotal": c.payrollComputed.Load(),
		"payrollRejectedTotal": c.payrollFailed.Load(),
		"dashboardCacheHits":   c.cacheHits.Load(),
		"dashboardCacheMisses": c.cacheMisses.Load(),
	}
}
