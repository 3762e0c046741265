// Package query evaluates compiled filters against a record snapshot:
// paginated record retrieval and grouped aggregation. Both walk the snapshot
// in stored row order under a per-request evaluation deadline.
package query

import (
	"context"
	"time"

	"ruraldata/internal/core"
	"ruraldata/internal/filter"
	"ruraldata/internal/storage"
)

// deadlineStride is how many rows are scanned between deadline checks.
const deadlineStride = 2048

// Executor runs queries with the configured pagination caps and time budget.
type Executor struct {
	DefaultLimit int
	MaxLimit     int
	// Budget bounds the wall time of a single evaluation. Zero means the
	// request context alone bounds it.
	Budget time.Duration
}

func NewExecutor(defaultLimit, maxLimit int, budget time.Duration) *Executor {
	return &Executor{DefaultLimit: defaultLimit, MaxLimit: maxLimit, Budget: budget}
}

// clampPage resolves client-supplied pagination against the executor caps.
func (e *Executor) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = e.DefaultLimit
	}
	if e.MaxLimit > 0 && limit > e.MaxLimit {
		limit = e.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type deadline struct {
	ctx context.Context
	at  time.Time
}

func (e *Executor) newDeadline(ctx context.Context) deadline {
	d := deadline{ctx: ctx}
	if e.Budget > 0 {
		d.at = time.Now().Add(e.Budget)
	}
	return d
}

func (d deadline) exceeded() bool {
	if d.ctx.Err() != nil {
		return true
	}
	return !d.at.IsZero() && time.Now().After(d.at)
}

// Execute walks the snapshot in stored row order and returns the requested
// page plus the total match count. The total is computed over the full scan,
// so it does not depend on limit or offset; an offset past the end yields an
// empty page with the correct total.
func (e *Executor) Execute(ctx context.Context, snap *storage.Snapshot, c *filter.Compiled, limit, offset int) (core.Page, error) {
	limit, offset = e.clampPage(limit, offset)
	dl := e.newDeadline(ctx)

	page := core.Page{
		Records: []core.InvestmentRecord{},
		Limit:   limit,
		Offset:  offset,
	}
	for i := range snap.Records {
		if i%deadlineStride == 0 && dl.exceeded() {
			return core.Page{}, core.NewEvaluationTimeout("query exceeded its evaluation budget")
		}
		if !c.Matches(&snap.Records[i]) {
			continue
		}
		if page.Total >= offset && len(page.Records) < limit {
			page.Records = append(page.Records, snap.Records[i])
		}
		page.Total++
	}
	return page, nil
}
