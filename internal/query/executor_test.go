package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ruraldata/internal/core"
	"ruraldata/internal/filter"
	"ruraldata/internal/storage"
)

func testSnapshot() *storage.Snapshot {
	return storage.NewSnapshot(storage.Generation{ID: "test"}, []core.InvestmentRecord{
		{ID: 1, FiscalYear: 2023, StateName: "Washington", ProgramArea: "Electric Programs", InvestmentType: "Loan", InvestmentDollars: 100000, BorrowerName: "Pacific Rural Electric Cooperative"},
		{ID: 2, FiscalYear: 2023, StateName: "Oregon", ProgramArea: "Water and Environmental", InvestmentType: "Grant", InvestmentDollars: 634000, BorrowerName: "City of Eugene"},
		{ID: 3, FiscalYear: 2024, StateName: "Texas", ProgramArea: "Water and Environmental", InvestmentType: "Loan", InvestmentDollars: 500000, BorrowerName: "Brazos Water District"},
	})
}

func compile(t *testing.T, spec filter.Spec, snap *storage.Snapshot) *filter.Compiled {
	t.Helper()
	c, err := filter.Compile(spec, filter.DefaultLimits(), snap)
	if err != nil {
		t.Fatalf("Compile(%v): %v", spec, err)
	}
	return c
}

func TestExecutePagination(t *testing.T) {
	snap := testSnapshot()
	e := NewExecutor(100, 500, 0)
	ctx := context.Background()
	all := compile(t, filter.Spec{}, snap)

	t.Run("match all", func(t *testing.T) {
		page, err := e.Execute(ctx, snap, all, 0, 0)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if page.Total != 3 || len(page.Records) != 3 {
			t.Fatalf("total = %d, returned = %d", page.Total, len(page.Records))
		}
		if page.Limit != 100 {
			t.Fatalf("default limit = %d, want 100", page.Limit)
		}
	})

	t.Run("stable order across pages", func(t *testing.T) {
		var seen []int64
		for offset := 0; offset < 3; offset++ {
			page, err := e.Execute(ctx, snap, all, 1, offset)
			if err != nil {
				t.Fatalf("Execute(offset=%d): %v", offset, err)
			}
			if page.Total != 3 {
				t.Fatalf("total = %d at offset %d, want 3", page.Total, offset)
			}
			if len(page.Records) != 1 {
				t.Fatalf("returned = %d at offset %d", len(page.Records), offset)
			}
			seen = append(seen, page.Records[0].ID)
		}
		// Pages partition the matches in row order without gaps or overlaps.
		for i, id := range seen {
			if id != int64(i+1) {
				t.Fatalf("page walk = %v, want [1 2 3]", seen)
			}
		}
	})

	t.Run("offset past end", func(t *testing.T) {
		page, err := e.Execute(ctx, snap, all, 10, 50)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if len(page.Records) != 0 || page.Total != 3 {
			t.Fatalf("returned = %d, total = %d", len(page.Records), page.Total)
		}
	})

	t.Run("limit clamped to cap", func(t *testing.T) {
		capped := NewExecutor(100, 2, 0)
		page, err := capped.Execute(ctx, snap, all, 999, 0)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if len(page.Records) != 2 || page.Limit != 2 || page.Total != 3 {
			t.Fatalf("returned = %d, limit = %d, total = %d", len(page.Records), page.Limit, page.Total)
		}
	})

	t.Run("total independent of limit", func(t *testing.T) {
		filtered := compile(t, filter.Spec{"investment_type": "Loan"}, snap)
		for _, limit := range []int{1, 2, 100} {
			page, err := e.Execute(ctx, snap, filtered, limit, 0)
			if err != nil {
				t.Fatalf("Execute(limit=%d): %v", limit, err)
			}
			if page.Total != 2 {
				t.Fatalf("total = %d at limit %d, want 2", page.Total, limit)
			}
		}
	})
}

func TestExecuteCanceledContext(t *testing.T) {
	snap := testSnapshot()
	e := NewExecutor(100, 500, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, snap, compile(t, filter.Spec{}, snap), 0, 0)
	var qe *core.QueryError
	if !errors.As(err, &qe) || qe.Kind != core.ErrEvaluationTimeout {
		t.Fatalf("error = %v, want %s", err, core.ErrEvaluationTimeout)
	}

	_, err = e.Aggregate(ctx, snap, mustDim(t, "state_name"), compile(t, filter.Spec{}, snap))
	if !errors.As(err, &qe) || qe.Kind != core.ErrEvaluationTimeout {
		t.Fatalf("aggregate error = %v, want %s", err, core.ErrEvaluationTimeout)
	}
}

func TestExecuteBudgetExceededMidScan(t *testing.T) {
	// Enough records that the scan crosses several deadline checks, and a
	// budget so small the first check after the clock starts already fails.
	records := make([]core.InvestmentRecord, 3*2048+5)
	for i := range records {
		records[i] = core.InvestmentRecord{
			ID:                int64(i + 1),
			StateName:         "Washington",
			BorrowerName:      fmt.Sprintf("Borrower %d", i),
			InvestmentDollars: 1,
		}
	}
	snap := storage.NewSnapshot(storage.Generation{ID: "big"}, records)
	e := NewExecutor(100, 500, time.Nanosecond)
	ctx := context.Background()

	// The pattern passes compile-time budgets; only the scan deadline stops it.
	c := compile(t, filter.Spec{"borrower_name": map[string]any{"regex": "Borrower [0-9]+"}}, snap)

	var qe *core.QueryError
	_, err := e.Execute(ctx, snap, c, 0, 0)
	if !errors.As(err, &qe) || qe.Kind != core.ErrEvaluationTimeout {
		t.Fatalf("Execute error = %v, want %s", err, core.ErrEvaluationTimeout)
	}

	_, err = e.Aggregate(ctx, snap, mustDim(t, "state_name"), c)
	if !errors.As(err, &qe) || qe.Kind != core.ErrEvaluationTimeout {
		t.Fatalf("Aggregate error = %v, want %s", err, core.ErrEvaluationTimeout)
	}

	// The same scan completes when given a real budget.
	unhurried := NewExecutor(100, 500, time.Minute)
	page, err := unhurried.Execute(ctx, snap, c, 10, 0)
	if err != nil {
		t.Fatalf("Execute with ample budget: %v", err)
	}
	if page.Total != len(records) {
		t.Fatalf("total = %d, want %d", page.Total, len(records))
	}
}

func mustDim(t *testing.T, name string) core.Field {
	t.Helper()
	dim, ok := core.LookupDimension(name)
	if !ok {
		t.Fatalf("dimension %q not found", name)
	}
	return dim
}

func TestAggregateOrdering(t *testing.T) {
	snap := testSnapshot()
	e := NewExecutor(100, 500, 0)
	ctx := context.Background()

	c := compile(t, filter.Spec{"state_name": []any{"Washington", "Oregon"}}, snap)
	groups, err := e.Aggregate(ctx, snap, mustDim(t, "program_area"), c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := []core.Group{
		{Key: "Water and Environmental", Count: 1, DollarSum: 634000},
		{Key: "Electric Programs", Count: 1, DollarSum: 100000},
	}
	if len(groups) != len(want) {
		t.Fatalf("groups = %v, want %v", groups, want)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("group[%d] = %v, want %v", i, groups[i], want[i])
		}
	}
}

func TestAggregateTieBreak(t *testing.T) {
	snap := storage.NewSnapshot(storage.Generation{ID: "test"}, []core.InvestmentRecord{
		{StateName: "Texas", InvestmentDollars: 100},
		{StateName: "Alabama", InvestmentDollars: 100},
	})
	e := NewExecutor(100, 500, 0)

	groups, err := e.Aggregate(context.Background(), snap, mustDim(t, "state_name"), compile(t, filter.Spec{}, snap))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if groups[0].Key != "Alabama" || groups[1].Key != "Texas" {
		t.Fatalf("tie order = %v, want key ascending", groups)
	}
}

func TestAggregateNumericDimension(t *testing.T) {
	snap := storage.NewSnapshot(storage.Generation{ID: "test"}, []core.InvestmentRecord{
		{FiscalYear: 2024, InvestmentDollars: 50},
		{FiscalYear: 2019, InvestmentDollars: 50},
		{FiscalYear: 2023, InvestmentDollars: 900},
	})
	e := NewExecutor(100, 500, 0)

	groups, err := e.Aggregate(context.Background(), snap, mustDim(t, "fiscal_year"), compile(t, filter.Spec{}, snap))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	keys := []string{groups[0].Key, groups[1].Key, groups[2].Key}
	want := []string{"2023", "2019", "2024"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestAggregatePartition(t *testing.T) {
	snap := testSnapshot()
	e := NewExecutor(100, 500, 0)
	ctx := context.Background()
	all := compile(t, filter.Spec{}, snap)

	groups, err := e.Aggregate(ctx, snap, mustDim(t, "state_name"), all)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	var count int
	var sum float64
	for _, g := range groups {
		count += g.Count
		sum += g.DollarSum
	}
	page, err := e.Execute(ctx, snap, all, 500, 0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if count != page.Total {
		t.Fatalf("group counts sum to %d, total is %d", count, page.Total)
	}
	var wantSum float64
	for _, r := range page.Records {
		wantSum += r.InvestmentDollars
	}
	if sum != wantSum {
		t.Fatalf("group sums total %v, records total %v", sum, wantSum)
	}
}

func TestAggregateCaseInsensitiveGrouping(t *testing.T) {
	snap := storage.NewSnapshot(storage.Generation{ID: "test"}, []core.InvestmentRecord{
		{StateName: "Washington", InvestmentDollars: 1},
		{StateName: "WASHINGTON", InvestmentDollars: 2},
	})
	e := NewExecutor(100, 500, 0)

	groups, err := e.Aggregate(context.Background(), snap, mustDim(t, "state_name"), compile(t, filter.Spec{}, snap))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %v, want one case-folded group", groups)
	}
	if got := fmt.Sprintf("%s/%d/%v", groups[0].Key, groups[0].Count, groups[0].DollarSum); got != "Washington/2/3" {
		t.Fatalf("group = %s, want Washington/2/3", got)
	}
}
