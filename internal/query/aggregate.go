package query

import (
	"context"
	"sort"
	"strconv"

	"ruraldata/internal/core"
	"ruraldata/internal/filter"
	"ruraldata/internal/storage"
)

// Aggregate groups the matching records by the given dimension and returns
// per-group record counts and dollar sums. Groups are keyed case-insensitively
// with the first-seen spelling kept for display, ordered by dollar sum
// descending with ties broken by group key ascending. Every matching record
// lands in exactly one group.
func (e *Executor) Aggregate(ctx context.Context, snap *storage.Snapshot, dim core.Field, c *filter.Compiled) ([]core.Group, error) {
	dl := e.newDeadline(ctx)

	type bucket struct {
		display string
		count   int
		sum     float64
	}
	buckets := make(map[string]*bucket)
	order := make([]string, 0)

	for i := range snap.Records {
		if i%deadlineStride == 0 && dl.exceeded() {
			return nil, core.NewEvaluationTimeout("aggregation exceeded its evaluation budget")
		}
		rec := &snap.Records[i]
		if !c.Matches(rec) {
			continue
		}

		var key, display string
		if dim.Kind == core.KindNumeric {
			n, _ := rec.NumericField(dim.Name)
			display = strconv.FormatFloat(n, 'f', -1, 64)
			key = display
		} else {
			raw, _ := rec.StringField(dim.Name)
			display = raw
			key = core.Normalize(raw)
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{display: display}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
		b.sum += rec.InvestmentDollars
	}

	groups := make([]core.Group, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		groups = append(groups, core.Group{Key: b.display, Count: b.count, DollarSum: b.sum})
	}

	numericKeys := dim.Kind == core.KindNumeric
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].DollarSum != groups[j].DollarSum {
			return groups[i].DollarSum > groups[j].DollarSum
		}
		if numericKeys {
			a, _ := strconv.ParseFloat(groups[i].Key, 64)
			b, _ := strconv.ParseFloat(groups[j].Key, 64)
			if a != b {
				return a < b
			}
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}
