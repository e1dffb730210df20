package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/domain"
)

// Result is the output of Aggregate: per-key buckets sorted by key plus the
// totals across every bucket.
type Result struct {
	Buckets []domain.Breakdown
	Count   int
	Total   decimal.Decimal
}

func (r Result) Lookup(key string) (domain.Breakdown, bool) {
	for _, b := range r.Buckets {
		if b.Key == key {
			return b, true
		}
	}
	return domain.Breakdown{}, false
}

// Aggregate filters items to those whose timestamp falls in rng, groups them
// by key and sums amount per group. A nil at skips range filtering. Items
// with an empty key still count towards the totals but get no bucket.
func Aggregate[T any](items []T, rng DateRange, at func(T) time.Time, key func(T) string, amount func(T) decimal.Decimal) Result {
	buckets := map[string]*domain.Breakdown{}
	result := Result{Total: decimal.Zero}

	for _, item := range items {
		if at != nil && !rng.Contains(at(item)) {
			continue
		}
		value := amount(item)
		result.Count++
		result.Total = result.Total.Add(value)

		k := key(item)
		if k == "" {
			continue
		}
		b, ok := buckets[k]
		if !ok {
			b = &domain.Breakdown{Key: k, Total: decimal.Zero}
			buckets[k] = b
		}
		b.Count++
		b.Total = b.Total.Add(value)
	}

	result.Buckets = make([]domain.Breakdown, 0, len(buckets))
	for _, b := range buckets {
		result.Buckets = append(result.Buckets, *b)
	}
	sort.Slice(result.Buckets, func(i, j int) bool {
		return result.Buckets[i].Key < result.Buckets[j].Key
	})
	return result
}

// SumBy reduces items to a single total without range filtering.
func SumBy[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(amount(item))
	}
	return total
}

// TopByTotal orders buckets by total, largest first, and keeps at most n.
func TopByTotal(buckets []domain.Breakdown, n int) []domain.Breakdown {
	out := append([]domain.Breakdown(nil), buckets...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
