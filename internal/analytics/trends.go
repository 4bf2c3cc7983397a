package analytics

import (
	"sort"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

type bucketKeyFunc func(t time.Time) (string, time.Time)

// AggregateTrends groups events into daily, weekly, monthly and day-of-week
// buckets. Empty input yields empty slices and nil peaks.
func AggregateTrends(events []domain.DistributionEvent, loc *time.Location) domain.TrendSeries {
	if loc == nil {
		loc = time.UTC
	}

	daily := rollup(events, func(t time.Time) (string, time.Time) {
		d := startOfDay(t, loc)
		return d.Format(localDateLayout), d
	})
	weekly := rollup(events, func(t time.Time) (string, time.Time) {
		w := weekStart(t, loc)
		return w.Format(localDateLayout), w
	})
	monthly := rollup(events, func(t time.Time) (string, time.Time) {
		t = t.In(loc)
		m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		return m.Format("2006-01"), m
	})
	weekdays := byWeekday(events, loc)

	return domain.TrendSeries{
		Daily:        daily,
		Weekly:       weekly,
		Monthly:      monthly,
		DayOfWeek:    weekdays,
		PeakDay:      peakBucket(daily),
		PeakWeek:     peakBucket(weekly),
		PeakMonth:    peakBucket(monthly),
		PeakWeekday:  peakBucket(weekdays),
		Demographics: demographicShares(weekly),
	}
}

func rollup(events []domain.DistributionEvent, keyOf bucketKeyFunc) []domain.TrendBucket {
	index := make(map[string]int)
	buckets := make([]domain.TrendBucket, 0)
	for _, e := range events {
		key, start := keyOf(e.OccurredAt)
		i, ok := index[key]
		if !ok {
			s := start
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, domain.TrendBucket{Key: key, Start: &s, ByCategory: make(domain.CategoryTotals)})
		}
		addToBucket(&buckets[i], e)
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Start.Before(*buckets[j].Start) })
	roundBuckets(buckets)
	return buckets
}

func byWeekday(events []domain.DistributionEvent, loc *time.Location) []domain.TrendBucket {
	if len(events) == 0 {
		return make([]domain.TrendBucket, 0)
	}
	buckets := make([]domain.TrendBucket, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		buckets[d] = domain.TrendBucket{Key: d.String(), ByCategory: make(domain.CategoryTotals)}
	}
	for _, e := range events {
		addToBucket(&buckets[e.OccurredAt.In(loc).Weekday()], e)
	}
	roundBuckets(buckets)
	return buckets
}

func addToBucket(b *domain.TrendBucket, e domain.DistributionEvent) {
	b.Events++
	b.TotalWeight += nonNegative(e.TotalWeight)
	b.ClientsServed += e.ClientsServed
	b.AgeGroups.Child += e.AgeGroups.Child
	b.AgeGroups.Adult += e.AgeGroups.Adult
	b.AgeGroups.Elder += e.AgeGroups.Elder
	for c, w := range e.CategoryTotals {
		b.ByCategory[c] += nonNegative(w)
	}
}

func roundBuckets(buckets []domain.TrendBucket) {
	for i := range buckets {
		buckets[i].TotalWeight = round2(buckets[i].TotalWeight)
		for c, w := range buckets[i].ByCategory {
			buckets[i].ByCategory[c] = round2(w)
		}
	}
}

// peakBucket returns the bucket with the highest total weight; the earliest
// bucket wins ties.
func peakBucket(buckets []domain.TrendBucket) *domain.TrendBucket {
	var peak *domain.TrendBucket
	for i := range buckets {
		if buckets[i].Events == 0 {
			continue
		}
		if peak == nil || buckets[i].TotalWeight > peak.TotalWeight {
			b := buckets[i]
			peak = &b
		}
	}
	return peak
}

func demographicShares(weekly []domain.TrendBucket) []domain.DemographicShare {
	out := make([]domain.DemographicShare, 0, len(weekly))
	for _, b := range weekly {
		total := b.AgeGroups.Total()
		share := domain.DemographicShare{Week: b.Key, TotalCount: total}
		if total > 0 {
			share.ChildPct = round2(float64(b.AgeGroups.Child) / float64(total) * 100)
			share.AdultPct = round2(float64(b.AgeGroups.Adult) / float64(total) * 100)
			share.ElderPct = round2(float64(b.AgeGroups.Elder) / float64(total) * 100)
		}
		out = append(out, share)
	}
	return out
}

// weekStart returns local midnight of the Monday starting t's ISO week.
func weekStart(t time.Time, loc *time.Location) time.Time {
	d := startOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
