package medicalhistory

import "sort"

// Metrics describe utilization only: how many records of each type exist
// and when they were made. Clinical content (diagnoses, medications,
// document contents) never feeds a metric; that boundary is product
// policy.

// Summarize counts the entries per type and attaches the daily trend.
// Types with no entries report zero, and the counts always sum to Total.
func Summarize(entries []*TimelineEntry) MetricsSummary {
	counts := zeroCounts()
	for _, e := range entries {
		counts[e.Type]++
	}
	return MetricsSummary{
		Total:  len(entries),
		Counts: counts,
		Trend:  Trend(entries),
	}
}

// Trend buckets the entries by UTC calendar day: one point per distinct
// day, ascending, each with per-type sub-counts.
func Trend(entries []*TimelineEntry) []TrendPoint {
	byDay := make(map[string]map[string]int)
	for _, e := range entries {
		day := e.Date.UTC().Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = zeroCounts()
		}
		byDay[day][e.Type]++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		points = append(points, TrendPoint{Date: day, Counts: byDay[day]})
	}
	return points
}

func zeroCounts() map[string]int {
	counts := make(map[string]int, len(EntryTypes))
	for _, t := range EntryTypes {
		counts[t] = 0
	}
	return counts
}
