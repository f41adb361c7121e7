package dashboard

import (
	"time"
)

const latestDateLayout = "1/2/2006"

// Aggregate names every entry from names (falling back to "Property <id>")
// and folds the entries into totals, distinct communities, the latest date
// and hours per community.
func Aggregate(entries []Entry, names map[string]string) Report {
	report := Report{
		Entries:            make([]Entry, 0, len(entries)),
		CommunityBreakdown: make(map[string]Breakdown),
	}

	var latest string
	for _, e := range entries {
		name, ok := names[e.PropertyID]
		if !ok || name == "" {
			name = "Property " + e.PropertyID
		}
		e.PropertyName = &name
		report.Entries = append(report.Entries, e)

		report.SummaryStats.TotalHours += e.Hours
		if e.Date > latest {
			latest = e.Date
		}

		b, seen := report.CommunityBreakdown[e.PropertyID]
		if !seen {
			b.Name = name
		}
		b.Hours += e.Hours
		report.CommunityBreakdown[e.PropertyID] = b
	}

	report.SummaryStats.CommunityCount = len(report.CommunityBreakdown)
	if latest != "" {
		if day, err := time.Parse(time.DateOnly, latest); err == nil {
			formatted := day.Format(latestDateLayout)
			report.SummaryStats.LatestEntryDate = &formatted
		}
	}
	return report
}

// Empty is the report for a scope with nothing in it.
func Empty() Report {
	return Report{Entries: []Entry{}, CommunityBreakdown: map[string]Breakdown{}}
}
