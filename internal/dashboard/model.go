package dashboard

// Entry is one time entry row as rendered by the dashboards. Date is
// YYYY-MM-DD.
type Entry struct {
	PropertyID   string  `json:"property_id"`
	PropertyName *string `json:"property_name"`
	UserName     string  `json:"user_name"`
	Email        string  `json:"email_address"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	Notes        string  `json:"notes"`
}

type SummaryStats struct {
	TotalHours      float64 `json:"totalHours"`
	CommunityCount  int     `json:"communityCount"`
	LatestEntryDate *string `json:"latestEntryDate"`
}

type Breakdown struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// Report is the aggregate served by every dashboard.
type Report struct {
	SummaryStats       SummaryStats         `json:"summaryStats"`
	Entries            []Entry              `json:"entries"`
	CommunityBreakdown map[string]Breakdown `json:"communityBreakdown"`
}

// Period is one calendar month.
type Period struct {
	Month int
	Year  int
}
