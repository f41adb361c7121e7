package validate

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	SubmissionManager    = "Manager"
	SubmissionAccounting = "Accounting"

	maxCommunityIDLength = 50
	minYear              = 2000
)

// Limits are the per-submission caps applied to incoming payloads.
type Limits struct {
	MaxEntries    int
	MaxNoteLength int
	MaxHours      float64
}

func DefaultLimits() Limits {
	return Limits{MaxEntries: 20, MaxNoteLength: 500, MaxHours: 24}
}

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	scriptScheme   = regexp.MustCompile(`(?i)javascript:`)
	eventAttribute = regexp.MustCompile(`(?i)on\w+\s*=`)
	markupChars    = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")
)

// IsValidEmail applies a deliberately loose address shape check.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidDate accepts YYYY-MM-DD strings naming a real calendar day.
func IsValidDate(value string) bool {
	if !datePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

// IsValidHours reports 0 <= h <= max.
func IsValidHours(h, max float64) bool {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return false
	}
	return h >= 0 && h <= max
}

func IsValidCommunityID(id string) bool {
	return id != "" && utf8.RuneCountInString(id) <= maxCommunityIDLength
}

func IsValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

// IsValidYear accepts 2000 through the year after now.
func IsValidYear(year int, now time.Time) bool {
	return year >= minYear && year <= now.Year()+1
}

func IsValidPercentage(p int) bool {
	return p >= 0 && p <= 100
}

func IsValidSubmissionType(kind string) bool {
	return kind == SubmissionManager || kind == SubmissionAccounting
}

// SanitizeText strips markup and script fragments from free text before storage.
func SanitizeText(s string) string {
	s = markupChars.Replace(s)
	s = scriptScheme.ReplaceAllString(s, "")
	s = eventAttribute.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
