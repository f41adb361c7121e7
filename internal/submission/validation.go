package submission

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/communitytime/allocation-api/internal/validate"
)

// Rules carries the configurable limits and the question ranges a
// submission is checked against.
type Rules struct {
	Limits            validate.Limits
	Ranges            func(submissionType string) []validate.Range
	QuestionsRequired bool
}

func checkPeriod(month, year int, now time.Time) *validate.FieldError {
	if month == 0 || year == 0 {
		return validate.Fieldf("month", "month and year are required")
	}
	if !validate.IsValidMonth(month) {
		return validate.Fieldf("month", "Invalid month. Must be between 1 and 12.")
	}
	if !validate.IsValidYear(year, now) {
		return validate.Fieldf("year", "Invalid year")
	}
	return nil
}

func (r Rules) checkAssessment(req AssessmentRequest, callerKnown bool, now time.Time) *validate.FieldError {
	if !callerKnown && strings.TrimSpace(req.UserEmail) == "" {
		return validate.Fieldf("userEmail", "userEmail is required")
	}
	if req.UserEmail != "" && !validate.IsValidEmail(strings.TrimSpace(req.UserEmail)) {
		return validate.Fieldf("userEmail", "userEmail must be a valid email address")
	}
	if !callerKnown && strings.TrimSpace(req.UserName) == "" {
		return validate.Fieldf("userName", "userName is required")
	}
	if fe := checkPeriod(int(req.Month), int(req.Year), now); fe != nil {
		return fe
	}
	if req.SubmissionType == "" {
		return validate.Fieldf("submissionType", "submissionType is required")
	}
	if !validate.IsValidSubmissionType(req.SubmissionType) {
		return validate.Fieldf("submissionType", "submissionType must be Manager or Accounting")
	}
	if len(req.Entries) == 0 {
		return validate.Fieldf("entries", "entries must be a non-empty array")
	}
	if len(req.Entries) > r.Limits.MaxEntries {
		return validate.Fieldf("entries", "Maximum %d entries allowed per submission", r.Limits.MaxEntries)
	}

	ranges := r.Ranges(req.SubmissionType)
	for i, entry := range req.Entries {
		n := i + 1
		if !validate.IsValidCommunityID(string(entry.CommunityID)) {
			return validate.Entryf("communityId", n, "Invalid community ID in entry %d", n)
		}
		if entry.TimePercentage == nil {
			return validate.Entryf("timePercentage", n, "Missing time percentage in entry %d", n)
		}
		if !validate.IsValidPercentage(int(*entry.TimePercentage)) {
			return validate.Entryf("timePercentage", n, "Invalid time percentage in entry %d. Must be between 0 and 100.", n)
		}
		if fe := validate.CheckResponses(entry.Responses, ranges, r.QuestionsRequired, n); fe != nil {
			return fe
		}
		if utf8.RuneCountInString(entry.OtherText) > r.Limits.MaxNoteLength {
			return validate.Entryf("otherText", n, "Other text too long in entry %d. Maximum %d characters.", n, r.Limits.MaxNoteLength)
		}
	}
	return nil
}

func (r Rules) checkTime(req TimeRequest) *validate.FieldError {
	if !validate.IsValidDate(req.Date) {
		return validate.Fieldf("date", "Valid date in YYYY-MM-DD format is required")
	}
	if len(req.Entries) == 0 {
		return validate.Fieldf("entries", "Entries must be a non-empty array")
	}
	if len(req.Entries) > r.Limits.MaxEntries {
		return validate.Fieldf("entries", "Maximum %d entries allowed per submission", r.Limits.MaxEntries)
	}
	for i, entry := range req.Entries {
		n := i + 1
		if !validate.IsValidCommunityID(string(entry.CommunityID)) {
			return validate.Entryf("communityId", n, "Invalid community ID in entry %d", n)
		}
		if entry.Hours == nil || !validate.IsValidHours(float64(*entry.Hours), r.Limits.MaxHours) {
			return validate.Entryf("hours", n, "Invalid hours value in entry %d. Must be between 0 and %g.", n, r.Limits.MaxHours)
		}
		if utf8.RuneCountInString(entry.Notes) > r.Limits.MaxNoteLength {
			return validate.Entryf("notes", n, "Notes too long in entry %d. Maximum %d characters.", n, r.Limits.MaxNoteLength)
		}
	}
	return nil
}

func checkQuery(q DuplicateQuery, callerKnown, needCommunity bool) *validate.FieldError {
	var missing string
	switch {
	case !callerKnown && strings.TrimSpace(q.UserID) == "":
		missing = "userId"
	case q.Month == 0:
		missing = "month"
	case q.Year == 0:
		missing = "year"
	case q.SubmissionType == "":
		missing = "submissionType"
	}
	if missing != "" {
		return validate.Fieldf(missing, "Missing required parameters")
	}
	if needCommunity && q.CommunityID == "" {
		return validate.Fieldf("communityId", "Missing required parameters")
	}
	return nil
}
