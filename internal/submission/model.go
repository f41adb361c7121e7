package submission

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/communitytime/allocation-api/internal/validate"
)

// Text accepts a JSON string or number. Directory ids reach the UI as
// either depending on the upstream view.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return typeError(data, reflect.TypeOf(*t))
	}
	*t = Text(n.String())
	return nil
}

// Int accepts a JSON integer or a numeric string such as "3".
type Int int

func (n *Int) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return typeError(data, reflect.TypeOf(*n))
	}
	if t == "" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(string(t))
	if err != nil {
		return typeError(data, reflect.TypeOf(*n))
	}
	*n = Int(v)
	return nil
}

// Float accepts a JSON number or a numeric string such as "7.5".
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return typeError(data, reflect.TypeOf(*f))
	}
	if t == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(t), 64)
	if err != nil {
		return typeError(data, reflect.TypeOf(*f))
	}
	*f = Float(v)
	return nil
}

// typeError lets encoding/json attach the field path to the failure.
func typeError(data []byte, target reflect.Type) error {
	return &json.UnmarshalTypeError{Value: string(bytes.TrimSpace(data)), Type: target}
}

// Period identifies one monthly assessment window of a user.
type Period struct {
	Email          string
	Month          int
	Year           int
	SubmissionType string
}

// AssessmentEntry is one community of a monthly assessment.
type AssessmentEntry struct {
	CommunityID    Text               `json:"communityId"`
	Responses      validate.Responses `json:"responses"`
	OtherText      string             `json:"otherText"`
	TimePercentage *Int               `json:"timePercentage"`
}

type AssessmentRequest struct {
	UserEmail      string            `json:"userEmail"`
	UserName       string            `json:"userName"`
	Month          Int               `json:"month"`
	Year           Int               `json:"year"`
	SubmissionType string            `json:"submissionType"`
	AdminMode      bool              `json:"adminMode"`
	Entries        []AssessmentEntry `json:"entries"`
}

// TimeEntry is one community of a daily hours submission.
type TimeEntry struct {
	CommunityID Text     `json:"communityId"`
	Hours       *Float   `json:"hours"`
	Notes       string   `json:"notes"`
}

type TimeRequest struct {
	UserID    string      `json:"userId"`
	Date      string      `json:"date"`
	AdminMode bool        `json:"adminMode"`
	Entries   []TimeEntry `json:"entries"`
}

// DuplicateQuery is the body shared by the duplicate and status checks.
type DuplicateQuery struct {
	UserID         string `json:"userId"`
	Month          Int    `json:"month"`
	Year           Int    `json:"year"`
	SubmissionType string `json:"submissionType"`
	CommunityID    Text   `json:"communityId"`
	CommunityIDs   []Text `json:"communityIds"`
}

// Record is one persisted property_time row. Assessment rows fill Month,
// Year, SubmissionType and exactly one of the CQ/AQ groups; time rows fill
// Date and Hours.
type Record struct {
	SubmissionID   uuid.UUID
	PropertyID     string
	UserName       string
	Email          string
	Date           *time.Time
	Hours          *float64
	Month          *int
	Year           *int
	SubmissionType *string
	CQ             [5]*float64
	CQOther        *string
	AQ             [5]*float64
	AQOther        *string
	TimePercentage *int
	Notes          string
	SubmissionDate time.Time
}

// Receipt describes a committed submission.
type Receipt struct {
	SubmissionID   uuid.UUID
	Count          int
	SubmissionDate time.Time
}
