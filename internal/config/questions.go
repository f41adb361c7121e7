package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/communitytime/allocation-api/internal/validate"
)

// Question is one prompt of an assessment together with its accepted range.
type Question struct {
	Text string  `json:"text" yaml:"text"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// QuestionSets maps a submission type to its ordered questions.
type QuestionSets map[string][]Question

// Ranges returns the validation ranges for a submission type.
func (q QuestionSets) Ranges(submissionType string) []validate.Range {
	questions := q[submissionType]
	out := make([]validate.Range, len(questions))
	for i, question := range questions {
		out[i] = validate.Range{Min: question.Min, Max: question.Max}
	}
	return out
}

var (
	timeScale      = Question{Min: 0, Max: 4}
	agreementScale = Question{Min: 1, Max: 5}
	weeklyHours    = Question{Min: 0, Max: 168}
)

func with(q Question, text string) Question {
	q.Text = text
	return q
}

// DefaultQuestionSets returns the built-in Manager and Accounting questionnaires.
func DefaultQuestionSets() QuestionSets {
	return QuestionSets{
		validate.SubmissionManager: {
			with(timeScale, "Board Communication & Meeting Management: How much time do you spend on board communications, meetings, and follow-up tasks for this community?"),
			with(timeScale, "Resident Relations: How much time do you spend managing resident complaints, conflicts, and general relations?"),
			with(timeScale, "Vendor Coordination: How much time do you spend managing contractors, maintenance, and vendor relationships for this community?"),
			with(timeScale, "Compliance & Reporting: How much time do you spend on administrative, legal, and reporting requirements?"),
			with(agreementScale, "I perform services outside of the contract."),
			with(agreementScale, "I feel like the Board and I get the support we need."),
			with(weeklyHours, "How many hours a week do you allocate to this client?"),
		},
		validate.SubmissionAccounting: {
			with(timeScale, "Financial Reporting: How much time do you spend on financial statements, budgets, and reporting for this community?"),
			with(timeScale, "Accounts Payable/Receivable: How much time do you spend managing payments, collections, and vendor invoices?"),
			with(timeScale, "Compliance & Auditing: How much time do you spend on compliance requirements, audits, and regulatory filings?"),
			with(timeScale, "Board Support: How much time do you spend preparing financial materials and supporting board meetings?"),
			with(agreementScale, "I perform services outside of the contract."),
			with(agreementScale, "I feel like the Board and I get the support we need."),
			with(weeklyHours, "How many hours a week do you allocate to this client?"),
		},
	}
}

// LoadQuestionSets reads a YAML (.yml/.yaml) or JSON document shaped like
// QuestionSets. Both submission types must be present.
func LoadQuestionSets(path string) (QuestionSets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questions file: %w", err)
	}
	var sets QuestionSets
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(raw, &sets)
	default:
		err = json.Unmarshal(raw, &sets)
	}
	if err != nil {
		return nil, fmt.Errorf("questions file: %w", err)
	}
	for _, kind := range []string{validate.SubmissionManager, validate.SubmissionAccounting} {
		questions := sets[kind]
		if len(questions) == 0 {
			return nil, fmt.Errorf("questions file: %s set is empty", kind)
		}
		for i, q := range questions {
			if q.Text == "" || q.Max < q.Min {
				return nil, fmt.Errorf("questions file: %s question %d is invalid", kind, i)
			}
		}
	}
	return sets, nil
}
