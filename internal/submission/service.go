package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/service"
	"github.com/communitytime/allocation-api/internal/validate"
)

// Store persists submissions and answers the advisory duplicate checks.
type Store interface {
	InsertRecords(ctx context.Context, records []Record) error
	SubmittedCommunityIDs(ctx context.Context, p Period) ([]string, error)
	HasSubmission(ctx context.Context, p Period, communityID string) (bool, error)
	DuplicateNames(ctx context.Context, p Period, communityIDs []string) ([]string, error)
}

// Access is the authorization surface the writer needs.
type Access interface {
	ResolveSubject(ctx context.Context, caller, requested string) (string, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	ValidateCommunityAccess(ctx context.Context, email string, communityIDs []string) error
}

// Caller is the verified identity behind a request. Email is empty when
// the deployment runs without identity verification.
type Caller struct {
	Email string
	Name  string
}

type Service struct {
	store  Store
	access Access
	rules  Rules
	now    func() time.Time
}

func NewService(store Store, access Access, rules Rules) *Service {
	return &Service{store: store, access: access, rules: rules, now: time.Now}
}

// authorize checks the subject may write to every community. Without a
// verified caller there is nothing to check against. Admin mode skips the
// per-community check once the caller is confirmed as admin.
func (s *Service) authorize(ctx context.Context, caller Caller, subject string, adminMode bool, communityIDs []string) error {
	if caller.Email == "" {
		return nil
	}
	if adminMode {
		admin, err := s.access.IsAdmin(ctx, caller.Email)
		if err != nil {
			return err
		}
		if !admin {
			return service.ErrForbidden
		}
		log.Info().Str("admin", caller.Email).Str("subject", subject).Msg("admin mode submission")
		return nil
	}
	return s.access.ValidateCommunityAccess(ctx, subject, communityIDs)
}

// SubmitAssessment validates and stores a monthly assessment, one row per
// community, all or nothing.
func (s *Service) SubmitAssessment(ctx context.Context, caller Caller, req AssessmentRequest) (Receipt, error) {
	now := s.now().UTC()
	if fe := s.rules.checkAssessment(req, caller.Email != "", now); fe != nil {
		return Receipt{}, fe
	}

	subject, err := s.access.ResolveSubject(ctx, caller.Email, req.UserEmail)
	if err != nil {
		return Receipt{}, err
	}
	ids := make([]string, len(req.Entries))
	for i, e := range req.Entries {
		ids[i] = string(e.CommunityID)
	}
	if err := s.authorize(ctx, caller, subject, req.AdminMode, ids); err != nil {
		return Receipt{}, err
	}

	userName := validate.SanitizeText(req.UserName)
	if userName == "" {
		userName = caller.Name
	}
	month, year := int(req.Month), int(req.Year)
	kind := req.SubmissionType
	submissionID := uuid.New()

	records := make([]Record, 0, len(req.Entries))
	for _, e := range req.Entries {
		pct := int(*e.TimePercentage)
		rec := Record{
			SubmissionID:   submissionID,
			PropertyID:     string(e.CommunityID),
			UserName:       userName,
			Email:          subject,
			Month:          &month,
			Year:           &year,
			SubmissionType: &kind,
			TimePercentage: &pct,
			SubmissionDate: now,
		}
		answers, other := questionGroup(e)
		if kind == validate.SubmissionManager {
			rec.CQ, rec.CQOther = answers, other
		} else {
			rec.AQ, rec.AQOther = answers, other
		}
		records = append(records, rec)
	}

	if err := s.store.InsertRecords(ctx, records); err != nil {
		return Receipt{}, fmt.Errorf("submit assessment: %w", err)
	}
	log.Info().
		Str("email", subject).
		Str("submission_id", submissionID.String()).
		Str("type", kind).
		Int("count", len(records)).
		Msg("assessment submitted")
	return Receipt{SubmissionID: submissionID, Count: len(records), SubmissionDate: now}, nil
}

// questionGroup maps answers 1..5 and the free text onto one column group.
// Later answers are validated but have no column.
func questionGroup(e AssessmentEntry) ([5]*float64, *string) {
	var answers [5]*float64
	for i := range answers {
		if v, ok := e.Responses.Value(i); ok {
			answers[i] = &v
		}
	}
	var other *string
	if text := validate.SanitizeText(e.OtherText); text != "" {
		other = &text
	}
	return answers, other
}

// SubmitTime validates and stores one day of hours per community, all or
// nothing.
func (s *Service) SubmitTime(ctx context.Context, caller Caller, req TimeRequest) (Receipt, error) {
	if fe := s.rules.checkTime(req); fe != nil {
		return Receipt{}, fe
	}

	subject, err := s.access.ResolveSubject(ctx, caller.Email, req.UserID)
	if err != nil {
		return Receipt{}, err
	}
	ids := make([]string, len(req.Entries))
	for i, e := range req.Entries {
		ids[i] = string(e.CommunityID)
	}
	if err := s.authorize(ctx, caller, subject, req.AdminMode, ids); err != nil {
		return Receipt{}, err
	}

	day, _ := time.Parse(time.DateOnly, req.Date)
	now := s.now().UTC()
	submissionID := uuid.New()
	userName, _, _ := strings.Cut(subject, "@")

	records := make([]Record, 0, len(req.Entries))
	for _, e := range req.Entries {
		hours := float64(*e.Hours)
		records = append(records, Record{
			SubmissionID:   submissionID,
			PropertyID:     string(e.CommunityID),
			UserName:       userName,
			Email:          subject,
			Date:           &day,
			Hours:          &hours,
			Notes:          validate.SanitizeText(e.Notes),
			SubmissionDate: now,
		})
	}

	if err := s.store.InsertRecords(ctx, records); err != nil {
		return Receipt{}, fmt.Errorf("submit time: %w", err)
	}
	log.Info().
		Str("email", subject).
		Str("submission_id", submissionID.String()).
		Int("count", len(records)).
		Msg("time entries submitted")
	return Receipt{SubmissionID: submissionID, Count: len(records), SubmissionDate: now}, nil
}

func (s *Service) period(ctx context.Context, caller Caller, q DuplicateQuery) (Period, error) {
	subject, err := s.access.ResolveSubject(ctx, caller.Email, q.UserID)
	if err != nil {
		return Period{}, err
	}
	return Period{Email: subject, Month: int(q.Month), Year: int(q.Year), SubmissionType: q.SubmissionType}, nil
}

// SubmittedCommunities lists every community already submitted for the period.
func (s *Service) SubmittedCommunities(ctx context.Context, caller Caller, q DuplicateQuery) ([]string, error) {
	if fe := checkQuery(q, caller.Email != "", false); fe != nil {
		return nil, fe
	}
	p, err := s.period(ctx, caller, q)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.SubmittedCommunityIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// IsDuplicate reports whether the community already has a submission for the period.
func (s *Service) IsDuplicate(ctx context.Context, caller Caller, q DuplicateQuery) (bool, error) {
	if fe := checkQuery(q, caller.Email != "", true); fe != nil {
		return false, fe
	}
	p, err := s.period(ctx, caller, q)
	if err != nil {
		return false, err
	}
	return s.store.HasSubmission(ctx, p, string(q.CommunityID))
}

// Duplicates returns the names of the listed communities that already have
// a submission for the period.
func (s *Service) Duplicates(ctx context.Context, caller Caller, q DuplicateQuery) ([]string, error) {
	if fe := checkQuery(q, caller.Email != "", false); fe != nil {
		return nil, fe
	}
	if len(q.CommunityIDs) == 0 {
		return []string{}, nil
	}
	p, err := s.period(ctx, caller, q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(q.CommunityIDs))
	for _, id := range q.CommunityIDs {
		if id != "" {
			ids = append(ids, string(id))
		}
	}
	names, err := s.store.DuplicateNames(ctx, p, ids)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
