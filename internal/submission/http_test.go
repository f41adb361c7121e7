package submission

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/communitytime/allocation-api/internal/audit"
	"github.com/communitytime/allocation-api/internal/http/middleware"
	"github.com/communitytime/allocation-api/internal/http/respond"
)

func newTestRouter(store *memStore) chi.Router {
	gate := middleware.NewGate(false, nil, nil, audit.NewMemoryRecorder(8))
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		Mount(r, NewHandler(newTestService(store), respond.NewWriter(false)), gate, passthrough)
	})
	return r
}

func post(t *testing.T, router http.Handler, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
	}
	return rec.Code, out
}

const assessmentBody = `{
	"userEmail": "mgr@pelican.example.com",
	"userName": "Maria Gomez",
	"month": "4",
	"year": 2024,
	"submissionType": "Manager",
	"entries": [
		{"communityId": 101, "responses": [3, 2, null, 1, 4], "otherText": "", "timePercentage": 60},
		{"communityId": "102", "responses": {"0": 1}, "timePercentage": 40}
	]
}`

func TestSubmitAssessmentHTTP(t *testing.T) {
	store := &memStore{}
	router := newTestRouter(store)

	status, body := post(t, router, "/api/submit-assessment", assessmentBody)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}
	if body["success"] != true || body["message"] != "Assessment submitted successfully" || body["count"] != float64(2) {
		t.Fatalf("unexpected body %v", body)
	}
	if len(store.records) != 2 || store.records[0].PropertyID != "101" || store.records[0].CQ[2] != nil {
		t.Fatalf("unexpected stored rows %+v", store.records)
	}

	status, body = post(t, router, "/api/check-community-duplicate",
		`{"userId":"mgr@pelican.example.com","month":4,"year":"2024","submissionType":"Manager","communityId":101}`)
	if status != http.StatusOK || body["isDuplicate"] != true {
		t.Fatalf("expected duplicate after submit, got %d %v", status, body)
	}
}

func TestSubmitAssessmentHTTPErrors(t *testing.T) {
	router := newTestRouter(&memStore{})

	status, body := post(t, router, "/api/submit-assessment",
		strings.Replace(assessmentBody, `"timePercentage": 40`, `"timePercentage": 140`, 1))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["message"] != "Invalid time percentage in entry 2. Must be between 0 and 100." || body["entry"] != float64(2) {
		t.Fatalf("unexpected validation body %v", body)
	}

	failing := newTestRouter(&memStore{err: errors.New("connection reset by peer")})
	status, body = post(t, failing, "/api/submit-assessment", assessmentBody)
	if status != http.StatusInternalServerError || body["message"] != "Failed to submit assessment" {
		t.Fatalf("expected 500 failure envelope, got %d %v", status, body)
	}
	if _, leaked := body["error"]; leaked {
		t.Fatalf("error details must be hidden in production")
	}

	status, body = post(t, router, "/api/check-duplicates", `{"month":4,"year":2024,"submissionType":"Manager"}`)
	if status != http.StatusBadRequest || body["message"] != "Missing required parameters" {
		t.Fatalf("expected missing parameters, got %d %v", status, body)
	}
}

func TestSubmitTimeHTTP(t *testing.T) {
	store := &memStore{}
	router := newTestRouter(store)

	status, body := post(t, router, "/api/submit-time",
		`{"userId":"mgr@pelican.example.com","date":"2024-05-09","entries":[{"communityId":"101","hours":2.5,"notes":"walkthrough"}]}`)
	if status != http.StatusOK || body["message"] != "Successfully submitted 1 time entries" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
	if body["submissionId"] == "" || body["submissionDate"] == nil {
		t.Fatalf("expected submission id and date, got %v", body)
	}
}

func TestSubmitTimeHTTPAcceptsNumericStrings(t *testing.T) {
	store := &memStore{}
	router := newTestRouter(store)

	status, body := post(t, router, "/api/submit-time",
		`{"userId":"mgr@pelican.example.com","date":"2024-05-09","entries":[{"communityId":"101","hours":"8"},{"communityId":"102","hours":" 1.25 "}]}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if len(store.records) != 2 || *store.records[0].Hours != 8 || *store.records[1].Hours != 1.25 {
		t.Fatalf("unexpected stored hours %+v", store.records)
	}
}

func TestDecodeFailuresNameTheField(t *testing.T) {
	router := newTestRouter(&memStore{})

	cases := []struct {
		name, path, body, field string
	}{
		{"non numeric hours", "/api/submit-time",
			`{"userId":"mgr@pelican.example.com","date":"2024-05-09","entries":[{"communityId":"101","hours":"eight"}]}`, "hours"},
		{"fractional percentage", "/api/submit-assessment",
			strings.Replace(assessmentBody, `"timePercentage": 40`, `"timePercentage": 33.5`, 1), "timePercentage"},
		{"boolean month", "/api/check-duplicates",
			`{"userId":"mgr@pelican.example.com","month":true,"year":2024,"submissionType":"Manager"}`, "month"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := post(t, router, tc.path, tc.body)
			if status != http.StatusBadRequest || body["field"] != tc.field {
				t.Fatalf("expected 400 naming %s, got %d %v", tc.field, status, body)
			}
		})
	}

	status, body := post(t, router, "/api/submit-time", `{"entries":`)
	if status != http.StatusBadRequest || body["message"] != "Invalid request body" {
		t.Fatalf("expected generic body error, got %d %v", status, body)
	}
}

func TestMissingParametersNameTheField(t *testing.T) {
	router := newTestRouter(&memStore{})

	cases := []struct {
		body, field string
	}{
		{`{"month":4,"year":2024,"submissionType":"Manager"}`, "userId"},
		{`{"userId":"mgr@pelican.example.com","year":2024,"submissionType":"Manager"}`, "month"},
		{`{"userId":"mgr@pelican.example.com","month":4,"submissionType":"Manager"}`, "year"},
		{`{"userId":"mgr@pelican.example.com","month":4,"year":2024}`, "submissionType"},
	}
	for _, tc := range cases {
		status, body := post(t, router, "/api/check-all-communities-status", tc.body)
		if status != http.StatusBadRequest || body["message"] != "Missing required parameters" || body["field"] != tc.field {
			t.Fatalf("expected missing %s, got %d %v", tc.field, status, body)
		}
	}
}
