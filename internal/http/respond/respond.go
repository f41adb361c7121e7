package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/communitytime/allocation-api/internal/repo"
	"github.com/communitytime/allocation-api/internal/service"
	"github.com/communitytime/allocation-api/internal/validate"
)

// Payload is merged into the top level of the response envelope.
type Payload map[string]any

// JSON writes {success: true, ...payload}.
func JSON(w http.ResponseWriter, status int, payload Payload) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	if _, ok := body["success"]; !ok {
		body["success"] = true
	}
	write(w, status, body)
}

// Error writes {success: false, message}.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, map[string]any{"success": false, "message": message})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Writer renders failures. Outside production the underlying error is
// echoed in an "error" field for debugging.
type Writer struct {
	exposeErrors bool
}

func NewWriter(exposeErrors bool) Writer {
	return Writer{exposeErrors: exposeErrors}
}

// Fail writes a failure envelope; 5xx errors are logged.
func (wr Writer) Fail(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError && err != nil {
		log.Error().Err(err).Int("status", status).Msg(message)
	}
	body := map[string]any{"success": false, "message": message}
	if wr.exposeErrors && err != nil {
		body["error"] = err.Error()
	}
	write(w, status, body)
}

// Invalid writes a 400 naming the offending field and entry.
func (wr Writer) Invalid(w http.ResponseWriter, fe *validate.FieldError) {
	body := map[string]any{"success": false, "message": fe.Message, "field": fe.Field}
	if fe.Entry > 0 {
		body["entry"] = fe.Entry
	}
	write(w, http.StatusBadRequest, body)
}

// Domain maps service errors onto statuses; anything unknown becomes a 500
// carrying fallback as its message.
func (wr Writer) Domain(w http.ResponseWriter, err error, fallback string) {
	var fe *validate.FieldError
	var access *service.AccessError
	switch {
	case errors.As(err, &fe):
		wr.Invalid(w, fe)
	case errors.As(err, &access):
		wr.Fail(w, http.StatusForbidden, access.Message, nil)
	case errors.Is(err, service.ErrForbidden):
		wr.Fail(w, http.StatusForbidden, "Insufficient privileges", nil)
	case errors.Is(err, repo.ErrNotFound):
		wr.Fail(w, http.StatusNotFound, "Not found", nil)
	default:
		wr.Fail(w, http.StatusInternalServerError, fallback, err)
	}
}

// BadBody answers a body that failed to decode. Type mismatches name the
// offending field; anything else gets fallback.
func (wr Writer) BadBody(w http.ResponseWriter, err error, fallback string) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field[strings.LastIndex(typeErr.Field, ".")+1:]
		wr.Invalid(w, validate.Fieldf(field, "Invalid %s value", field))
		return
	}
	wr.Fail(w, http.StatusBadRequest, fallback, err)
}

// Decode reads a JSON body into dst.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
