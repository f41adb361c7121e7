package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Range bounds the answer accepted for one question index.
type Range struct {
	Min float64
	Max float64
}

// Responses holds assessment answers keyed by question index. It decodes
// either a JSON array (nulls are unanswered) or an object keyed by index.
type Responses map[int]float64

func (r *Responses) UnmarshalJSON(data []byte) error {
	out := Responses{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = out
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var items []*float64
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for i, v := range items {
			if v != nil {
				out[i] = *v
			}
		}
		*r = out
		return nil
	}

	var keyed map[string]*float64
	if err := json.Unmarshal(data, &keyed); err != nil {
		return err
	}
	for k, v := range keyed {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return fmt.Errorf("responses: invalid question index %q", k)
		}
		if v != nil {
			out[idx] = *v
		}
	}
	*r = out
	return nil
}

// Value returns the answer for idx, if any.
func (r Responses) Value(idx int) (float64, bool) {
	v, ok := r[idx]
	return v, ok
}

// CheckResponses validates answers against ranges for the entry at position
// entry (1-based). With required set every question must be answered.
func CheckResponses(responses Responses, ranges []Range, required bool, entry int) *FieldError {
	for idx := range responses {
		if idx >= len(ranges) {
			return Entryf("responses", entry, "Unknown question %d in entry %d", idx+1, entry)
		}
	}
	for idx, rg := range ranges {
		v, ok := responses[idx]
		if !ok {
			if required {
				return Entryf("responses", entry, "Question %d is required in entry %d", idx+1, entry)
			}
			continue
		}
		if math.IsNaN(v) || v < rg.Min || v > rg.Max {
			return Entryf("responses", entry, "Invalid answer to question %d in entry %d. Must be between %g and %g.", idx+1, entry, rg.Min, rg.Max)
		}
	}
	return nil
}
