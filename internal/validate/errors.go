package validate

import "fmt"

// FieldError is a rejected input. Entry is 1-based; zero means the
// violation concerns the request as a whole.
type FieldError struct {
	Field   string
	Entry   int
	Message string
}

func (e *FieldError) Error() string {
	if e.Entry > 0 {
		return fmt.Sprintf("%s (entry %d): %s", e.Field, e.Entry, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Fieldf builds a request-level FieldError.
func Fieldf(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Entryf builds a FieldError pointing at entry (1-based).
func Entryf(field string, entry int, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Entry: entry, Message: fmt.Sprintf(format, args...)}
}
