package health

import "fmt"

// ValidationError reports a malformed input record. Index is the record's
// position within its list, or -1 when the error is not about a list item.
type ValidationError struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`

	// Err is the underlying decode failure, if any.
	Err error `json:"-"`
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s[%d].%s: %s", e.Kind, e.Index, e.Field, e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("invalid %s.%s: %s", e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }
