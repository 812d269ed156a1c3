package intake

import "fmt"

// ParseError is returned when a request body cannot be read as a submission.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid request body: %s: %v", e.Reason, e.Err)
	}
	return "invalid request body: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
