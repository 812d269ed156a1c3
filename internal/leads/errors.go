package leads

import (
	"fmt"
	"strings"
)

// ValidationError is returned when required lead fields are blank after
// normalization.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}
