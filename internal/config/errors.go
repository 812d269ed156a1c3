package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports settings that must be present before a lead can
// be delivered.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("email configuration incomplete: missing %s", strings.Join(e.Missing, ", "))
}
