package model

import "fmt"

// ConfigError reports malformed or missing input configuration.
// Configuration errors are raised before any run starts and are never partially applied.
type ConfigError struct {
	File   string // source file, empty when the input did not come from disk
	Field  string // offending field path, e.g. "approval_gates.risk_classes[1]"
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.File != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Reason)
	default:
		return e.Reason
	}
}

// WithFile returns a copy of e attributed to file, keeping an existing attribution.
func (e *ConfigError) WithFile(file string) *ConfigError {
	c := *e
	if c.File == "" {
		c.File = file
	}
	return &c
}
