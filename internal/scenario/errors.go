package scenario

import "fmt"

// ConfigurationError reports an invalid scenario. It is only ever returned at
// load time.
type ConfigurationError struct {
	Field string // dotted path of the offending field, if known
	Msg   string
	Err   error
}

func (e *ConfigurationError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Field == "" {
		return "scenario: " + msg
	}
	return fmt.Sprintf("scenario: %s: %s", e.Field, msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func fieldErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
