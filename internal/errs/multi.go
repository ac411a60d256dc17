package errs

import "strings"

// MultiError aggregates independent failures (e.g. one per processor in a
// registry pass) into a single error that renders one underlying error per
// line. It is intentionally a small local type rather than
// hashicorp/go-multierror: the only aggregate consumer in this codebase is
// the processor registry, which needs append + error-rendering and nothing
// else from that package's API.
type MultiError struct {
	Errors []error
}

// Append adds err to the aggregate if it is non-nil.
func (m *MultiError) Append(err error) {
	if err == nil {
		return
	}
	m.Errors = append(m.Errors, err)
}

// Len reports how many errors have been appended.
func (m *MultiError) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Errors)
}

// ErrorOrNil returns m if it holds at least one error, otherwise nil, so it
// can be returned directly from a function's error result.
func (m *MultiError) ErrorOrNil() error {
	if m == nil || len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	if m == nil || len(m.Errors) == 0 {
		return ""
	}
	lines := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the underlying errors for errors.Is/errors.As traversal.
func (m *MultiError) Unwrap() []error { return m.Errors }
