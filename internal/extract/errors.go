// Package extract recovers JSON or TOML substrings from freeform LLM
// response text: fenced code blocks first, then a balanced-delimiter scan
// for the first top-level object or array.
package extract

import "fmt"

const windowLen = 100

// NotFoundError reports that no JSON/TOML payload could be located in the
// source text. It carries the first 100 characters of the source so a
// caller can display the window that was searched.
type NotFoundError struct {
	Format string
	Window string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("extract: no %s payload found in source starting %q", e.Format, e.Window)
}

func window(text string) string {
	r := []rune(text)
	if len(r) <= windowLen {
		return string(r)
	}
	return string(r[:windowLen])
}

func notFound(format, text string) *NotFoundError {
	return &NotFoundError{Format: format, Window: window(text)}
}
