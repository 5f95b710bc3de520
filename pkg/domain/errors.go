package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed hierarchy during import. The optional
// path fields identify where in the site → specimen → parameter tree the
// problem was found; Row is the 1-based input row when known.
type ValidationError struct {
	Row       int
	Site      string
	Specimen  string
	Parameter string
	Reason    string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid hierarchy")
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	var path []string
	if e.Site != "" {
		path = append(path, e.Site)
	}
	if e.Specimen != "" {
		path = append(path, e.Specimen)
	}
	if e.Parameter != "" {
		path = append(path, e.Parameter)
	}
	if len(path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(path, "/"))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// NotFoundError is returned when a named record cannot be resolved.
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
