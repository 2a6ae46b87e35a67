package config

import (
	"fmt"
	"strings"
)

// Problem is one invalid configuration value, addressed by its YAML path
// (for example icon_sets[1].prebuilt).
type Problem struct {
	Field  string
	Reason string
}

func (p Problem) String() string {
	return p.Field + " " + p.Reason
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) add(field, reason string) {
	e.Problems = append(e.Problems, Problem{Field: field, Reason: reason})
}

func (e *ValidationError) addf(field, format string, args ...interface{}) {
	e.add(field, fmt.Sprintf(format, args...))
}

// Fields returns the offending field paths in the order they were found.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		fields = append(fields, p.Field)
	}
	return fields
}

// orNil returns e, or nil when nothing was found.
func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid configuration"
	}
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.String())
	}
	if len(lines) == 1 {
		return "invalid configuration: " + lines[0]
	}
	return fmt.Sprintf("invalid configuration, %d problems:\n\t%s", len(lines), strings.Join(lines, "\n\t"))
}
