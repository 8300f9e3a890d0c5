package models

import "fmt"

// SchemaError reports a malformed signature document
type SchemaError struct {
	// Path locates the offending element, e.g. categories[2].technologies[0]
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "signature schema: " + e.Reason
	}
	return fmt.Sprintf("signature schema: %s: %s", e.Path, e.Reason)
}

// PatternEvaluationError reports a single pattern that could not be evaluated.
// The pattern counts as non-matching.
type PatternEvaluationError struct {
	Technology string
	Kind       PatternKind
	Err        error
}

func (e *PatternEvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s pattern of %s: %v", e.Kind, e.Technology, e.Err)
}

func (e *PatternEvaluationError) Unwrap() error {
	return e.Err
}
