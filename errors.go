package miiquality

import (
	"errors"
	"fmt"
)

// ParseError reports a document that is not well-formed JSON.
// Processing of the bundle stops; no report is produced.
type ParseError struct {
	// Source is the file path or label of the document
	Source string
	// Offset is the byte offset of the syntax error, 0 if unknown
	Offset int64
	// Line and Column locate Offset, 0 when the input was streamed
	Line   int
	Column int
	// Err is the underlying decoder error
	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: invalid JSON at line %d, column %d: %v", e.Source, e.Line, e.Column, e.Err)
	}
	if e.Offset > 0 {
		return fmt.Sprintf("%s: invalid JSON at offset %d: %v", e.Source, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: invalid JSON: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StructureError reports valid JSON that does not have the shape of a
// processable FHIR Bundle.
type StructureError struct {
	// Source is the file path or label of the document
	Source string
	// Reason describes what is missing or malformed
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: not a valid Bundle: %s", e.Source, e.Reason)
}

// CheckEvaluationError reports a check that could not run on a resource.
// The engine converts it into an error finding; it never aborts a bundle.
type CheckEvaluationError struct {
	CheckID string
	Target  Target
	Err     error
}

func (e *CheckEvaluationError) Error() string {
	return fmt.Sprintf("check %s could not evaluate resource %s: %v", e.CheckID, e.Target, e.Err)
}

func (e *CheckEvaluationError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsStructureError returns true if err is or wraps a *StructureError.
func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}
