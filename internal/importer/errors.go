package importer

import "fmt"

// ErrorKind classifies row-level import failures.
type ErrorKind string

const (
	// MissingRequiredColumn is raised when the header lacks a required
	// column or a required field is empty on a row.
	MissingRequiredColumn ErrorKind = "MissingRequiredColumn"

	// MalformedChoiceList is raised when the choices field is empty or
	// yields fewer than two options.
	MalformedChoiceList ErrorKind = "MalformedChoiceList"

	// UnresolvableCorrectChoice is raised when a correct-choice index is
	// out of range, a text reference matches no choice, or the resolved
	// set violates the question type's correct-count rule.
	UnresolvableCorrectChoice ErrorKind = "UnresolvableCorrectChoice"

	// InvalidEnumValue is raised when question_type, difficulty or
	// is_active carries a value outside the recognized set.
	InvalidEnumValue ErrorKind = "InvalidEnumValue"
)

// RowError describes one failing row. Row is the 1-based line number in the
// source file, counting the header as line 1.
type RowError struct {
	Row     int
	Kind    ErrorKind
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Kind, e.Message)
}

func newRowError(row int, kind ErrorKind, format string, args ...interface{}) *RowError {
	return &RowError{Row: row, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
