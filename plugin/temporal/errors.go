package temporal

import (
	"errors"
	"fmt"
)

// ErrorKind classifies reference date and span failures.
type ErrorKind string

const (
	// KindNoReferenceDate indicates no reference date strategy was selected.
	KindNoReferenceDate ErrorKind = "NO_REFERENCE_DATE"
	// KindInvalidDateFormat indicates an explicit date failed strict validation.
	KindInvalidDateFormat ErrorKind = "INVALID_DATE_FORMAT"
	// KindMissingFileDate indicates the requested file timestamp is unavailable.
	KindMissingFileDate ErrorKind = "MISSING_FILE_DATE"
	// KindNoValidDateInAnnotations indicates no candidate annotation carried a valid date.
	KindNoValidDateInAnnotations ErrorKind = "NO_VALID_DATE_IN_ANNOTATIONS"
	// KindInvalidSpan indicates a single annotation could not be emitted.
	KindInvalidSpan ErrorKind = "INVALID_SPAN"
)

// Error is a classified temporal tagging failure.
type Error struct {
	Kind       ErrorKind
	Message    string
	DocumentID string
	// Value is the strategy selector or candidate value involved, if any.
	Value string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.DocumentID != "" {
		msg += " (document " + e.DocumentID + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrNoReferenceDate          = &Error{Kind: KindNoReferenceDate}
	ErrInvalidDateFormat        = &Error{Kind: KindInvalidDateFormat}
	ErrMissingFileDate          = &Error{Kind: KindMissingFileDate}
	ErrNoValidDateInAnnotations = &Error{Kind: KindNoValidDateInAnnotations}
	ErrInvalidSpan              = &Error{Kind: KindInvalidSpan}
)

// IsKind checks whether err is a temporal error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// KindOf extracts the error kind, or "" if err is not a temporal error.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// SpanError records one skipped annotation.
type SpanError struct {
	Index int
	Start int
	End   int
	Err   error
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("span #%d [%d,%d): %v", e.Index, e.Start, e.End, e.Err)
}

func (e *SpanError) Unwrap() error {
	return e.Err
}

func noReferenceDate(docID string) *Error {
	return &Error{
		Kind:       KindNoReferenceDate,
		Message:    "no reference date provided, please give a valid option",
		DocumentID: docID,
	}
}

func invalidDateFormat(docID, value string) *Error {
	return &Error{
		Kind:       KindInvalidDateFormat,
		Message:    fmt.Sprintf("%q is not a valid date and/or formatted as 'yyyy-MM-dd'", value),
		DocumentID: docID,
		Value:      value,
	}
}

func missingFileDate(docID, selector string, cause error) *Error {
	return &Error{
		Kind:       KindMissingFileDate,
		Message:    fmt.Sprintf("%s is not available", selector),
		DocumentID: docID,
		Value:      selector,
		Cause:      cause,
	}
}

func noValidDateInAnnotations(docID string, s FromAnnotation, cause error) *Error {
	return &Error{
		Kind: KindNoValidDateInAnnotations,
		Message: fmt.Sprintf("no valid date found in feature %q of %q annotations in set %q",
			s.FeatureName, s.AnnotationType, s.AnnotationSet),
		DocumentID: docID,
		Cause:      cause,
	}
}

func invalidSpan(reason string) *Error {
	return &Error{Kind: KindInvalidSpan, Message: reason}
}
