package tagger

import (
	"fmt"
)

// ErrNoDocumentText is returned when the document has no text to tag.
var ErrNoDocumentText = fmt.Errorf("no document to process")

// ExtractionError is a failure of the extraction engine.
type ExtractionError struct {
	DocumentID string
	Cause      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("temporal extraction failed for document %s: %v", e.DocumentID, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
