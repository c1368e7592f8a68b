package tagger

import (
	"context"

	"github.com/hrygo/timextag/plugin/temporal"
	"github.com/hrygo/timextag/plugin/textextract"
)

// Service defines the tagging operations used by the CLI and the HTTP API.
type Service interface {
	// Tag resolves the reference date of one document, extracts its temporal
	// expressions and persists them as annotations.
	Tag(ctx context.Context, req *TagRequest) (*TagResult, error)

	// TagFile loads the file at path and tags it.
	TagFile(ctx context.Context, path string, progress temporal.ProgressSink) (*TagResult, error)

	// TagFiles tags many files with bounded concurrency. A failing file does not
	// stop the others; its error is reported in the returned slice.
	TagFiles(ctx context.Context, paths []string, progress ProgressFactory) []*FileResult

	// ResolveFile returns the reference date the file would be tagged with.
	ResolveFile(ctx context.Context, path string) (string, error)
}

// Extractor is the temporal extraction engine.
type Extractor interface {
	Extract(ctx context.Context, text string, referenceDate string) ([]temporal.Expression, error)
}

// Loader reads the text content of a file.
type Loader interface {
	LoadFile(ctx context.Context, path string) (*textextract.Result, error)
}

// ProgressFactory returns the progress sink of one file in a batch.
type ProgressFactory func(path string) temporal.ProgressSink

// TagRequest is one document to tag.
type TagRequest struct {
	// DocumentID selects an existing document to re-tag. A new one is created when empty.
	DocumentID  string
	Name        string
	SourcePath  string
	ContentType string
	Text        string

	// Strategy overrides the configured reference date strategy when set.
	Strategy temporal.Strategy
	// WriteReferenceDate overrides the configured DOCINFO behavior when set.
	WriteReferenceDate *bool
	// InputAnnotations are stored in the configured input annotation set before
	// the reference date is resolved.
	InputAnnotations []temporal.Annotation

	Progress temporal.ProgressSink
}

// TagResult is the outcome of tagging one document.
type TagResult struct {
	DocumentID    string                `json:"documentId"`
	Name          string                `json:"name"`
	ReferenceDate string                `json:"referenceDate"`
	Annotations   []temporal.Annotation `json:"annotations"`
	Summary       Summary               `json:"summary"`
}

// Summary is the serializable run summary.
type Summary struct {
	AnnotationCount int     `json:"annotationCount"`
	SkippedCount    int     `json:"skippedCount"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
}

// FileResult pairs a batch input with its outcome.
type FileResult struct {
	Path   string     `json:"path"`
	Result *TagResult `json:"result,omitempty"`
	Err    error      `json:"-"`
	Error  string     `json:"error,omitempty"`
}
