package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// FileTimes holds the timestamps a filesystem tracks for a file.
// A nil field means the attribute is not available.
type FileTimes struct {
	Created  *time.Time
	Accessed *time.Time
	Modified *time.Time
}

// FileMetadata reads file timestamps.
type FileMetadata interface {
	Stat(ctx context.Context, path string) (*FileTimes, error)
}

// AnnotationReader lists existing annotations of a document in document order.
type AnnotationReader interface {
	ListAnnotations(ctx context.Context, documentID, set, annotationType string) ([]Annotation, error)
}

// DocumentContext identifies the document a reference date is resolved for.
type DocumentContext struct {
	ID         string
	Name       string
	Length     int
	SourcePath string
}

func (d DocumentContext) label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Resolver resolves reference dates. It keeps no state between calls.
type Resolver struct {
	files       FileMetadata
	annotations AnnotationReader
	location    *time.Location
	now         func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileMetadata sets the file metadata collaborator.
func WithFileMetadata(files FileMetadata) ResolverOption {
	return func(r *Resolver) { r.files = files }
}

// WithAnnotationReader sets the annotation collaborator.
func WithAnnotationReader(reader AnnotationReader) ResolverOption {
	return func(r *Resolver) { r.annotations = reader }
}

// WithLocation sets the location used to derive calendar dates.
func WithLocation(loc *time.Location) ResolverOption {
	return func(r *Resolver) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the reference date for doc as YYYY-MM-DD.
func (r *Resolver) Resolve(ctx context.Context, strategy Strategy, doc DocumentContext) (string, error) {
	var (
		date string
		err  error
	)

	switch s := strategy.(type) {
	case nil:
		return "", noReferenceDate(doc.label())
	case Today:
		date = FormatDate(r.now(), r.location)
	case FileCreationDate:
		date, err = r.fileDate(ctx, s, doc)
	case FileLastAccessDate:
		date, err = r.fileDate(ctx, s, doc)
	case FileLastModifiedDate:
		date, err = r.fileDate(ctx, s, doc)
	case FromAnnotation:
		date, err = r.annotationDate(ctx, s, doc)
	case Explicit:
		if !ValidateDate(s.Date) {
			return "", invalidDateFormat(doc.label(), s.Date)
		}
		date = s.Date
	default:
		return "", errors.Errorf("unsupported reference date strategy %T", strategy)
	}
	if err != nil {
		return "", err
	}

	// Every path must hand the extractor a strictly valid date.
	if !ValidateDate(date) {
		return "", invalidDateFormat(doc.label(), date)
	}
	return date, nil
}

func (r *Resolver) fileDate(ctx context.Context, s Strategy, doc DocumentContext) (string, error) {
	selector := s.Selector()
	if r.files == nil {
		return "", missingFileDate(doc.label(), selector, errors.New("no file metadata source configured"))
	}
	if doc.SourcePath == "" {
		return "", missingFileDate(doc.label(), selector, errors.New("document has no backing file"))
	}

	times, err := r.files.Stat(ctx, doc.SourcePath)
	if err != nil {
		return "", missingFileDate(doc.label(), selector, errors.Wrapf(err, "failed to read attributes of %s", doc.SourcePath))
	}
	if times == nil {
		return "", missingFileDate(doc.label(), selector, nil)
	}

	var ts *time.Time
	switch s.(type) {
	case FileCreationDate:
		ts = times.Created
	case FileLastAccessDate:
		ts = times.Accessed
	case FileLastModifiedDate:
		ts = times.Modified
	}
	if ts == nil || ts.IsZero() {
		return "", missingFileDate(doc.label(), selector, fmt.Errorf("filesystem does not track %s", selector))
	}
	return FormatDate(*ts, r.location), nil
}

// annotationDate returns the first candidate in document order whose feature validates.
func (r *Resolver) annotationDate(ctx context.Context, s FromAnnotation, doc DocumentContext) (string, error) {
	if r.annotations == nil {
		return "", noValidDateInAnnotations(doc.label(), s, errors.New("no annotation source configured"))
	}

	candidates, err := r.annotations.ListAnnotations(ctx, doc.ID, s.AnnotationSet, s.AnnotationType)
	if err != nil {
		return "", noValidDateInAnnotations(doc.label(), s, errors.Wrap(err, "failed to list annotations"))
	}

	for _, candidate := range candidates {
		value, ok := candidate.Features[s.FeatureName]
		if ok && ValidateDate(value) {
			return value, nil
		}
	}
	return "", noValidDateInAnnotations(doc.label(), s, nil)
}
