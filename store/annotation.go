package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hrygo/timextag/plugin/temporal"
)

// Annotation is the object representing a stored annotation.
type Annotation struct {
	ID          int64
	DocumentID  string
	SetName     string
	Type        string
	StartOffset int
	EndOffset   int
	Features    map[string]string
	CreatedTs   int64
}

// FindAnnotation is the find condition for annotation.
type FindAnnotation struct {
	DocumentID string
	SetName    *string
	Type       *string

	Limit  *int
	Offset *int
}

// DeleteAnnotation is the delete request for annotations of a document.
// A nil SetName deletes the annotations of every set.
type DeleteAnnotation struct {
	DocumentID string
	SetName    *string
}

// ErrInvalidSpan is returned when annotation offsets do not fit the document.
var ErrInvalidSpan = errors.New("invalid annotation span")

// CreateAnnotation validates the span against the document length and stores it.
func (s *Store) CreateAnnotation(ctx context.Context, create *Annotation) (*Annotation, error) {
	doc, err := s.GetDocument(ctx, create.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := ValidateSpan(create.StartOffset, create.EndOffset, doc.Length); err != nil {
		return nil, err
	}
	if create.Type == "" {
		return nil, errors.New("annotation type is required")
	}
	return s.driver.CreateAnnotation(ctx, create)
}

// ValidateSpan enforces 0 <= start < end <= length.
func ValidateSpan(start, end, length int) error {
	if start < 0 || end <= start || end > length {
		return errors.Wrapf(ErrInvalidSpan, "[%d,%d) in document of length %d", start, end, length)
	}
	return nil
}

// ListAnnotations lists annotations in document order.
func (s *Store) ListAnnotations(ctx context.Context, find *FindAnnotation) ([]*Annotation, error) {
	if find.DocumentID == "" {
		return nil, errors.New("document id is required")
	}
	return s.driver.ListAnnotations(ctx, find)
}

// ListAnnotationsFiltered lists annotations that satisfy a compiled filter.
// Limit and Offset apply to the filtered rows.
func (s *Store) ListAnnotationsFiltered(ctx context.Context, find *FindAnnotation, filter *AnnotationFilter) ([]*Annotation, error) {
	if filter == nil {
		return s.ListAnnotations(ctx, find)
	}

	unpaged := *find
	unpaged.Limit, unpaged.Offset = nil, nil
	list, err := s.ListAnnotations(ctx, &unpaged)
	if err != nil {
		return nil, err
	}

	result := make([]*Annotation, 0, len(list))
	for _, a := range list {
		ok, err := filter.Match(a)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, a)
		}
	}

	if find.Offset != nil {
		if *find.Offset >= len(result) {
			return []*Annotation{}, nil
		}
		if *find.Offset > 0 {
			result = result[*find.Offset:]
		}
	}
	if find.Limit != nil && *find.Limit >= 0 && *find.Limit < len(result) {
		result = result[:*find.Limit]
	}
	return result, nil
}

// DeleteAnnotations removes annotations of a document.
func (s *Store) DeleteAnnotations(ctx context.Context, delete *DeleteAnnotation) error {
	return s.driver.DeleteAnnotations(ctx, delete)
}

// AnnotationWriter returns a sink writing into the named set of doc.
func (s *Store) AnnotationWriter(doc *Document, setName string) temporal.AnnotationSink {
	return &annotationWriter{store: s, doc: doc, setName: setName}
}

type annotationWriter struct {
	store   *Store
	doc     *Document
	setName string
}

func (w *annotationWriter) AddAnnotation(ctx context.Context, a temporal.Annotation) error {
	_, err := w.store.CreateAnnotation(ctx, &Annotation{
		DocumentID:  w.doc.ID,
		SetName:     w.setName,
		Type:        a.Kind,
		StartOffset: a.Start,
		EndOffset:   a.End,
		Features:    a.Features,
	})
	return err
}

// AnnotationReader adapts the store to the reference date resolver.
func (s *Store) AnnotationReader() temporal.AnnotationReader {
	return annotationReader{store: s}
}

type annotationReader struct {
	store *Store
}

func (r annotationReader) ListAnnotations(ctx context.Context, documentID, set, annotationType string) ([]temporal.Annotation, error) {
	list, err := r.store.ListAnnotations(ctx, &FindAnnotation{
		DocumentID: documentID,
		SetName:    &set,
		Type:       &annotationType,
	})
	if err != nil {
		return nil, err
	}
	result := make([]temporal.Annotation, 0, len(list))
	for _, a := range list {
		result = append(result, a.ToTemporal())
	}
	return result, nil
}

// ToTemporal converts the stored annotation into its in-memory form.
func (a *Annotation) ToTemporal() temporal.Annotation {
	return temporal.Annotation{
		Start:    a.StartOffset,
		End:      a.EndOffset,
		Kind:     a.Type,
		Features: a.Features,
	}
}

// MarshalFeatures encodes features for storage.
func MarshalFeatures(features map[string]string) (string, error) {
	if len(features) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("failed to marshal features: %w", err)
	}
	return string(b), nil
}

// UnmarshalFeatures decodes stored features.
func UnmarshalFeatures(raw []byte) (map[string]string, error) {
	features := map[string]string{}
	if len(raw) == 0 {
		return features, nil
	}
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	return features, nil
}
